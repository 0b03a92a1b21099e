package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/exam"
	"github.com/classpoint/classpoint/internal/rbac"
)

type uploadExamReq struct {
	Title          string          `json:"title" validate:"required"`
	SubjectID      string          `json:"subject_id" validate:"required"`
	ProgramID      string          `json:"program_id" validate:"required"`
	LevelID        string          `json:"level_id"`
	TrackID        string          `json:"track_id"`
	ExamType       string          `json:"exam_type" validate:"required,oneof=CA EXAM"`
	Term           string          `json:"term" validate:"required,oneof=FIRST SECOND THIRD"`
	DurationSec    int             `json:"duration_sec" validate:"gte=0"`
	AcademicTermID *string         `json:"academic_term_id"`
	IsPublished    bool            `json:"is_published"`
	Questions      []exam.Question `json:"questions" validate:"required,min=1,dive"`
}

// POST /exams
func UploadExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadExamReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		for _, q := range req.Questions {
			if q.ID == "" || q.Type == "" {
				writeError(w, apperr.BadRequest("every question needs an id and a type"))
				return
			}
			if q.Marks <= 0 {
				writeError(w, apperr.BadRequestf("question %s: marks must be positive", q.ID))
				return
			}
		}
		e := exam.Exam{
			Title:          req.Title,
			SubjectID:      req.SubjectID,
			ProgramID:      req.ProgramID,
			LevelID:        req.LevelID,
			TrackID:        req.TrackID,
			ExamType:       req.ExamType,
			Term:           req.Term,
			DurationSec:    req.DurationSec,
			AcademicTermID: req.AcademicTermID,
			IsPublished:    req.IsPublished,
			CreatedBy:      rbac.SubjectFromContext(r.Context()),
			Questions:      req.Questions,
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "title": e.Title})
	}
}

// GET /exams/{examID}
// Students get the answer-stripped view and never see unpublished exams.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		ctx := r.Context()
		role := rbac.RoleFromContext(ctx)

		if rbac.Staff(role) {
			e, err := store.GetExamAdmin(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, e)
			return
		}

		e, err := store.GetExam(ctx, id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !e.IsPublished {
			writeError(w, apperr.NotFound("exam not found"))
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// GET /exams?subjectId=&programId=&term=&examType=&limit=&offset=
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ctx := r.Context()
		opts := exam.ListOpts{
			SubjectID:  strings.TrimSpace(q.Get("subjectId")),
			ProgramID:  strings.TrimSpace(q.Get("programId")),
			Term:       strings.TrimSpace(q.Get("term")),
			ExamType:   strings.TrimSpace(q.Get("examType")),
			Limit:      parseIntDefault(q.Get("limit"), 50),
			Offset:     parseIntDefault(q.Get("offset"), 0),
			ViewerID:   rbac.SubjectFromContext(ctx),
			ViewerRole: rbac.RoleFromContext(ctx),
		}
		list, err := store.ListExams(ctx, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createAttemptReq struct {
	ExamID string `json:"exam_id" validate:"required"`
}

// POST /attempts
// One attempt per (exam, student); a second create is a conflict.
func CreateAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAttemptReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		ctx := r.Context()
		if !rbac.Staff(rbac.RoleFromContext(ctx)) {
			e, err := store.GetExam(ctx, req.ExamID)
			if err != nil {
				writeError(w, err)
				return
			}
			if !e.IsPublished {
				writeError(w, apperr.NotFound("exam not found"))
				return
			}
		}
		a, err := store.NewAttempt(ctx, req.ExamID, rbac.SubjectFromContext(ctx))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

type saveResponsesReq struct {
	Responses map[string]interface{} `json:"responses" validate:"required"`
}

// POST /attempts/{attemptID}/responses
func SaveResponsesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req saveResponsesReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		if err := assertAttemptOwner(r, store, id); err != nil {
			writeError(w, err)
			return
		}
		a, err := store.SaveResponses(r.Context(), id, req.Responses)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/submit
// Submission closes the attempt and auto-grades the objective questions.
func SubmitAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if err := assertAttemptOwner(r, store, id); err != nil {
			writeError(w, err)
			return
		}
		a, err := store.Submit(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		ctx := r.Context()
		a, err := store.GetAttempt(ctx, id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !rbac.Staff(rbac.RoleFromContext(ctx)) && a.UserID != rbac.SubjectFromContext(ctx) {
			writeError(w, apperr.Forbidden("not your attempt"))
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts?examId=&userId=&status=&ungraded=&limit=&offset=
// Students are scoped to their own attempts.
func ListAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ctx := r.Context()
		opts := exam.AttemptListOpts{
			ExamID:   strings.TrimSpace(q.Get("examId")),
			UserID:   strings.TrimSpace(q.Get("userId")),
			Status:   strings.TrimSpace(q.Get("status")),
			Ungraded: q.Get("ungraded") == "true" || q.Get("ungraded") == "1",
			Limit:    parseIntDefault(q.Get("limit"), 50),
			Offset:   parseIntDefault(q.Get("offset"), 0),
		}
		if !rbac.Staff(rbac.RoleFromContext(ctx)) {
			opts.UserID = rbac.SubjectFromContext(ctx)
		}
		list, err := store.ListAttempts(ctx, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func assertAttemptOwner(r *http.Request, store exam.Store, attemptID string) error {
	ctx := r.Context()
	a, err := store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if a.UserID != rbac.SubjectFromContext(ctx) {
		return apperr.Forbidden("not your attempt")
	}
	return nil
}
