package http

import (
	"net/http"
	"strings"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/term"
)

// GET /grading/questions?attemptId=
// Returns the attempt, its exam questions, student responses and any
// existing grades: everything the grading screen needs.
func GetAttemptGradingHandler(ledger *grading.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(r.URL.Query().Get("attemptId"))
		if attemptID == "" {
			writeError(w, apperr.BadRequest("attemptId required"))
			return
		}
		if err := assertAttemptGradable(r, ledger, attemptID); err != nil {
			writeError(w, err)
			return
		}
		view, err := ledger.AttemptItems(r.Context(), attemptID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type recordGradeReq struct {
	AttemptID      string  `json:"attempt_id" validate:"required"`
	QuestionID     string  `json:"question_id" validate:"required"`
	MarksAwarded   float64 `json:"marks_awarded" validate:"gte=0"`
	MaxMarks       float64 `json:"max_marks" validate:"gte=0"`
	TeacherComment string  `json:"teacher_comment"`
}

// POST /grading/questions
// Upserts one question grade; the attempt score is recomputed in the
// same transaction.
func RecordQuestionGradeHandler(ledger *grading.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordGradeReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		if err := assertAttemptGradable(r, ledger, req.AttemptID); err != nil {
			writeError(w, err)
			return
		}
		g, err := ledger.RecordGrade(r.Context(), grading.RecordGradeInput{
			AttemptID:      req.AttemptID,
			QuestionID:     req.QuestionID,
			MarksAwarded:   req.MarksAwarded,
			MaxMarks:       req.MaxMarks,
			TeacherComment: req.TeacherComment,
			GradedBy:       rbac.SubjectFromContext(r.Context()),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

type calculateGradeReq struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
	Term      string `json:"term" validate:"required,oneof=FIRST SECOND THIRD"`
}

// POST /grades/calculate
// Recomputes the subject grade for the (student, subject, program, term)
// key from all CA and EXAM attempts.
func CalculateGradeHandler(ledger *grading.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calculateGradeReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		if _, err := term.ParseName(req.Term); err != nil {
			writeError(w, err)
			return
		}
		ctx := r.Context()
		caller := rbac.SubjectFromContext(ctx)
		role := rbac.RoleFromContext(ctx)
		if err := ledger.AssertCanGrade(ctx, caller, role, req.SubjectID, req.ProgramID); err != nil {
			writeError(w, err)
			return
		}
		g, err := ledger.CalculateGrade(ctx, grading.CalcInput{
			StudentID: req.StudentID,
			SubjectID: req.SubjectID,
			ProgramID: req.ProgramID,
			Term:      req.Term,
			TeacherID: caller,
			GradedBy:  caller,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// assertAttemptGradable resolves the attempt's subject and applies the
// uniform teacher-assignment check.
func assertAttemptGradable(r *http.Request, ledger *grading.SQLStore, attemptID string) error {
	ctx := r.Context()
	subjectID, programID, err := ledger.SubjectForAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	return ledger.AssertCanGrade(ctx, rbac.SubjectFromContext(ctx), rbac.RoleFromContext(ctx), subjectID, programID)
}
