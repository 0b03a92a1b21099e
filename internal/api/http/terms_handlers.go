package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/term"
)

type createTermReq struct {
	Name      string `json:"name" validate:"required,oneof=FIRST SECOND THIRD"`
	Year      string `json:"year" validate:"required"`
	StartDate int64  `json:"start_date" validate:"required"`
	EndDate   int64  `json:"end_date" validate:"required"`
	IsActive  bool   `json:"is_active"`
}

// POST /admin/terms
func CreateTermHandler(terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTermReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		if req.EndDate <= req.StartDate {
			writeError(w, apperr.BadRequest("end_date must be after start_date"))
			return
		}
		t, err := terms.Create(r.Context(), term.AcademicTerm{
			Name:      req.Name,
			Year:      req.Year,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			IsActive:  req.IsActive,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// GET /admin/terms
func ListTermsHandler(terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := terms.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /admin/terms/{termID}/activate
// Exclusive activation: at most one term is active system-wide.
func ActivateTermHandler(terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "termID")
		if err := terms.Activate(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		t, err := terms.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /admin/terms/{termID}/publish and /unpublish
func PublishTermHandler(terms *term.SQLStore, publish bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "termID")
		by := rbac.SubjectFromContext(r.Context())
		if err := terms.SetPublished(r.Context(), id, publish, by); err != nil {
			writeError(w, err)
			return
		}
		t, err := terms.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

type bulkPublishReq struct {
	TermIDs []string `json:"term_ids" validate:"required,min=1"`
	Action  string   `json:"action" validate:"required,oneof=publish unpublish"`
}

// POST /admin/terms/bulk-publish
func BulkPublishHandler(terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkPublishReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		by := rbac.SubjectFromContext(r.Context())
		n, err := terms.BulkPublish(r.Context(), req.TermIDs, req.Action == "publish", by)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"affected": n})
	}
}

// DELETE /admin/terms/{termID}
// Refused while exams still reference the term.
func DeleteTermHandler(terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "termID")
		if err := terms.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}
