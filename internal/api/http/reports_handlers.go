package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/report"
	"github.com/classpoint/classpoint/internal/term"
)

// GET /reports?studentId=&programId=&term=&detailed=
// Runs (or fetches) the term report builder. Students may only request
// their own report.
func GetReportHandler(builder *report.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		studentID := strings.TrimSpace(q.Get("studentId"))
		programID := strings.TrimSpace(q.Get("programId"))
		termName := strings.TrimSpace(q.Get("term"))
		if studentID == "" || programID == "" || termName == "" {
			writeError(w, apperr.BadRequest("studentId, programId and term are required"))
			return
		}
		if _, err := term.ParseName(termName); err != nil {
			writeError(w, err)
			return
		}

		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		if !rbac.Staff(role) && studentID != sub {
			writeError(w, apperr.Forbidden("students may only view their own report"))
			return
		}

		detailed := q.Get("detailed") == "true" || q.Get("detailed") == "1"
		res, err := builder.GetOrBuild(r.Context(), studentID, programID, termName, detailed)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /reports/student/{studentID}?term=&year=&programId=
// The student-facing report. For students the term publication gate
// applies: until an academic term row for (term, year) is published the
// report is withheld with an explicit "not yet published" response, which
// is a release-state message, not a permissions one. Staff bypass the
// gate and can inspect unpublished data.
func StudentReportHandler(builder *report.Builder, terms *term.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, "studentID")
		q := r.URL.Query()
		termName := strings.TrimSpace(q.Get("term"))
		year := strings.TrimSpace(q.Get("year"))
		programID := strings.TrimSpace(q.Get("programId"))
		if termName == "" || year == "" || programID == "" {
			writeError(w, apperr.BadRequest("term, year and programId are required"))
			return
		}
		if _, err := term.ParseName(termName); err != nil {
			writeError(w, err)
			return
		}

		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		if !rbac.Staff(role) {
			if studentID != sub {
				writeError(w, apperr.Forbidden("students may only view their own report"))
				return
			}
			published, err := terms.IsPublished(r.Context(), termName, year)
			if err != nil {
				writeError(w, err)
				return
			}
			if !published {
				writeJSON(w, http.StatusForbidden, map[string]interface{}{
					"error":   "results for this term have not been published yet",
					"hasData": false,
				})
				return
			}
		}

		res, err := builder.GetOrBuild(r.Context(), studentID, programID, termName, true)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /reports/export?programId=&term=
// Streams the program's grade sheet as an xlsx workbook.
func ExportGradesHandler(store *report.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		programID := strings.TrimSpace(r.URL.Query().Get("programId"))
		termName := strings.TrimSpace(r.URL.Query().Get("term"))
		if programID == "" || termName == "" {
			writeError(w, apperr.BadRequest("programId and term are required"))
			return
		}
		if _, err := term.ParseName(termName); err != nil {
			writeError(w, err)
			return
		}
		f, err := store.ExportGradesXLSX(r.Context(), programID, termName)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="grades_`+programID+`_`+termName+`.xlsx"`)
		if err := f.Write(w); err != nil {
			// headers already sent; nothing sensible left to return
			return
		}
	}
}
