package http

import (
	"net/http"
	"strings"

	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/rbac"
)

// GET /grades?studentId=&subjectId=&programId=&term=
// Students are scoped to their own rows regardless of the filter.
func ListGradesHandler(ledger *grading.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		f := grading.GradeFilter{
			StudentID: strings.TrimSpace(r.URL.Query().Get("studentId")),
			SubjectID: strings.TrimSpace(r.URL.Query().Get("subjectId")),
			ProgramID: strings.TrimSpace(r.URL.Query().Get("programId")),
			Term:      strings.TrimSpace(r.URL.Query().Get("term")),
		}
		if !rbac.Staff(role) {
			f.StudentID = sub
		}

		grades, err := ledger.ListGrades(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grades)
	}
}
