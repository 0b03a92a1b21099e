package http

import (
	"database/sql"
	"net/http"

	"github.com/classpoint/classpoint/internal/apperr"
)

type assignTeacherReq struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
}

// POST /admin/assignments
// Records that a teacher is responsible for a subject within a program.
// Grading endpoints consult these rows.
func AssignTeacherHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignTeacherReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		ctx := r.Context()

		var role string
		err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, req.TeacherID).Scan(&role)
		if err == sql.ErrNoRows {
			writeError(w, apperr.NotFound("teacher not found"))
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if role != "teacher" && role != "admin" {
			writeError(w, apperr.BadRequest("user is not a teacher"))
			return
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO teacher_assignments (teacher_id, subject_id, program_id)
			VALUES ($1,$2,$3)
			ON CONFLICT (teacher_id, subject_id, program_id) DO NOTHING`,
			req.TeacherID, req.SubjectID, req.ProgramID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"teacher_id": req.TeacherID,
			"subject_id": req.SubjectID,
			"program_id": req.ProgramID,
		})
	}
}

// GET /admin/assignments?teacherId=
func ListAssignmentsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teacherID := r.URL.Query().Get("teacherId")
		var rows *sql.Rows
		var err error
		if teacherID == "" {
			rows, err = db.QueryContext(r.Context(),
				`SELECT teacher_id, subject_id, program_id FROM teacher_assignments ORDER BY teacher_id`)
		} else {
			rows, err = db.QueryContext(r.Context(),
				`SELECT teacher_id, subject_id, program_id FROM teacher_assignments WHERE teacher_id=$1`, teacherID)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		defer rows.Close()
		out := []map[string]string{}
		for rows.Next() {
			var t, s, p string
			if err := rows.Scan(&t, &s, &p); err != nil {
				writeError(w, err)
				return
			}
			out = append(out, map[string]string{"teacher_id": t, "subject_id": s, "program_id": p})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /admin/assignments
func UnassignTeacherHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignTeacherReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !checkStruct(w, &req) {
			return
		}
		res, err := db.ExecContext(r.Context(), `
			DELETE FROM teacher_assignments
			WHERE teacher_id=$1 AND subject_id=$2 AND program_id=$3`,
			req.TeacherID, req.SubjectID, req.ProgramID)
		if err != nil {
			writeError(w, err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, apperr.NotFound("assignment not found"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
