package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	ledger *grading.SQLStore
}

func NewSQLStore(db *sql.DB, driver string, ledger *grading.SQLStore) *SQLStore {
	return &SQLStore{db: db, driver: driver, ledger: ledger}
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exams
			(id, title, subject_id, program_id, level_id, track_id, exam_type, term,
			 duration_sec, academic_term_id, created_by, is_published, questions_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			subject_id=EXCLUDED.subject_id,
			program_id=EXCLUDED.program_id,
			level_id=EXCLUDED.level_id,
			track_id=EXCLUDED.track_id,
			exam_type=EXCLUDED.exam_type,
			term=EXCLUDED.term,
			duration_sec=EXCLUDED.duration_sec,
			academic_term_id=EXCLUDED.academic_term_id,
			is_published=EXCLUDED.is_published,
			questions_json=EXCLUDED.questions_json`,
		e.ID, e.Title, e.SubjectID, e.ProgramID, e.LevelID, e.TrackID, e.ExamType, e.Term,
		e.DurationSec, e.AcademicTermID, e.CreatedBy, e.IsPublished, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) getExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, subject_id, program_id, level_id, track_id, exam_type, term,
		       duration_sec, academic_term_id, created_by, is_published, questions_json, created_at
		FROM exams WHERE id=$1`, id)
	var e Exam
	var qjson string
	err := row.Scan(&e.ID, &e.Title, &e.SubjectID, &e.ProgramID, &e.LevelID, &e.TrackID,
		&e.ExamType, &e.Term, &e.DurationSec, &e.AcademicTermID, &e.CreatedBy,
		&e.IsPublished, &qjson, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, apperr.NotFound("exam not found")
	}
	if err != nil {
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return Exam{}, err
	}
	return e, nil
}

// GetExam serves the student view: correctness flags are stripped.
func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.getExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	for i := range e.Questions {
		for j := range e.Questions[i].Options {
			e.Questions[i].Options[j].IsCorrect = false
		}
	}
	return e, nil
}

func (s *SQLStore) GetExamAdmin(ctx context.Context, id string) (Exam, error) {
	return s.getExam(ctx, id)
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error) {
	q := `SELECT id, title, subject_id, program_id, exam_type, term, created_at FROM exams`
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("subject_id", opts.SubjectID)
	add("program_id", opts.ProgramID)
	add("term", opts.Term)
	add("exam_type", opts.ExamType)
	// Students only see published exams; teachers additionally see their own drafts.
	switch opts.ViewerRole {
	case "student":
		conds = append(conds, "is_published=TRUE")
	case "teacher":
		args = append(args, opts.ViewerID)
		conds = append(conds, fmt.Sprintf("(is_published=TRUE OR created_by=$%d)", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY created_at DESC"
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ExamSummary{}
	for rows.Next() {
		var e ExamSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.SubjectID, &e.ProgramID, &e.ExamType, &e.Term, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NewAttempt creates the single attempt a student gets per exam. A second
// attempt against the same exam is rejected.
func (s *SQLStore) NewAttempt(ctx context.Context, examID, userID string) (Attempt, error) {
	var exist int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.NotFound("exam not found")
	}
	if err != nil {
		return Attempt{}, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM attempts WHERE exam_id=$1 AND user_id=$2`, examID, userID).Scan(&exist)
	if err == nil {
		return Attempt{}, apperr.Conflict("attempt already exists for this exam")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, err
	}

	id := uuid.NewString()
	resp := map[string]interface{}{}
	respJSON, _ := json.Marshal(resp)
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, exam_id, user_id, status, score, responses_json, started_at)
		VALUES ($1,$2,$3,'in_progress',NULL,$4,$5)`,
		id, examID, userID, string(respJSON), now)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{ID: id, ExamID: examID, UserID: userID, Status: "in_progress", Responses: resp, StartedAt: now}, nil
}

func (s *SQLStore) SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == "submitted" {
		return Attempt{}, apperr.Conflict("attempt already submitted")
	}
	if a.Responses == nil {
		a.Responses = map[string]interface{}{}
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	buf, _ := json.Marshal(a.Responses)
	_, err = s.db.ExecContext(ctx, `UPDATE attempts SET responses_json=$1 WHERE id=$2`, string(buf), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

// Submit auto-grades the attempt's objective questions into the
// question-grade ledger and then closes it. Grading runs first: if it
// fails the attempt stays open, and a retry re-runs the idempotent
// upserts. Essay/structured marks stay with the teacher.
func (s *SQLStore) Submit(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == "submitted" {
		return a, nil
	}
	if err := s.ledger.AutoGradeSubmission(ctx, attemptID); err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE attempts SET status='submitted', submitted_at=$1 WHERE id=$2`,
		time.Now().Unix(), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exam_id, user_id, status, score, responses_json, started_at, submitted_at
		FROM attempts WHERE id=$1`, id)
	var a Attempt
	var score sql.NullFloat64
	var submittedAt sql.NullInt64
	var rjson string
	err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &score, &rjson, &a.StartedAt, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.NotFound("attempt not found")
	}
	if err != nil {
		return Attempt{}, err
	}
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	if submittedAt.Valid {
		v := submittedAt.Int64
		a.SubmittedAt = &v
	}
	if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
		a.Responses = map[string]interface{}{}
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT id, exam_id, user_id, status, score, responses_json, started_at, submitted_at FROM attempts`
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("exam_id", opts.ExamID)
	add("user_id", opts.UserID)
	add("status", opts.Status)
	if opts.Ungraded {
		conds = append(conds, "score IS NULL")
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY started_at DESC"
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		var score sql.NullFloat64
		var submittedAt sql.NullInt64
		var rjson string
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &score, &rjson, &a.StartedAt, &submittedAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		if submittedAt.Valid {
			v := submittedAt.Int64
			a.SubmittedAt = &v
		}
		if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
			a.Responses = map[string]interface{}{}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
