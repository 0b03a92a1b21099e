package grading

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/classpoint/classpoint/internal/apperr"
)

// SQLStore is the question-grade ledger plus the subject grade
// calculator, backed by the shared relational store.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// questionDoc mirrors the exam package's question serialization; only the
// fields grading needs are decoded.
type questionDoc struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Text    string  `json:"text"`
	Marks   float64 `json:"marks"`
	Options []struct {
		ID        string `json:"id"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"options"`
}

func (q questionDoc) answerKey() []string {
	var keys []string
	for _, o := range q.Options {
		if o.IsCorrect {
			keys = append(keys, o.ID)
		}
	}
	return keys
}

type attemptRow struct {
	ID        string
	ExamID    string
	UserID    string
	Status    string
	Score     sql.NullFloat64
	Responses map[string]interface{}
}

func (s *SQLStore) loadAttempt(ctx context.Context, attemptID string) (attemptRow, error) {
	var a attemptRow
	var rjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, exam_id, user_id, status, score, responses_json FROM attempts WHERE id=$1`,
		attemptID,
	).Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.Score, &rjson)
	if errors.Is(err, sql.ErrNoRows) {
		return attemptRow{}, apperr.NotFound("attempt not found")
	}
	if err != nil {
		return attemptRow{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
		a.Responses = map[string]interface{}{}
	}
	return a, nil
}

func (s *SQLStore) loadQuestions(ctx context.Context, examID string) (string, []questionDoc, error) {
	var title, qjson string
	err := s.db.QueryRowContext(ctx,
		`SELECT title, questions_json FROM exams WHERE id=$1`, examID,
	).Scan(&title, &qjson)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, apperr.NotFound("exam not found")
	}
	if err != nil {
		return "", nil, err
	}
	var qs []questionDoc
	if err := json.Unmarshal([]byte(qjson), &qs); err != nil {
		return "", nil, fmt.Errorf("decode questions: %w", err)
	}
	return title, qs, nil
}

// RecordGrade upserts one question grade and recomputes the attempt
// score in the same transaction, so the cached total never drifts from
// the ledger. Re-grading overwrites marks, comment and grader; max_marks
// is fixed at first grading.
func (s *SQLStore) RecordGrade(ctx context.Context, in RecordGradeInput) (QuestionGrade, error) {
	a, err := s.loadAttempt(ctx, in.AttemptID)
	if err != nil {
		return QuestionGrade{}, err
	}
	_, questions, err := s.loadQuestions(ctx, a.ExamID)
	if err != nil {
		return QuestionGrade{}, err
	}
	var q *questionDoc
	for i := range questions {
		if questions[i].ID == in.QuestionID {
			q = &questions[i]
			break
		}
	}
	if q == nil {
		return QuestionGrade{}, apperr.NotFound("question not found on attempt's exam")
	}

	maxMarks := in.MaxMarks
	if maxMarks == 0 {
		maxMarks = q.Marks
	}
	answer := renderAnswer(a.Responses[in.QuestionID])
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return QuestionGrade{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO question_grades
			(attempt_id, question_id, marks_awarded, max_marks, teacher_comment, student_answer, graded_by, graded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			marks_awarded=EXCLUDED.marks_awarded,
			teacher_comment=EXCLUDED.teacher_comment,
			student_answer=EXCLUDED.student_answer,
			graded_by=EXCLUDED.graded_by,
			graded_at=EXCLUDED.graded_at`,
		in.AttemptID, in.QuestionID, in.MarksAwarded, maxMarks,
		in.TeacherComment, answer, in.GradedBy, now)
	if err != nil {
		return QuestionGrade{}, err
	}
	if err := recomputeAttemptScore(ctx, tx, in.AttemptID); err != nil {
		return QuestionGrade{}, err
	}
	if err := tx.Commit(); err != nil {
		return QuestionGrade{}, err
	}
	return s.getQuestionGrade(ctx, in.AttemptID, in.QuestionID)
}

// recomputeAttemptScore is a full read-modify-write over the ledger, not
// an increment. SUM over zero rows is NULL, which keeps an ungraded
// attempt distinguishable from a zero score.
func recomputeAttemptScore(ctx context.Context, tx *sql.Tx, attemptID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE attempts
		SET score = (SELECT SUM(marks_awarded) FROM question_grades WHERE attempt_id=$1)
		WHERE id=$1`, attemptID)
	return err
}

func (s *SQLStore) getQuestionGrade(ctx context.Context, attemptID, questionID string) (QuestionGrade, error) {
	var g QuestionGrade
	err := s.db.QueryRowContext(ctx, `
		SELECT attempt_id, question_id, marks_awarded, max_marks, teacher_comment, student_answer, graded_by, graded_at
		FROM question_grades WHERE attempt_id=$1 AND question_id=$2`,
		attemptID, questionID,
	).Scan(&g.AttemptID, &g.QuestionID, &g.MarksAwarded, &g.MaxMarks,
		&g.TeacherComment, &g.StudentAnswer, &g.GradedBy, &g.GradedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return QuestionGrade{}, apperr.NotFound("question grade not found")
	}
	return g, err
}

// AttemptItems assembles the grading view for one attempt: every exam
// question with the student's response and any existing grade.
func (s *SQLStore) AttemptItems(ctx context.Context, attemptID string) (AttemptGradingView, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return AttemptGradingView{}, err
	}
	title, questions, err := s.loadQuestions(ctx, a.ExamID)
	if err != nil {
		return AttemptGradingView{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT attempt_id, question_id, marks_awarded, max_marks, teacher_comment, student_answer, graded_by, graded_at
		FROM question_grades WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return AttemptGradingView{}, err
	}
	defer rows.Close()

	grades := map[string]QuestionGrade{}
	for rows.Next() {
		var g QuestionGrade
		if err := rows.Scan(&g.AttemptID, &g.QuestionID, &g.MarksAwarded, &g.MaxMarks,
			&g.TeacherComment, &g.StudentAnswer, &g.GradedBy, &g.GradedAt); err != nil {
			return AttemptGradingView{}, err
		}
		grades[g.QuestionID] = g
	}
	if err := rows.Err(); err != nil {
		return AttemptGradingView{}, err
	}

	view := AttemptGradingView{
		AttemptID: a.ID,
		ExamID:    a.ExamID,
		ExamTitle: title,
		StudentID: a.UserID,
		Status:    a.Status,
	}
	if a.Score.Valid {
		v := a.Score.Float64
		view.Score = &v
	}
	for _, q := range questions {
		item := AttemptItem{
			QuestionID: q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Marks:      q.Marks,
			Response:   a.Responses[q.ID],
		}
		if g, ok := grades[q.ID]; ok {
			gc := g
			item.Grade = &gc
			view.GradedCount++
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}

// AutoGradeSubmission grades every objective question of a freshly
// submitted attempt into the ledger and recomputes the score. Subjective
// questions are left for the teacher, so an all-essay attempt keeps a
// NULL score until manual grading.
func (s *SQLStore) AutoGradeSubmission(ctx context.Context, attemptID string) error {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	_, questions, err := s.loadQuestions(ctx, a.ExamID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	graded := 0
	for _, q := range questions {
		resp, has := a.Responses[q.ID]
		if !has {
			continue
		}
		awarded, ok := AutoGrade(Q{ID: q.ID, Type: q.Type, Marks: q.Marks, AnswerKey: q.answerKey()}, resp)
		if !ok {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_grades
				(attempt_id, question_id, marks_awarded, max_marks, teacher_comment, student_answer, graded_by, graded_at)
			VALUES ($1,$2,$3,$4,'',$5,'auto',$6)
			ON CONFLICT (attempt_id, question_id) DO UPDATE SET
				marks_awarded=EXCLUDED.marks_awarded,
				student_answer=EXCLUDED.student_answer,
				graded_by=EXCLUDED.graded_by,
				graded_at=EXCLUDED.graded_at`,
			attemptID, q.ID, awarded, q.Marks, renderAnswer(resp), now)
		if err != nil {
			return err
		}
		graded++
	}
	if graded > 0 {
		if err := recomputeAttemptScore(ctx, tx, attemptID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Str("attempt", attemptID).Int("auto_graded", graded).Msg("submission auto-graded")
	return nil
}

// CalculateGrade recomputes the subject grade for the 4-tuple key from
// scratch: every CA and EXAM attempt's ledger totals are blended into the
// 40/60 bands and the row is fully overwritten. Idempotent for unchanged
// underlying data. "No attempts yet" is a valid zero-valued state, not an
// error.
func (s *SQLStore) CalculateGrade(ctx context.Context, in CalcInput) (Grade, error) {
	caTotals, err := s.attemptTotals(ctx, in, "CA")
	if err != nil {
		return Grade{}, err
	}
	examTotals, err := s.attemptTotals(ctx, in, "EXAM")
	if err != nil {
		return Grade{}, err
	}

	caScore, examScore, total := Blend(caTotals, examTotals)
	letter := LetterGrade(total)
	now := time.Now().Unix()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO grades
			(id, student_id, subject_id, program_id, term, ca_score, exam_score, total_score, letter, teacher_id, graded_by, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (student_id, subject_id, program_id, term) DO UPDATE SET
			ca_score=EXCLUDED.ca_score,
			exam_score=EXCLUDED.exam_score,
			total_score=EXCLUDED.total_score,
			letter=EXCLUDED.letter,
			teacher_id=EXCLUDED.teacher_id,
			graded_by=EXCLUDED.graded_by,
			updated_at=EXCLUDED.updated_at`,
		uuid.NewString(), in.StudentID, in.SubjectID, in.ProgramID, in.Term,
		caScore, examScore, total, letter, in.TeacherID, in.GradedBy, now)
	if err != nil {
		return Grade{}, err
	}

	log.Info().
		Str("student", in.StudentID).Str("subject", in.SubjectID).Str("term", in.Term).
		Float64("ca", caScore).Float64("exam", examScore).Str("letter", letter).
		Msg("subject grade calculated")

	return s.getGrade(ctx, in.StudentID, in.SubjectID, in.ProgramID, in.Term)
}

func (s *SQLStore) attemptTotals(ctx context.Context, in CalcInput, examType string) ([]AttemptTotals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(SUM(qg.marks_awarded),0), COALESCE(SUM(qg.max_marks),0)
		FROM attempts a
		JOIN exams e ON e.id = a.exam_id
		LEFT JOIN question_grades qg ON qg.attempt_id = a.id
		WHERE a.user_id=$1 AND e.subject_id=$2 AND e.program_id=$3 AND e.term=$4 AND e.exam_type=$5
		GROUP BY a.id`,
		in.StudentID, in.SubjectID, in.ProgramID, in.Term, examType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptTotals
	for rows.Next() {
		var t AttemptTotals
		if err := rows.Scan(&t.Awarded, &t.Max); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) getGrade(ctx context.Context, studentID, subjectID, programID, term string) (Grade, error) {
	var g Grade
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, subject_id, program_id, term, ca_score, exam_score, total_score, letter, teacher_id, graded_by, updated_at
		FROM grades
		WHERE student_id=$1 AND subject_id=$2 AND program_id=$3 AND term=$4`,
		studentID, subjectID, programID, term,
	).Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.ProgramID, &g.Term,
		&g.CAScore, &g.ExamScore, &g.TotalScore, &g.Letter,
		&g.TeacherID, &g.GradedBy, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Grade{}, apperr.NotFound("grade not found")
	}
	return g, err
}

// ListGrades returns grade rows matching the filter, newest first.
func (s *SQLStore) ListGrades(ctx context.Context, f GradeFilter) ([]Grade, error) {
	q := `SELECT id, student_id, subject_id, program_id, term, ca_score, exam_score, total_score, letter, teacher_id, graded_by, updated_at FROM grades`
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("student_id", f.StudentID)
	add("subject_id", f.SubjectID)
	add("program_id", f.ProgramID)
	add("term", f.Term)
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Grade{}
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.ProgramID, &g.Term,
			&g.CAScore, &g.ExamScore, &g.TotalScore, &g.Letter,
			&g.TeacherID, &g.GradedBy, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AssertCanGrade is the single capability check applied at every grading
// and calculation entry point: admins always pass, teachers must hold a
// matching assignment for the subject and program.
func (s *SQLStore) AssertCanGrade(ctx context.Context, userID, role, subjectID, programID string) error {
	if role == "admin" {
		return nil
	}
	if role != "teacher" {
		return apperr.Forbidden("grading requires a teacher or admin role")
	}
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM teacher_assignments
		WHERE teacher_id=$1 AND subject_id=$2 AND program_id=$3`,
		userID, subjectID, programID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Forbidden("not assigned to this subject")
	}
	return err
}

// SubjectForAttempt resolves the (subject, program) an attempt belongs
// to, for the assignment check on the grading endpoints.
func (s *SQLStore) SubjectForAttempt(ctx context.Context, attemptID string) (subjectID, programID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT e.subject_id, e.program_id
		FROM attempts a JOIN exams e ON e.id = a.exam_id
		WHERE a.id=$1`, attemptID,
	).Scan(&subjectID, &programID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", apperr.NotFound("attempt not found")
	}
	return subjectID, programID, err
}

func renderAnswer(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
