package report

import (
	"context"
	"database/sql"
	"errors"

	"github.com/classpoint/classpoint/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) GradesFor(ctx context.Context, studentID, programID, termName string) ([]grading.Grade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, subject_id, program_id, term, ca_score, exam_score, total_score, letter, teacher_id, graded_by, updated_at
		FROM grades
		WHERE student_id=$1 AND program_id=$2 AND term=$3
		ORDER BY subject_id`,
		studentID, programID, termName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []grading.Grade{}
	for rows.Next() {
		var g grading.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.ProgramID, &g.Term,
			&g.CAScore, &g.ExamScore, &g.TotalScore, &g.Letter,
			&g.TeacherID, &g.GradedBy, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetReport(ctx context.Context, studentID, programID, termName string) (Report, bool, error) {
	var r Report
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, program_id, term, total_subjects, total_score, average_score, letter, created_at
		FROM reports
		WHERE student_id=$1 AND program_id=$2 AND term=$3`,
		studentID, programID, termName,
	).Scan(&r.ID, &r.StudentID, &r.ProgramID, &r.Term,
		&r.TotalSubjects, &r.TotalScore, &r.AverageScore, &r.Letter, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	return r, true, nil
}

func (s *SQLStore) PutReport(ctx context.Context, r Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, student_id, program_id, term, total_subjects, total_score, average_score, letter, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (student_id, program_id, term) DO NOTHING`,
		r.ID, r.StudentID, r.ProgramID, r.Term,
		r.TotalSubjects, r.TotalScore, r.AverageScore, r.Letter, r.CreatedAt)
	return err
}

// SubjectDetails re-derives the question-level breakdown behind each
// subject grade straight from attempts and the question-grade ledger.
func (s *SQLStore) SubjectDetails(ctx context.Context, studentID, programID, termName string) ([]SubjectDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.subject_id, e.id, e.title, e.exam_type, a.id, a.score,
		       qg.question_id, qg.marks_awarded, qg.max_marks, qg.teacher_comment
		FROM attempts a
		JOIN exams e ON e.id = a.exam_id
		LEFT JOIN question_grades qg ON qg.attempt_id = a.id
		WHERE a.user_id=$1 AND e.program_id=$2 AND e.term=$3
		ORDER BY e.subject_id, a.id, qg.question_id`,
		studentID, programID, termName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []SubjectDetail
	var curSubject *SubjectDetail
	var curAttempt *AttemptDetail

	flushAttempt := func() {
		if curAttempt != nil && curSubject != nil {
			curSubject.Attempts = append(curSubject.Attempts, *curAttempt)
			curAttempt = nil
		}
	}
	flushSubject := func() {
		flushAttempt()
		if curSubject != nil {
			details = append(details, *curSubject)
			curSubject = nil
		}
	}

	for rows.Next() {
		var subjectID, examID, examTitle, examType, attemptID string
		var score sql.NullFloat64
		var questionID sql.NullString
		var awarded, max sql.NullFloat64
		var comment sql.NullString
		if err := rows.Scan(&subjectID, &examID, &examTitle, &examType, &attemptID, &score,
			&questionID, &awarded, &max, &comment); err != nil {
			return nil, err
		}

		if curSubject == nil || curSubject.SubjectID != subjectID {
			flushSubject()
			curSubject = &SubjectDetail{SubjectID: subjectID}
		}
		if curAttempt == nil || curAttempt.AttemptID != attemptID {
			flushAttempt()
			curAttempt = &AttemptDetail{
				AttemptID: attemptID,
				ExamID:    examID,
				ExamTitle: examTitle,
				ExamType:  examType,
			}
			if score.Valid {
				v := score.Float64
				curAttempt.Score = &v
			}
		}
		if questionID.Valid {
			curAttempt.Questions = append(curAttempt.Questions, QuestionResult{
				QuestionID:     questionID.String,
				MarksAwarded:   awarded.Float64,
				MaxMarks:       max.Float64,
				TeacherComment: comment.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	flushSubject()
	return details, nil
}
