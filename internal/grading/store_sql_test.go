package grading

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/db"
)

func newTestStore(t *testing.T, name string) (*SQLStore, *sql.DB) {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewSQLStore(dbh, "sqlite"), dbh
}

func mustExec(t *testing.T, dbh *sql.DB, q string, args ...interface{}) {
	t.Helper()
	if _, err := dbh.Exec(q, args...); err != nil {
		t.Fatalf("exec %q: %v", q, err)
	}
}

func seedEssayAttempt(t *testing.T, dbh *sql.DB) (attemptID string) {
	t.Helper()
	mustExec(t, dbh, `
		INSERT INTO exams (id, title, subject_id, program_id, exam_type, term, created_by, questions_json, created_at)
		VALUES ('e1','Essay Test','math','p1','CA','FIRST','t1',
		        '[{"id":"q1","type":"essay","text":"a","marks":10},{"id":"q2","type":"essay","text":"b","marks":5}]',1)`)
	mustExec(t, dbh, `
		INSERT INTO attempts (id, exam_id, user_id, status, score, responses_json, started_at)
		VALUES ('a1','e1','s1','submitted',NULL,'{"q1":"some text"}',1)`)
	return "a1"
}

func attemptScore(t *testing.T, dbh *sql.DB, attemptID string) sql.NullFloat64 {
	t.Helper()
	var score sql.NullFloat64
	if err := dbh.QueryRow(`SELECT score FROM attempts WHERE id=$1`, attemptID).Scan(&score); err != nil {
		t.Fatalf("read score: %v", err)
	}
	return score
}

func TestRecordGradeRecomputesAttemptScore(t *testing.T) {
	store, dbh := newTestStore(t, "grading_recompute")
	ctx := context.Background()
	attemptID := seedEssayAttempt(t, dbh)

	// Ungraded attempt: NULL score, not zero.
	if s := attemptScore(t, dbh, attemptID); s.Valid {
		t.Fatalf("ungraded attempt score = %v, want NULL", s.Float64)
	}

	if _, err := store.RecordGrade(ctx, RecordGradeInput{
		AttemptID: attemptID, QuestionID: "q1", MarksAwarded: 7, GradedBy: "t1",
	}); err != nil {
		t.Fatal(err)
	}
	if s := attemptScore(t, dbh, attemptID); !s.Valid || s.Float64 != 7 {
		t.Fatalf("score after first grade = %+v, want 7", s)
	}

	if _, err := store.RecordGrade(ctx, RecordGradeInput{
		AttemptID: attemptID, QuestionID: "q2", MarksAwarded: 3, GradedBy: "t1",
	}); err != nil {
		t.Fatal(err)
	}
	if s := attemptScore(t, dbh, attemptID); !s.Valid || s.Float64 != 10 {
		t.Fatalf("score after second grade = %+v, want 10", s)
	}

	// Re-grading replaces the old marks; the score is a full recompute,
	// never an increment.
	if _, err := store.RecordGrade(ctx, RecordGradeInput{
		AttemptID: attemptID, QuestionID: "q1", MarksAwarded: 5, GradedBy: "t2",
	}); err != nil {
		t.Fatal(err)
	}
	if s := attemptScore(t, dbh, attemptID); !s.Valid || s.Float64 != 8 {
		t.Fatalf("score after re-grade = %+v, want 8", s)
	}
}

func TestRecordGradeMaxMarksFixedAtFirstGrading(t *testing.T) {
	store, dbh := newTestStore(t, "grading_maxmarks")
	ctx := context.Background()
	attemptID := seedEssayAttempt(t, dbh)

	// MaxMarks omitted: defaults to the question's marks.
	g, err := store.RecordGrade(ctx, RecordGradeInput{
		AttemptID: attemptID, QuestionID: "q1", MarksAwarded: 6, GradedBy: "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.MaxMarks != 10 {
		t.Fatalf("MaxMarks = %v, want question marks 10", g.MaxMarks)
	}

	g, err = store.RecordGrade(ctx, RecordGradeInput{
		AttemptID: attemptID, QuestionID: "q1", MarksAwarded: 9, MaxMarks: 99,
		TeacherComment: "better", GradedBy: "t2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.MaxMarks != 10 {
		t.Fatalf("MaxMarks after re-grade = %v, want 10 unchanged", g.MaxMarks)
	}
	if g.MarksAwarded != 9 || g.GradedBy != "t2" || g.TeacherComment != "better" {
		t.Fatalf("re-grade did not overwrite marks/grader/comment: %+v", g)
	}
}

func TestRecordGradeUnknownQuestion(t *testing.T) {
	store, dbh := newTestStore(t, "grading_unknown_q")
	attemptID := seedEssayAttempt(t, dbh)

	_, err := store.RecordGrade(context.Background(), RecordGradeInput{
		AttemptID: attemptID, QuestionID: "nope", MarksAwarded: 1, GradedBy: "t1",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
