package exam

import "context"

type ListOpts struct {
	SubjectID  string
	ProgramID  string
	Term       string
	ExamType   string
	Limit      int
	Offset     int
	ViewerID   string
	ViewerRole string // "student" | "teacher" | "admin"
}

type AttemptListOpts struct {
	ExamID   string // filter by exam
	UserID   string // filter by student
	Status   string // optional: in_progress|submitted
	Ungraded bool   // score IS NULL, not score == 0
	Limit    int
	Offset   int
}

type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)      // student-safe (no answer flags)
	GetExamAdmin(ctx context.Context, id string) (Exam, error) // full exam, for teachers/admins
	ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error)

	NewAttempt(ctx context.Context, examID, userID string) (Attempt, error)
	SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error)
	Submit(ctx context.Context, attemptID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
