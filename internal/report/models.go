package report

import "github.com/classpoint/classpoint/internal/grading"

// Report is the persisted aggregate of one student's subject grades for a
// (student, program, term) key. It is created lazily on first request and
// then served as-is: a term report, once issued, is frozen.
type Report struct {
	ID            string  `json:"id"`
	StudentID     string  `json:"student_id"`
	ProgramID     string  `json:"program_id"`
	Term          string  `json:"term"`
	TotalSubjects int     `json:"total_subjects"`
	TotalScore    float64 `json:"total_score"`
	AverageScore  float64 `json:"average_score"`
	Letter        string  `json:"letter"`
	CreatedAt     int64   `json:"created_at"`
}

// QuestionResult is one graded question inside the detailed view.
type QuestionResult struct {
	QuestionID     string  `json:"question_id"`
	MarksAwarded   float64 `json:"marks_awarded"`
	MaxMarks       float64 `json:"max_marks"`
	TeacherComment string  `json:"teacher_comment,omitempty"`
}

type AttemptDetail struct {
	AttemptID string           `json:"attempt_id"`
	ExamID    string           `json:"exam_id"`
	ExamTitle string           `json:"exam_title"`
	ExamType  string           `json:"exam_type"`
	Score     *float64         `json:"score"`
	Questions []QuestionResult `json:"questions"`
}

type SubjectDetail struct {
	SubjectID string          `json:"subject_id"`
	Attempts  []AttemptDetail `json:"attempts"`
}

// TermBlock groups one term's grades inside the yearly view.
type TermBlock struct {
	Term         string          `json:"term"`
	Grades       []grading.Grade `json:"grades"`
	TotalScore   float64         `json:"total_score"`
	AverageScore float64         `json:"average_score"`
}

// YearView accompanies a THIRD-term report: all three terms' grades plus
// a flattened yearly mean.
type YearView struct {
	Terms         []TermBlock `json:"terms"`
	YearlyAverage float64     `json:"yearly_average"`
}

// Result is what a report request returns. Details and AllTerms are
// derived views, never persisted.
type Result struct {
	Report   Report          `json:"report"`
	Grades   []grading.Grade `json:"grades"`
	Details  []SubjectDetail `json:"details,omitempty"`
	AllTerms *YearView       `json:"all_terms,omitempty"`
}
