package grading

// QuestionGrade is a teacher's (or the auto-grader's) marks for one
// question within one attempt. Keyed by (attempt_id, question_id).
type QuestionGrade struct {
	AttemptID      string  `json:"attempt_id"`
	QuestionID     string  `json:"question_id"`
	MarksAwarded   float64 `json:"marks_awarded"`
	MaxMarks       float64 `json:"max_marks"`
	TeacherComment string  `json:"teacher_comment,omitempty"`
	StudentAnswer  string  `json:"student_answer,omitempty"`
	GradedBy       string  `json:"graded_by"`
	GradedAt       int64   `json:"graded_at"`
}

// Grade is the derived subject grade for a (student, subject, program,
// term) key. Fully recomputed on every calculation call.
type Grade struct {
	ID         string  `json:"id"`
	StudentID  string  `json:"student_id"`
	SubjectID  string  `json:"subject_id"`
	ProgramID  string  `json:"program_id"`
	Term       string  `json:"term"`
	CAScore    float64 `json:"ca_score"`
	ExamScore  float64 `json:"exam_score"`
	TotalScore float64 `json:"total_score"`
	Letter     string  `json:"letter"`
	TeacherID  string  `json:"teacher_id,omitempty"`
	GradedBy   string  `json:"graded_by,omitempty"`
	UpdatedAt  int64   `json:"updated_at"`
}

type RecordGradeInput struct {
	AttemptID      string
	QuestionID     string
	MarksAwarded   float64
	MaxMarks       float64
	TeacherComment string
	GradedBy       string
}

type CalcInput struct {
	StudentID string
	SubjectID string
	ProgramID string
	Term      string
	TeacherID string
	GradedBy  string
}

type GradeFilter struct {
	StudentID string
	SubjectID string
	ProgramID string
	Term      string
}

// AttemptItem is one question of an attempt as shown in the grading UI:
// the question, the student's response and any existing grade.
type AttemptItem struct {
	QuestionID string         `json:"question_id"`
	Type       string         `json:"type"`
	Text       string         `json:"text"`
	Marks      float64        `json:"marks"`
	Response   interface{}    `json:"response,omitempty"`
	Grade      *QuestionGrade `json:"grade,omitempty"`
}

type AttemptGradingView struct {
	AttemptID   string        `json:"attempt_id"`
	ExamID      string        `json:"exam_id"`
	ExamTitle   string        `json:"exam_title"`
	StudentID   string        `json:"student_id"`
	Status      string        `json:"status"`
	Score       *float64      `json:"score"`
	Items       []AttemptItem `json:"items"`
	GradedCount int           `json:"graded_count"`
}
