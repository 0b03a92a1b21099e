package exam

// Exam types. CA counts toward the 40-point continuous-assessment band,
// EXAM toward the 60-point examination band.
const (
	TypeCA   = "CA"
	TypeEXAM = "EXAM"
)

// Academic term names.
const (
	TermFirst  = "FIRST"
	TermSecond = "SECOND"
	TermThird  = "THIRD"
)

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"` // mcq, truefalse, essay, structured
	Text    string   `json:"text"`
	Marks   float64  `json:"marks"`
	Options []Option `json:"options,omitempty"` // mcq/truefalse only
}

// AnswerKey returns the IDs of the correct options.
func (q Question) AnswerKey() []string {
	var keys []string
	for _, o := range q.Options {
		if o.IsCorrect {
			keys = append(keys, o.ID)
		}
	}
	return keys
}

type Exam struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	SubjectID      string     `json:"subject_id"`
	ProgramID      string     `json:"program_id"`
	LevelID        string     `json:"level_id,omitempty"`
	TrackID        string     `json:"track_id,omitempty"`
	ExamType       string     `json:"exam_type"` // CA|EXAM
	Term           string     `json:"term"`      // FIRST|SECOND|THIRD
	DurationSec    int        `json:"duration_sec"`
	AcademicTermID *string    `json:"academic_term_id,omitempty"` // nil: legacy, always visible
	CreatedBy      string     `json:"created_by"`
	IsPublished    bool       `json:"is_published"`
	Questions      []Question `json:"questions"`
	CreatedAt      int64      `json:"created_at,omitempty"`
}

type ExamSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SubjectID string `json:"subject_id"`
	ProgramID string `json:"program_id"`
	ExamType  string `json:"exam_type"`
	Term      string `json:"term"`
	CreatedAt int64  `json:"created_at"`
}

type Attempt struct {
	ID     string `json:"id"`
	ExamID string `json:"exam_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"` // in_progress|submitted
	// Score is nil until at least one question has been graded. A zero
	// score and an ungraded attempt are different states.
	Score       *float64               `json:"score"`
	Responses   map[string]interface{} `json:"responses"` // questionID -> response payload
	StartedAt   int64                  `json:"started_at"`
	SubmittedAt *int64                 `json:"submitted_at,omitempty"`
}
