package term

import "github.com/classpoint/classpoint/internal/apperr"

// Term names within an academic year.
const (
	First  = "FIRST"
	Second = "SECOND"
	Third  = "THIRD"
)

func ValidName(name string) bool {
	return name == First || name == Second || name == Third
}

func ParseName(name string) (string, error) {
	if !ValidName(name) {
		return "", apperr.BadRequestf("term must be one of FIRST, SECOND, THIRD; got %q", name)
	}
	return name, nil
}

// AcademicTerm is independently activatable and publishable: activation
// marks the term the school currently operates in, publication releases
// its reports to students. The two flags combine freely.
type AcademicTerm struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"` // FIRST|SECOND|THIRD
	Year        string  `json:"year"`
	StartDate   int64   `json:"start_date"`
	EndDate     int64   `json:"end_date"`
	IsActive    bool    `json:"is_active"`
	IsPublished bool    `json:"is_published"`
	PublishedAt *int64  `json:"published_at,omitempty"`
	PublishedBy *string `json:"published_by,omitempty"`
}
