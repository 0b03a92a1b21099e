package grading

// Q is a minimal view of a question needed for grading.
// Keep this in sync with the exam package's question serialization.
type Q struct {
	ID        string
	Type      string // mcq, truefalse, essay, structured
	Marks     float64
	AnswerKey []string // correct option IDs, mcq/truefalse only
}

// AutoGradable reports whether a question type can be scored without a
// teacher. Essay and structured questions always need manual marks.
func AutoGradable(qtype string) bool {
	return qtype == "mcq" || qtype == "truefalse"
}

// AutoGrade scores an objective question against its answer key. ok is
// false when the question type requires manual grading.
func AutoGrade(q Q, response interface{}) (awarded float64, ok bool) {
	if !AutoGradable(q.Type) {
		return 0, false
	}
	resp, isStr := response.(string)
	if !isStr {
		return 0, true
	}
	for _, k := range q.AnswerKey {
		if resp == k {
			return q.Marks, true
		}
	}
	return 0, true
}

// AttemptTotals is one attempt's summed question grades.
type AttemptTotals struct {
	Awarded float64
	Max     float64
}

// Percent converts summed marks into a percentage, treating 0/0 as 0.
func (t AttemptTotals) Percent() float64 {
	if t.Max == 0 {
		return 0
	}
	return t.Awarded / t.Max * 100
}

const (
	caCeiling   = 40.0
	examCeiling = 60.0
)

// Blend combines CA and EXAM attempt totals into the subject score bands.
// The CA band is the average attempt percentage scaled to 40 points, the
// EXAM band the same scaled to 60. A band with no attempts contributes 0,
// so total is always within [0, 100].
func Blend(ca, exam []AttemptTotals) (caScore, examScore, total float64) {
	caScore = bandScore(ca, caCeiling)
	examScore = bandScore(exam, examCeiling)
	return caScore, examScore, caScore + examScore
}

func bandScore(attempts []AttemptTotals, ceiling float64) float64 {
	if len(attempts) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range attempts {
		sum += t.Percent()
	}
	avg := sum / float64(len(attempts))
	score := avg * ceiling / 100
	if score > ceiling {
		score = ceiling
	}
	return score
}

// LetterGrade maps a 0-100 score onto a letter. Lower bounds are inclusive.
func LetterGrade(score float64) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
