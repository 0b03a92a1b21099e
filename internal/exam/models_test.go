package exam

import "testing"

func TestQuestionAnswerKey(t *testing.T) {
	q := Question{
		ID:   "q1",
		Type: "mcq",
		Options: []Option{
			{ID: "a", Text: "wrong"},
			{ID: "b", Text: "right", IsCorrect: true},
			{ID: "c", Text: "also right", IsCorrect: true},
		},
	}
	keys := q.AnswerKey()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Fatalf("AnswerKey() = %v, want [b c]", keys)
	}

	essay := Question{ID: "q2", Type: "essay"}
	if got := essay.AnswerKey(); got != nil {
		t.Fatalf("essay AnswerKey() = %v, want nil", got)
	}
}
