package grading

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLetterGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, "A"},
		{80, "A"},
		{79.99, "B"},
		{70, "B"},
		{69.99, "C"},
		{60, "C"},
		{59.99, "D"},
		{50, "D"},
		{49.99, "F"},
		{0, "F"},
	}
	for _, c := range cases {
		if got := LetterGrade(c.score); got != c.want {
			t.Errorf("LetterGrade(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestPercentZeroMax(t *testing.T) {
	if got := (AttemptTotals{Awarded: 0, Max: 0}).Percent(); got != 0 {
		t.Fatalf("0/0 percent = %v, want 0", got)
	}
	if got := (AttemptTotals{Awarded: 5, Max: 10}).Percent(); !almostEqual(got, 50) {
		t.Fatalf("5/10 percent = %v, want 50", got)
	}
}

func TestBlendWorkedExample(t *testing.T) {
	// CA 15/20 = 75% -> 30 of 40; EXAM 45/60 = 75% -> 45 of 60.
	ca := []AttemptTotals{{Awarded: 15, Max: 20}}
	exam := []AttemptTotals{{Awarded: 45, Max: 60}}
	caScore, examScore, total := Blend(ca, exam)
	if !almostEqual(caScore, 30) {
		t.Errorf("caScore = %v, want 30", caScore)
	}
	if !almostEqual(examScore, 45) {
		t.Errorf("examScore = %v, want 45", examScore)
	}
	if !almostEqual(total, 75) {
		t.Errorf("total = %v, want 75", total)
	}
	if LetterGrade(total) != "B" {
		t.Errorf("letter = %q, want B", LetterGrade(total))
	}
}

func TestBlendEmptyBands(t *testing.T) {
	caScore, examScore, total := Blend(nil, nil)
	if caScore != 0 || examScore != 0 || total != 0 {
		t.Fatalf("empty bands = (%v, %v, %v), want zeros", caScore, examScore, total)
	}

	// Only CA attempts: EXAM band contributes nothing.
	caScore, examScore, total = Blend([]AttemptTotals{{Awarded: 20, Max: 20}}, nil)
	if !almostEqual(caScore, 40) || examScore != 0 || !almostEqual(total, 40) {
		t.Fatalf("CA-only = (%v, %v, %v), want (40, 0, 40)", caScore, examScore, total)
	}
}

func TestBlendAveragesAcrossAttempts(t *testing.T) {
	// Two CA attempts at 100% and 50% average to 75% -> 30 of 40.
	ca := []AttemptTotals{
		{Awarded: 10, Max: 10},
		{Awarded: 5, Max: 10},
	}
	caScore, _, _ := Blend(ca, nil)
	if !almostEqual(caScore, 30) {
		t.Fatalf("caScore = %v, want 30", caScore)
	}
}

func TestBlendCapsAtCeiling(t *testing.T) {
	// Over-awarded marks must not push a band past its ceiling.
	ca := []AttemptTotals{{Awarded: 15, Max: 10}}
	exam := []AttemptTotals{{Awarded: 90, Max: 60}}
	caScore, examScore, total := Blend(ca, exam)
	if caScore > 40 || examScore > 60 || total > 100 {
		t.Fatalf("capped blend = (%v, %v, %v), exceeds ceilings", caScore, examScore, total)
	}
	if !almostEqual(caScore, 40) || !almostEqual(examScore, 60) {
		t.Fatalf("capped blend = (%v, %v), want (40, 60)", caScore, examScore)
	}
}

func TestAutoGrade(t *testing.T) {
	q := Q{ID: "q1", Type: "mcq", Marks: 5, AnswerKey: []string{"b"}}

	if awarded, ok := AutoGrade(q, "b"); !ok || !almostEqual(awarded, 5) {
		t.Errorf("correct answer = (%v, %v), want (5, true)", awarded, ok)
	}
	if awarded, ok := AutoGrade(q, "a"); !ok || awarded != 0 {
		t.Errorf("wrong answer = (%v, %v), want (0, true)", awarded, ok)
	}
	if awarded, ok := AutoGrade(q, 42); !ok || awarded != 0 {
		t.Errorf("non-string answer = (%v, %v), want (0, true)", awarded, ok)
	}

	essay := Q{ID: "q2", Type: "essay", Marks: 10}
	if _, ok := AutoGrade(essay, "anything"); ok {
		t.Error("essay must not auto-grade")
	}

	tf := Q{ID: "q3", Type: "truefalse", Marks: 2, AnswerKey: []string{"true"}}
	if awarded, ok := AutoGrade(tf, "true"); !ok || !almostEqual(awarded, 2) {
		t.Errorf("truefalse = (%v, %v), want (2, true)", awarded, ok)
	}
}

func TestAutoGradable(t *testing.T) {
	for qtype, want := range map[string]bool{
		"mcq":        true,
		"truefalse":  true,
		"essay":      false,
		"structured": false,
		"":           false,
	} {
		if got := AutoGradable(qtype); got != want {
			t.Errorf("AutoGradable(%q) = %v, want %v", qtype, got, want)
		}
	}
}
