package report

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/term"
)

type fakeStore struct {
	grades  map[string][]grading.Grade // keyed by term name
	reports map[string]Report          // keyed by student|program|term
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		grades:  map[string][]grading.Grade{},
		reports: map[string]Report{},
	}
}

func key(studentID, programID, termName string) string {
	return studentID + "|" + programID + "|" + termName
}

func (f *fakeStore) GradesFor(_ context.Context, _, _, termName string) ([]grading.Grade, error) {
	return f.grades[termName], nil
}

func (f *fakeStore) GetReport(_ context.Context, studentID, programID, termName string) (Report, bool, error) {
	r, ok := f.reports[key(studentID, programID, termName)]
	return r, ok, nil
}

func (f *fakeStore) PutReport(_ context.Context, r Report) error {
	f.puts++
	f.reports[key(r.StudentID, r.ProgramID, r.Term)] = r
	return nil
}

func (f *fakeStore) SubjectDetails(_ context.Context, _, _, _ string) ([]SubjectDetail, error) {
	return []SubjectDetail{{SubjectID: "math"}}, nil
}

func fixedNow() time.Time { return time.Unix(1700000000, 0) }

func grade(subject string, total float64) grading.Grade {
	return grading.Grade{
		SubjectID:  subject,
		TotalScore: total,
		Letter:     grading.LetterGrade(total),
	}
}

func TestGetOrBuildComputesAndPersists(t *testing.T) {
	fs := newFakeStore()
	fs.grades[term.First] = []grading.Grade{grade("math", 80), grade("eng", 60)}
	b := NewBuilder(fs, fixedNow)

	res, err := b.GetOrBuild(context.Background(), "s1", "p1", term.First, false)
	if err != nil {
		t.Fatal(err)
	}
	rep := res.Report
	if rep.TotalSubjects != 2 {
		t.Errorf("TotalSubjects = %d, want 2", rep.TotalSubjects)
	}
	if rep.TotalScore != 140 {
		t.Errorf("TotalScore = %v, want 140", rep.TotalScore)
	}
	if rep.AverageScore != 70 {
		t.Errorf("AverageScore = %v, want 70", rep.AverageScore)
	}
	if rep.Letter != "B" {
		t.Errorf("Letter = %q, want B", rep.Letter)
	}
	if rep.CreatedAt != fixedNow().Unix() {
		t.Errorf("CreatedAt = %d, want %d", rep.CreatedAt, fixedNow().Unix())
	}
	if fs.puts != 1 {
		t.Errorf("PutReport calls = %d, want 1", fs.puts)
	}
	if len(res.Grades) != 2 {
		t.Errorf("Grades len = %d, want 2", len(res.Grades))
	}
	if res.Details != nil {
		t.Error("Details present without detailed=true")
	}
	if res.AllTerms != nil {
		t.Error("AllTerms present on a non-THIRD term")
	}
}

func TestGetOrBuildReturnsFrozenReport(t *testing.T) {
	fs := newFakeStore()
	fs.grades[term.First] = []grading.Grade{grade("math", 50)}
	b := NewBuilder(fs, fixedNow)

	first, err := b.GetOrBuild(context.Background(), "s1", "p1", term.First, false)
	if err != nil {
		t.Fatal(err)
	}

	// Grades change after the report was issued.
	fs.grades[term.First] = []grading.Grade{grade("math", 90), grade("sci", 90)}

	second, err := b.GetOrBuild(context.Background(), "s1", "p1", term.First, false)
	if err != nil {
		t.Fatal(err)
	}
	if second.Report != first.Report {
		t.Error("issued report changed between requests")
	}
	if fs.puts != 1 {
		t.Errorf("PutReport calls = %d, want 1", fs.puts)
	}
	// The grades list alongside the frozen report is still fresh.
	if len(second.Grades) != 2 {
		t.Errorf("fresh Grades len = %d, want 2", len(second.Grades))
	}
}

func TestGetOrBuildZeroSubjects(t *testing.T) {
	fs := newFakeStore()
	b := NewBuilder(fs, fixedNow)

	res, err := b.GetOrBuild(context.Background(), "s1", "p1", term.Second, false)
	if err != nil {
		t.Fatal(err)
	}
	rep := res.Report
	if rep.TotalSubjects != 0 || rep.TotalScore != 0 || rep.AverageScore != 0 {
		t.Errorf("empty report = %+v, want zeros", rep)
	}
	if rep.Letter != "F" {
		t.Errorf("Letter = %q, want F", rep.Letter)
	}
}

func TestGetOrBuildDetailed(t *testing.T) {
	fs := newFakeStore()
	fs.grades[term.First] = []grading.Grade{grade("math", 75)}
	b := NewBuilder(fs, fixedNow)

	res, err := b.GetOrBuild(context.Background(), "s1", "p1", term.First, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Details) != 1 || res.Details[0].SubjectID != "math" {
		t.Errorf("Details = %+v, want one math entry", res.Details)
	}
}

func TestThirdTermYearView(t *testing.T) {
	fs := newFakeStore()
	fs.grades[term.First] = []grading.Grade{grade("math", 60)}
	fs.grades[term.Second] = []grading.Grade{grade("math", 70)}
	fs.grades[term.Third] = []grading.Grade{grade("math", 80), grade("eng", 50)}
	b := NewBuilder(fs, fixedNow)

	res, err := b.GetOrBuild(context.Background(), "s1", "p1", term.Third, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.AllTerms == nil {
		t.Fatal("AllTerms missing on THIRD-term report")
	}
	if len(res.AllTerms.Terms) != 3 {
		t.Fatalf("Terms len = %d, want 3", len(res.AllTerms.Terms))
	}
	// Flattened mean over all four grades, not an average of term averages.
	want := (60.0 + 70 + 80 + 50) / 4
	if math.Abs(res.AllTerms.YearlyAverage-want) > 1e-9 {
		t.Errorf("YearlyAverage = %v, want %v", res.AllTerms.YearlyAverage, want)
	}
	third := res.AllTerms.Terms[2]
	if third.Term != term.Third || third.AverageScore != 65 {
		t.Errorf("third block = %+v, want Term=THIRD avg=65", third)
	}
}
