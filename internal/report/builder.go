package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/term"
)

// Store is what the builder needs from persistence.
type Store interface {
	GradesFor(ctx context.Context, studentID, programID, termName string) ([]grading.Grade, error)
	GetReport(ctx context.Context, studentID, programID, termName string) (Report, bool, error)
	PutReport(ctx context.Context, r Report) error
	SubjectDetails(ctx context.Context, studentID, programID, termName string) ([]SubjectDetail, error)
}

type Builder struct {
	store Store
	now   func() time.Time
}

func NewBuilder(store Store, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{store: store, now: now}
}

// GetOrBuild assembles the term report for (student, program, term). The
// first request computes and persists the Report row; later requests
// return the stored row untouched even if grades changed since. The
// grades list alongside it is always fresh.
func (b *Builder) GetOrBuild(ctx context.Context, studentID, programID, termName string, detailed bool) (Result, error) {
	grades, err := b.store.GradesFor(ctx, studentID, programID, termName)
	if err != nil {
		return Result{}, err
	}

	rep, found, err := b.store.GetReport(ctx, studentID, programID, termName)
	if err != nil {
		return Result{}, err
	}
	if !found {
		rep = b.summarize(studentID, programID, termName, grades)
		if err := b.store.PutReport(ctx, rep); err != nil {
			return Result{}, err
		}
	}

	res := Result{Report: rep, Grades: grades}

	if detailed {
		details, err := b.store.SubjectDetails(ctx, studentID, programID, termName)
		if err != nil {
			return Result{}, err
		}
		res.Details = details
	}

	if termName == term.Third {
		year, err := b.yearView(ctx, studentID, programID)
		if err != nil {
			return Result{}, err
		}
		res.AllTerms = year
	}
	return res, nil
}

func (b *Builder) summarize(studentID, programID, termName string, grades []grading.Grade) Report {
	total := 0.0
	for _, g := range grades {
		total += g.TotalScore
	}
	avg := 0.0
	if len(grades) > 0 {
		avg = total / float64(len(grades))
	}
	return Report{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		ProgramID:     programID,
		Term:          termName,
		TotalSubjects: len(grades),
		TotalScore:    total,
		AverageScore:  avg,
		Letter:        grading.LetterGrade(avg),
		CreatedAt:     b.now().Unix(),
	}
}

// yearView merges all three terms into the auxiliary block returned with
// a THIRD-term report. The yearly average is the mean over the flattened
// grade list, not an average of term averages.
func (b *Builder) yearView(ctx context.Context, studentID, programID string) (*YearView, error) {
	view := &YearView{}
	sum := 0.0
	count := 0
	for _, t := range []string{term.First, term.Second, term.Third} {
		grades, err := b.store.GradesFor(ctx, studentID, programID, t)
		if err != nil {
			return nil, err
		}
		block := TermBlock{Term: t, Grades: grades}
		for _, g := range grades {
			block.TotalScore += g.TotalScore
		}
		if len(grades) > 0 {
			block.AverageScore = block.TotalScore / float64(len(grades))
		}
		sum += block.TotalScore
		count += len(grades)
		view.Terms = append(view.Terms, block)
	}
	if count > 0 {
		view.YearlyAverage = sum / float64(count)
	}
	return view, nil
}
