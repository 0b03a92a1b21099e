package term

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/classpoint/classpoint/internal/apperr"
	"github.com/classpoint/classpoint/internal/db"
)

func newTestStore(t *testing.T, name string) (*SQLStore, *sql.DB) {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewSQLStore(dbh, "sqlite", func() int64 { return 1700000000 }), dbh
}

func mustCreate(t *testing.T, s *SQLStore, name, year string) AcademicTerm {
	t.Helper()
	tm, err := s.Create(context.Background(), AcademicTerm{
		Name: name, Year: year, StartDate: 1, EndDate: 2,
	})
	if err != nil {
		t.Fatalf("create %s/%s: %v", name, year, err)
	}
	return tm
}

func TestActivateKeepsSingleActiveTerm(t *testing.T) {
	store, _ := newTestStore(t, "term_activate")
	ctx := context.Background()
	t1 := mustCreate(t, store, First, "2025")
	t2 := mustCreate(t, store, Second, "2025")

	if err := store.Activate(ctx, t1.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Activate(ctx, t2.ID); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var active []string
	for _, tm := range list {
		if tm.IsActive {
			active = append(active, tm.ID)
		}
	}
	if len(active) != 1 || active[0] != t2.ID {
		t.Fatalf("active terms = %v, want exactly [%s]", active, t2.ID)
	}
}

func TestActivateUnknownTerm(t *testing.T) {
	store, _ := newTestStore(t, "term_activate_missing")
	if err := store.Activate(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateDuplicateTermConflict(t *testing.T) {
	store, _ := newTestStore(t, "term_dup")
	mustCreate(t, store, First, "2025")

	_, err := store.Create(context.Background(), AcademicTerm{
		Name: First, Year: "2025", StartDate: 5, EndDate: 6,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	// Same name in another year is fine.
	mustCreate(t, store, First, "2026")
}

func TestDeleteTermBlockedByExams(t *testing.T) {
	store, dbh := newTestStore(t, "term_delete")
	ctx := context.Background()
	tm := mustCreate(t, store, First, "2025")

	if _, err := dbh.Exec(`
		INSERT INTO exams (id, title, subject_id, program_id, exam_type, term, academic_term_id, created_by, questions_json, created_at)
		VALUES ('e1','Test','math','p1','CA','FIRST',$1,'t1','[]',1)`, tm.ID); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	if err := store.Delete(ctx, tm.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete with exams err = %v, want conflict", err)
	}

	empty := mustCreate(t, store, Second, "2025")
	if err := store.Delete(ctx, empty.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, empty.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want not found", err)
	}
}

func TestPublishGate(t *testing.T) {
	store, _ := newTestStore(t, "term_publish")
	ctx := context.Background()
	tm := mustCreate(t, store, First, "2025")

	pub, err := store.IsPublished(ctx, First, "2025")
	if err != nil || pub {
		t.Fatalf("fresh term published = (%v, %v), want false", pub, err)
	}

	if err := store.SetPublished(ctx, tm.ID, true, "admin1"); err != nil {
		t.Fatal(err)
	}
	pub, err = store.IsPublished(ctx, First, "2025")
	if err != nil || !pub {
		t.Fatalf("published = (%v, %v), want true", pub, err)
	}
	got, err := store.Get(ctx, tm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PublishedAt == nil || got.PublishedBy == nil || *got.PublishedBy != "admin1" {
		t.Fatalf("publish stamp = %+v, want at+by set", got)
	}

	if err := store.SetPublished(ctx, tm.ID, false, "admin1"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get(ctx, tm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsPublished || got.PublishedAt != nil || got.PublishedBy != nil {
		t.Fatalf("unpublish left stamp behind: %+v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("UNIQUE constraint failed: academic_terms.name, academic_terms.year"), true},
		{errors.New(`duplicate key value violates unique constraint "academic_terms_name_year_key"`), true},
		{errors.New("ERROR: conflict (SQLSTATE 23505)"), true},
		{errors.New("no such table: academic_terms"), false},
	}
	for _, c := range cases {
		if got := isUniqueViolation(c.err); got != c.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
