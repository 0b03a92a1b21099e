package term

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/classpoint/classpoint/internal/apperr"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() int64
}

func NewSQLStore(db *sql.DB, driver string, now func() int64) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: now}
}

// Create inserts a term. Duplicate (name, year) is a conflict.
func (s *SQLStore) Create(ctx context.Context, t AcademicTerm) (AcademicTerm, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var exist int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM academic_terms WHERE name=$1 AND year=$2`, t.Name, t.Year,
	).Scan(&exist)
	if err == nil {
		return AcademicTerm{}, apperr.Conflict("term already exists for this year")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return AcademicTerm{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO academic_terms (id, name, year, start_date, end_date, is_active, is_published)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)`,
		t.ID, t.Name, t.Year, t.StartDate, t.EndDate, t.IsActive)
	if err != nil {
		// A concurrent create can slip past the pre-check and land on the
		// UNIQUE(name, year) constraint instead.
		if isUniqueViolation(err) {
			return AcademicTerm{}, apperr.Conflict("term already exists for this year")
		}
		return AcademicTerm{}, err
	}
	if t.IsActive {
		// Creating an active term still has to keep the single-active invariant.
		if err := s.Activate(ctx, t.ID); err != nil {
			return AcademicTerm{}, err
		}
	}
	return s.Get(ctx, t.ID)
}

func (s *SQLStore) Get(ctx context.Context, id string) (AcademicTerm, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, year, start_date, end_date, is_active, is_published, published_at, published_by
		FROM academic_terms WHERE id=$1`, id)
	return scanTerm(row)
}

func (s *SQLStore) List(ctx context.Context) ([]AcademicTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, year, start_date, end_date, is_active, is_published, published_at, published_by
		FROM academic_terms ORDER BY year DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AcademicTerm{}
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Activate makes the target the only active term. Deactivating the rest
// and activating the target run in one transaction, so readers never see
// zero or two active terms.
func (s *SQLStore) Activate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE academic_terms SET is_active=FALSE WHERE is_active=TRUE AND id<>$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE academic_terms SET is_active=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("term not found")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Str("term", id).Msg("term activated")
	return nil
}

// SetPublished toggles report visibility. Publishing stamps when and by
// whom; unpublishing clears both.
func (s *SQLStore) SetPublished(ctx context.Context, id string, publish bool, by string) error {
	var res sql.Result
	var err error
	if publish {
		res, err = s.db.ExecContext(ctx, `
			UPDATE academic_terms SET is_published=TRUE, published_at=$1, published_by=$2 WHERE id=$3`,
			s.now(), by, id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE academic_terms SET is_published=FALSE, published_at=NULL, published_by=NULL WHERE id=$1`, id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("term not found")
	}
	return nil
}

// BulkPublish applies one publish/unpublish transition to many terms and
// reports how many rows it touched.
func (s *SQLStore) BulkPublish(ctx context.Context, ids []string, publish bool, by string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	affected := 0
	for _, id := range ids {
		var res sql.Result
		if publish {
			res, err = tx.ExecContext(ctx, `
				UPDATE academic_terms SET is_published=TRUE, published_at=$1, published_by=$2 WHERE id=$3`,
				s.now(), by, id)
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE academic_terms SET is_published=FALSE, published_at=NULL, published_by=NULL WHERE id=$1`, id)
		}
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		affected += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

// Delete refuses to orphan exam records: a term with referencing exams
// stays put.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exams WHERE academic_term_id=$1`, id).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("term has exams attached and cannot be deleted")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM academic_terms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("term not found")
	}
	return nil
}

// IsPublished reports whether any term row for (name, year) has been
// published. This is the gate student report requests go through.
func (s *SQLStore) IsPublished(ctx context.Context, name, year string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM academic_terms WHERE name=$1 AND year=$2 AND is_published=TRUE`,
		name, year).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "sqlstate 23505")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTerm(r rowScanner) (AcademicTerm, error) {
	var t AcademicTerm
	var publishedAt sql.NullInt64
	var publishedBy sql.NullString
	err := r.Scan(&t.ID, &t.Name, &t.Year, &t.StartDate, &t.EndDate,
		&t.IsActive, &t.IsPublished, &publishedAt, &publishedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return AcademicTerm{}, apperr.NotFound("term not found")
	}
	if err != nil {
		return AcademicTerm{}, err
	}
	if publishedAt.Valid {
		v := publishedAt.Int64
		t.PublishedAt = &v
	}
	if publishedBy.Valid {
		v := publishedBy.String
		t.PublishedBy = &v
	}
	return t, nil
}
