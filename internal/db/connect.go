package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:classpoint.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/classpoint?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS teacher_assignments (
  teacher_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  PRIMARY KEY (teacher_id, subject_id, program_id)
);

CREATE TABLE IF NOT EXISTS academic_terms (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,             -- FIRST|SECOND|THIRD
  year TEXT NOT NULL,
  start_date INTEGER NOT NULL,
  end_date INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0,
  is_published INTEGER NOT NULL DEFAULT 0,
  published_at INTEGER,
  published_by TEXT,
  UNIQUE (name, year)
);

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  level_id TEXT NOT NULL DEFAULT '',
  track_id TEXT NOT NULL DEFAULT '',
  exam_type TEXT NOT NULL,        -- CA|EXAM
  term TEXT NOT NULL,             -- FIRST|SECOND|THIRD
  duration_sec INTEGER NOT NULL DEFAULT 0,
  academic_term_id TEXT REFERENCES academic_terms(id),
  created_by TEXT NOT NULL,
  is_published INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,           -- in_progress|submitted
  score REAL,                     -- NULL until at least one question is graded
  responses_json TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  submitted_at INTEGER,
  UNIQUE (exam_id, user_id)
);

CREATE TABLE IF NOT EXISTS question_grades (
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  marks_awarded REAL NOT NULL,
  max_marks REAL NOT NULL,
  teacher_comment TEXT NOT NULL DEFAULT '',
  student_answer TEXT NOT NULL DEFAULT '',
  graded_by TEXT NOT NULL,
  graded_at INTEGER NOT NULL,
  PRIMARY KEY (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS grades (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  term TEXT NOT NULL,
  ca_score REAL NOT NULL,
  exam_score REAL NOT NULL,
  total_score REAL NOT NULL,
  letter TEXT NOT NULL,
  teacher_id TEXT NOT NULL DEFAULT '',
  graded_by TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL,
  UNIQUE (student_id, subject_id, program_id, term)
);

CREATE TABLE IF NOT EXISTS reports (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  term TEXT NOT NULL,
  total_subjects INTEGER NOT NULL,
  total_score REAL NOT NULL,
  average_score REAL NOT NULL,
  letter TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE (student_id, program_id, term)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS teacher_assignments (
  teacher_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  PRIMARY KEY (teacher_id, subject_id, program_id)
);

CREATE TABLE IF NOT EXISTS academic_terms (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  year TEXT NOT NULL,
  start_date BIGINT NOT NULL,
  end_date BIGINT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT FALSE,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  published_at BIGINT,
  published_by TEXT,
  UNIQUE (name, year)
);

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  level_id TEXT NOT NULL DEFAULT '',
  track_id TEXT NOT NULL DEFAULT '',
  exam_type TEXT NOT NULL,
  term TEXT NOT NULL,
  duration_sec INTEGER NOT NULL DEFAULT 0,
  academic_term_id TEXT REFERENCES academic_terms(id),
  created_by TEXT NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  questions_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  score DOUBLE PRECISION,
  responses_json TEXT NOT NULL,
  started_at BIGINT NOT NULL,
  submitted_at BIGINT,
  UNIQUE (exam_id, user_id)
);

CREATE TABLE IF NOT EXISTS question_grades (
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  marks_awarded DOUBLE PRECISION NOT NULL,
  max_marks DOUBLE PRECISION NOT NULL,
  teacher_comment TEXT NOT NULL DEFAULT '',
  student_answer TEXT NOT NULL DEFAULT '',
  graded_by TEXT NOT NULL,
  graded_at BIGINT NOT NULL,
  PRIMARY KEY (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS grades (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  term TEXT NOT NULL,
  ca_score DOUBLE PRECISION NOT NULL,
  exam_score DOUBLE PRECISION NOT NULL,
  total_score DOUBLE PRECISION NOT NULL,
  letter TEXT NOT NULL,
  teacher_id TEXT NOT NULL DEFAULT '',
  graded_by TEXT NOT NULL DEFAULT '',
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, subject_id, program_id, term)
);

CREATE TABLE IF NOT EXISTS reports (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  program_id TEXT NOT NULL,
  term TEXT NOT NULL,
  total_subjects INTEGER NOT NULL,
  total_score DOUBLE PRECISION NOT NULL,
  average_score DOUBLE PRECISION NOT NULL,
  letter TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  UNIQUE (student_id, program_id, term)
);
`
