package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store persists exams, submissions and corrections.
type Store struct {
	db     *sql.DB
	driver Driver
}

// New opens a SQLite store at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), DriverSQLite, dbPath)
}

// Open opens a store for the given driver and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "examdesk.db"
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/examdesk?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// rebind rewrites ? placeholders into the driver's native form.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// insertID executes an INSERT ... RETURNING id statement.
func (s *Store) insertID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS exams (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	created_by TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exam_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	prompt TEXT NOT NULL,
	options TEXT NOT NULL DEFAULT '[]',
	correct_answer TEXT NOT NULL,
	points REAL NOT NULL DEFAULT 1,
	FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exam_id INTEGER NOT NULL,
	student_name TEXT NOT NULL,
	submitted_at DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS submission_answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	question_type TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS corrections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id INTEGER NOT NULL UNIQUE,
	exam_id INTEGER,
	exam_title TEXT NOT NULL,
	exam_description TEXT NOT NULL DEFAULT '',
	student_name TEXT NOT NULL,
	total_score REAL NOT NULL,
	max_score REAL NOT NULL,
	corrected_by TEXT NOT NULL,
	corrected_at DATETIME NOT NULL,
	correction_method TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS correction_answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	correction_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	student_answer TEXT NOT NULL DEFAULT '',
	correct_answer TEXT NOT NULL DEFAULT '',
	question_type TEXT NOT NULL DEFAULT '',
	points REAL NOT NULL DEFAULT 0,
	feedback TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (correction_id) REFERENCES corrections(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS auth_password (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS app_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS exams (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	created_by TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
	id BIGSERIAL PRIMARY KEY,
	exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	prompt TEXT NOT NULL,
	options TEXT NOT NULL DEFAULT '[]',
	correct_answer TEXT NOT NULL,
	points DOUBLE PRECISION NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS submissions (
	id BIGSERIAL PRIMARY KEY,
	exam_id BIGINT NOT NULL,
	student_name TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS submission_answers (
	id BIGSERIAL PRIMARY KEY,
	submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
	question_id BIGINT NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	question_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS corrections (
	id BIGSERIAL PRIMARY KEY,
	submission_id BIGINT NOT NULL UNIQUE,
	exam_id BIGINT,
	exam_title TEXT NOT NULL,
	exam_description TEXT NOT NULL DEFAULT '',
	student_name TEXT NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	max_score DOUBLE PRECISION NOT NULL,
	corrected_by TEXT NOT NULL,
	corrected_at TIMESTAMPTZ NOT NULL,
	correction_method TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS correction_answers (
	id BIGSERIAL PRIMARY KEY,
	correction_id BIGINT NOT NULL REFERENCES corrections(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	question_id BIGINT NOT NULL,
	student_answer TEXT NOT NULL DEFAULT '',
	correct_answer TEXT NOT NULL DEFAULT '',
	question_type TEXT NOT NULL DEFAULT '',
	points DOUBLE PRECISION NOT NULL DEFAULT 0,
	feedback TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS auth_password (
	id BIGSERIAL PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS app_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
