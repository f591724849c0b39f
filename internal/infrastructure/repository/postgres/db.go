package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS modules (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	module_type TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	current_step_id TEXT,
	last_activity_at TIMESTAMPTZ NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (project_id, module_type)
);

CREATE TABLE IF NOT EXISTS module_steps (
	id TEXT PRIMARY KEY,
	module_id TEXT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
	step_type TEXT NOT NULL,
	title TEXT NOT NULL,
	order_index INT NOT NULL,
	status TEXT NOT NULL,
	completed_at TIMESTAMPTZ,
	completed_by TEXT,
	UNIQUE (module_id, step_type)
);

CREATE TABLE IF NOT EXISTS step_responses (
	id TEXT PRIMARY KEY,
	step_id TEXT NOT NULL REFERENCES module_steps(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	version INT NOT NULL,
	is_latest BOOLEAN NOT NULL,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (step_id, version)
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	module_type TEXT NOT NULL,
	name TEXT NOT NULL,
	format TEXT NOT NULL,
	storage_path TEXT NOT NULL DEFAULT '',
	version INT NOT NULL,
	template_version INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_templates (
	id TEXT PRIMARY KEY,
	module_type TEXT NOT NULL,
	version INT NOT NULL,
	storage_path TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (module_type, version)
);

CREATE INDEX IF NOT EXISTS idx_module_steps_module ON module_steps(module_id, order_index);
CREATE INDEX IF NOT EXISTS idx_step_responses_step ON step_responses(step_id, version DESC);
CREATE INDEX IF NOT EXISTS idx_documents_pair ON documents(project_id, module_type, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const (
	pgCodeForeignKeyViolation = "23503"
	pgCodeUniqueViolation     = "23505"
)

// classify maps backend faults onto the domain error taxonomy so callers can
// branch on kind without knowing the driver.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeForeignKeyViolation:
			return domain.WrapError(domain.ErrReference, operation, err)
		case pgCodeUniqueViolation:
			return domain.WrapError(domain.ErrDuplicate, operation, err)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrNotFound, operation, err)
	}
	return domain.WrapError(domain.ErrStorage, operation, err)
}
