package migration

import (
	"context"
	"fmt"

	"sheetview/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSnapshotsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create snapshots table")
	}
	return nil
}

// ResetDatabase drops every table this runner creates
func (r *MigrationRunner) ResetDatabase(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS snapshots"); err != nil {
		return errors.Wrap(err, "failed to drop snapshots table")
	}
	return nil
}

func (r *MigrationRunner) createSnapshotsTable(ctx context.Context, db *sqlx.DB) error {
	blobType := "BLOB"
	timeType := "TIMESTAMP"
	if db.DriverName() == "postgres" {
		blobType = "BYTEA"
		timeType = "TIMESTAMP WITH TIME ZONE"
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_key TEXT PRIMARY KEY,
    fields TEXT NOT NULL DEFAULT '[]',
    record_count INTEGER NOT NULL DEFAULT 0,
    payload %s NOT NULL,
    updated_at %s NOT NULL
)`, blobType, timeType)

	_, err := db.ExecContext(ctx, query)
	return err
}
