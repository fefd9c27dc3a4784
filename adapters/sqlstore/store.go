// Package sqlstore keeps the current collection in a SQL table, on PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"sheetview/domain/sheet"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/migration"
	"sheetview/internal/snapshot"
	"sheetview/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects and runs migrations. SQLite is limited to one connection so an in-memory
// database is shared by every query.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, apperrors.ConfigInvalid("database DSN is required")
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to database")
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "database migration failed")
	}
	return db, nil
}

// Store implements ports.RecordStore with one row per snapshot key
type Store struct {
	db  *sqlx.DB
	key string
}

var _ ports.RecordStore = (*Store)(nil)

// NewStore creates a store on an open, migrated database
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, key: ports.SnapshotKey}
}

// Save upserts the snapshot row
func (s *Store) Save(ctx context.Context, c *sheet.Collection) error {
	payload, err := snapshot.Encode(c)
	if err != nil {
		return apperrors.PersistenceError("save", err)
	}
	var fields []string
	if c != nil {
		fields = c.Fields
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return apperrors.PersistenceError("save", err)
	}

	query := s.db.Rebind(`INSERT INTO snapshots (snapshot_key, fields, record_count, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_key) DO UPDATE SET
			fields = EXCLUDED.fields,
			record_count = EXCLUDED.record_count,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`)

	_, err = s.db.ExecContext(ctx, query, s.key, string(fieldsJSON), c.Len(), payload, time.Now().UTC())
	if err != nil {
		return apperrors.PersistenceError("save", fmt.Errorf("failed to upsert snapshot: %w", err))
	}
	log.Printf("[SQLStore] saved %d records (%d bytes)", c.Len(), len(payload))
	return nil
}

// Load returns the stored snapshot, or nil when the row is absent
func (s *Store) Load(ctx context.Context) (*sheet.Collection, error) {
	var payload []byte
	query := s.db.Rebind(`SELECT payload FROM snapshots WHERE snapshot_key = ?`)
	err := s.db.QueryRowxContext(ctx, query, s.key).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.PersistenceError("load", fmt.Errorf("failed to get snapshot: %w", err))
	}

	c, err := snapshot.Decode(payload)
	if err != nil {
		return nil, apperrors.PersistenceError("load", err)
	}
	return c, nil
}

// Clear deletes the snapshot row
func (s *Store) Clear(ctx context.Context) error {
	query := s.db.Rebind(`DELETE FROM snapshots WHERE snapshot_key = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.key); err != nil {
		return apperrors.PersistenceError("clear", fmt.Errorf("failed to delete snapshot: %w", err))
	}
	return nil
}

// Summary is the metadata row of the stored snapshot
type Summary struct {
	Key         string    `db:"snapshot_key" json:"key"`
	Fields      string    `db:"fields" json:"fields"`
	RecordCount int       `db:"record_count" json:"recordCount"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Summary reads the snapshot metadata without decoding the payload
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	query := s.db.Rebind(`SELECT snapshot_key, fields, record_count, updated_at FROM snapshots WHERE snapshot_key = ?`)
	if err := s.db.GetContext(ctx, &sum, query, s.key); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("snapshot")
		}
		return nil, apperrors.PersistenceError("summary", err)
	}
	return &sum, nil
}
