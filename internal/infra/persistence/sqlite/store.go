// Package sqlite provides the embedded SQLite record store (pure Go driver).
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"venueadmin/internal/infra/persistence/sqlstore"
)

const driverName = "sqlite"

// DefaultPath is used when no database path is configured.
const DefaultPath = "venueadmin.db"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS venue_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		record_key TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (kind, parent_id, record_key)
	)`,
	`CREATE INDEX IF NOT EXISTS venue_records_collection ON venue_records (kind, parent_id)`,
}

// Dialect describes SQLite to the shared SQL store.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{Name: "sqlite", Schema: schema, IsUniqueViolation: isUniqueViolation}
}

// NewStore opens (creating when needed) the database at path. ":memory:"
// yields a private in-memory database.
func NewStore(ctx context.Context, path string) (*sqlstore.Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serialises writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	store, err := sqlstore.New(ctx, db, Dialect())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
