// Package postgres provides the PostgreSQL record store on the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/jmoiron/sqlx"

	"venueadmin/internal/infra/persistence/sqlstore"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/venueadmin?sslmode=disable"
	uniqueCode    = "23505"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the function used to open database handles and
// returns a restore func. Tests use it to inject stub drivers.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS venue_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		record_key TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		CONSTRAINT venue_records_identity UNIQUE (kind, parent_id, record_key)
	)`,
	`CREATE INDEX IF NOT EXISTS venue_records_collection ON venue_records (kind, parent_id)`,
}

// Dialect describes PostgreSQL to the shared SQL store.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{Name: "postgres", Schema: schema, IsUniqueViolation: isUniqueViolation}
}

// NewStore connects to dsn (falling back to a localhost default), verifies the
// connection and applies the schema.
func NewStore(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	raw, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store, err := sqlstore.New(ctx, sqlx.NewDb(raw, defaultDriver), Dialect())
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return store, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueCode
}
