// Package sqlstore implements domain.RecordStore over any database/sql driver
// through sqlx. Dialect specifics (DDL and unique violation detection) are
// supplied by the sqlite and postgres packages.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"venueadmin/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// Dialect captures the per-database parts of the store.
type Dialect struct {
	Name string
	// Schema holds the statements creating the records table.
	Schema []string
	// IsUniqueViolation recognises the driver's unique constraint error.
	IsUniqueViolation func(error) bool
}

// Store is a sqlx-backed record store. Timestamps are stored as unix
// nanoseconds so every dialect scans them the same way.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

type row struct {
	ID        string `db:"id"`
	Kind      string `db:"kind"`
	ParentID  string `db:"parent_id"`
	Key       string `db:"record_key"`
	Fields    string `db:"fields"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func toRow(rec domain.Record) row {
	return row{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		ParentID:  rec.ParentID,
		Key:       rec.Key,
		Fields:    string(rec.Fields),
		CreatedAt: rec.CreatedAt.UnixNano(),
		UpdatedAt: rec.UpdatedAt.UnixNano(),
	}
}

func (r row) record() domain.Record {
	return domain.Record{
		ID:        r.ID,
		Kind:      domain.EntityKind(r.Kind),
		ParentID:  r.ParentID,
		Key:       r.Key,
		Fields:    []byte(r.Fields),
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}
}

const columns = `id, kind, parent_id, record_key, fields, created_at, updated_at`

// New applies the dialect schema and returns a store on db.
func New(ctx context.Context, db *sqlx.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s schema: %w", dialect.Name, err)
		}
	}
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}
	return &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// List returns one collection ordered by key.
func (s *Store) List(ctx context.Context, kind domain.EntityKind, parentID string) ([]domain.Record, error) {
	var rows []row
	query := s.db.Rebind(`SELECT ` + columns + ` FROM venue_records WHERE kind = ? AND parent_id = ? ORDER BY record_key`)
	if err := s.db.SelectContext(ctx, &rows, query, string(kind), parentID); err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", kind, parentID, err)
	}
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO venue_records (`+columns+`)
		VALUES (:id, :kind, :parent_id, :record_key, :fields, :created_at, :updated_at)`, toRow(rec))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return domain.Record{}, fmt.Errorf("%w: %s %s/%s", domain.ErrConflict, rec.Kind, rec.ParentID, rec.Key)
		}
		return domain.Record{}, fmt.Errorf("insert %s %s: %w", rec.Kind, rec.Key, err)
	}
	return rec.Clone(), nil
}

// Update replaces the fields of an existing record inside a transaction.
func (s *Store) Update(ctx context.Context, id string, rec domain.Record) (out domain.Record, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var current row
	if err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT `+columns+` FROM venue_records WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return domain.Record{}, fmt.Errorf("load %s: %w", id, err)
	}
	next, err := current.record().ApplyUpdate(rec)
	if err != nil {
		return domain.Record{}, err
	}
	next.UpdatedAt = s.now()
	if _, err = tx.NamedExecContext(ctx, `UPDATE venue_records SET fields = :fields, updated_at = :updated_at WHERE id = :id`, toRow(next)); err != nil {
		return domain.Record{}, fmt.Errorf("update %s: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return domain.Record{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM venue_records WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}
