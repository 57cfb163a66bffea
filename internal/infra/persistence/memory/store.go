// Package memory provides an in-memory domain.RecordStore used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"venueadmin/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.RecordStore = (*Store)(nil)

// Store keeps records in maps guarded by a RWMutex. Every value handed out is
// a clone.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	// unique maps Record.UniqueKey to record id.
	unique map[string]string
	now    func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.Record),
		unique:  make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns the records of one collection ordered by key.
func (s *Store) List(_ context.Context, kind domain.EntityKind, parentID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, 0)
	for _, rec := range s.records {
		if rec.Kind == kind && rec.ParentID == parentID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Insert stores a new record, assigning an id when none is supplied.
func (s *Store) Insert(_ context.Context, rec domain.Record) (domain.Record, error) {
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, exists := s.records[rec.ID]; exists {
		return domain.Record{}, fmt.Errorf("%w: id %s", domain.ErrConflict, rec.ID)
	}
	if other, taken := s.unique[rec.UniqueKey()]; taken {
		return domain.Record{}, fmt.Errorf("%w: %s %s/%s held by %s", domain.ErrConflict, rec.Kind, rec.ParentID, rec.Key, other)
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	rec = rec.Clone()
	s.records[rec.ID] = rec
	s.unique[rec.UniqueKey()] = rec.ID
	return rec.Clone(), nil
}

// Update replaces the fields of an existing record. Identity fields left blank
// in rec are taken from the stored record; differing ones are a conflict.
func (s *Store) Update(_ context.Context, id string, rec domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[id]
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	next, err := current.ApplyUpdate(rec)
	if err != nil {
		return domain.Record{}, err
	}
	next.UpdatedAt = s.now()
	s.records[id] = next.Clone()
	return next, nil
}

// Delete removes a record.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(s.records, id)
	delete(s.unique, current.UniqueKey())
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
