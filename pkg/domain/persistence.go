package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is the shape persisted by a backing store for one collection member.
// Fields carry the kind specific payload as JSON so every backend can store
// every kind without knowing its schema.
type Record struct {
	ID        string          `json:"id"`
	Kind      EntityKind      `json:"kind"`
	ParentID  string          `json:"parent_id"`
	Key       string          `json:"key"`
	Fields    json.RawMessage `json:"fields"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RecordStore is the backing store contract consumed by the draft engine's
// adapters. Every (kind, parent, key) triple is unique within a store.
//
// Update may return a zero Record (empty ID) when the backend acknowledges the
// write without echoing the stored row; callers then synthesize it locally.
type RecordStore interface {
	List(ctx context.Context, kind EntityKind, parentID string) ([]Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, id string, rec Record) (Record, error)
	Delete(ctx context.Context, id string) error
}

var (
	// ErrNotFound is returned when a record id is unknown to the store.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate the (kind, parent, key)
	// uniqueness constraint or alter a record's identity.
	ErrConflict = errors.New("record conflicts with an existing record")
	// ErrInvalidRecord is returned when a record lacks its identity or carries
	// a payload that is not a JSON object.
	ErrInvalidRecord = errors.New("invalid record")
)

// Validate checks the identity triple and payload of a record before a store
// accepts it.
func (r Record) Validate() error {
	if _, err := ParseEntityKind(string(r.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.ParentID == "" {
		return fmt.Errorf("%w: parent id required", ErrInvalidRecord)
	}
	if r.Key == "" {
		return fmt.Errorf("%w: key required", ErrInvalidRecord)
	}
	if err := validateKey(r.Kind, r.Key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Fields, &obj); err != nil || obj == nil {
		return fmt.Errorf("%w: fields must be a JSON object", ErrInvalidRecord)
	}
	return nil
}

// validateKey accepts only the canonical form of a key of kind.
func validateKey(kind EntityKind, key string) error {
	var canonical string
	switch kind {
	case KindSeatOption:
		st, err := ParseSeatType(key)
		if err != nil {
			return err
		}
		canonical = st.String()
	case KindOperatingHours:
		day, err := ParseWeekday(key)
		if err != nil {
			return err
		}
		canonical = day.String()
	case KindException:
		date, err := ParseExceptionDate(key)
		if err != nil {
			return err
		}
		canonical = date.String()
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if canonical != key {
		return fmt.Errorf("%s key %q must be written as %q", kind, key, canonical)
	}
	return nil
}

// UniqueKey returns the uniqueness constraint value of a record.
func (r Record) UniqueKey() string {
	return string(r.Kind) + "\x00" + r.ParentID + "\x00" + r.Key
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	cp := r
	if r.Fields != nil {
		cp.Fields = append(json.RawMessage(nil), r.Fields...)
	}
	return cp
}

// ApplyUpdate returns r with the fields of update. Identity fields left blank
// in update are kept; differing ones are a conflict.
func (r Record) ApplyUpdate(update Record) (Record, error) {
	if (update.Kind != "" && update.Kind != r.Kind) ||
		(update.ParentID != "" && update.ParentID != r.ParentID) ||
		(update.Key != "" && update.Key != r.Key) {
		return Record{}, fmt.Errorf("%w: record %s cannot change identity", ErrConflict, r.ID)
	}
	next := r.Clone()
	next.Fields = append(json.RawMessage(nil), update.Fields...)
	if err := next.Validate(); err != nil {
		return Record{}, err
	}
	return next, nil
}
