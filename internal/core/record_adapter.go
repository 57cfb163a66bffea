package core

import (
	"context"
	"encoding/json"
	"fmt"

	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

// RecordAdapter binds one typed collection to an untyped domain.RecordStore.
// Field payloads travel as JSON; keys as their string form.
type RecordAdapter[K domain.Key, F any] struct {
	store  domain.RecordStore
	kind   domain.EntityKind
	parser func(string) (K, error)
}

var _ draft.Adapter[domain.SeatType, domain.SeatOptionFields] = (*RecordAdapter[domain.SeatType, domain.SeatOptionFields])(nil)

// NewRecordAdapter returns an adapter for the schema's collection.
func NewRecordAdapter[K domain.Key, F any](store domain.RecordStore, schema draft.Schema[K, F]) *RecordAdapter[K, F] {
	space := schema.KeySpace()
	return &RecordAdapter[K, F]{store: store, kind: schema.Kind(), parser: space.Parse}
}

func (a *RecordAdapter[K, F]) encode(payload draft.Payload[K, F]) (domain.Record, error) {
	if key, err := a.parser(payload.Key.String()); err != nil || key != payload.Key {
		return domain.Record{}, fmt.Errorf("encode %s %q: %w", a.kind, payload.Key.String(), domain.ErrUnknownKey)
	}
	raw, err := json.Marshal(payload.Fields)
	if err != nil {
		return domain.Record{}, fmt.Errorf("encode %s %s: %w", a.kind, payload.Key, err)
	}
	return domain.Record{Kind: a.kind, ParentID: payload.ParentID, Key: payload.Key.String(), Fields: raw}, nil
}

func (a *RecordAdapter[K, F]) decode(rec domain.Record) (draft.Record[K, F], error) {
	key, err := a.parser(rec.Key)
	if err != nil {
		return draft.Record[K, F]{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	var fields F
	if len(rec.Fields) > 0 {
		if err := json.Unmarshal(rec.Fields, &fields); err != nil {
			return draft.Record[K, F]{}, fmt.Errorf("decode %s record %s: %w", a.kind, rec.ID, err)
		}
	}
	return draft.Record[K, F]{ID: rec.ID, ParentID: rec.ParentID, Key: key, Fields: fields, UpdatedAt: rec.UpdatedAt}, nil
}

// Insert implements draft.Adapter.
func (a *RecordAdapter[K, F]) Insert(ctx context.Context, payload draft.Payload[K, F]) (draft.Record[K, F], error) {
	rec, err := a.encode(payload)
	if err != nil {
		return draft.Record[K, F]{}, err
	}
	stored, err := a.store.Insert(ctx, rec)
	if err != nil {
		return draft.Record[K, F]{}, err
	}
	out, err := a.decode(stored)
	if err != nil {
		// The row is written; keep what was sent under the id the store assigned.
		return draft.Record[K, F]{ID: stored.ID, ParentID: payload.ParentID, Key: payload.Key, Fields: payload.Fields, UpdatedAt: stored.UpdatedAt}, nil
	}
	return out, nil
}

// Update implements draft.Adapter. A store reply without an id means the
// write was acknowledged without an echo.
func (a *RecordAdapter[K, F]) Update(ctx context.Context, recordID string, payload draft.Payload[K, F]) (*draft.Record[K, F], error) {
	rec, err := a.encode(payload)
	if err != nil {
		return nil, err
	}
	stored, err := a.store.Update(ctx, recordID, rec)
	if err != nil {
		return nil, err
	}
	if stored.ID == "" {
		return nil, nil
	}
	out, err := a.decode(stored)
	if err != nil {
		// Applied but unreadable: the engine synthesizes it like an unechoed write.
		return nil, nil
	}
	return &out, nil
}

// Delete implements draft.Adapter.
func (a *RecordAdapter[K, F]) Delete(ctx context.Context, recordID string) error {
	return a.store.Delete(ctx, recordID)
}

// LoadAll implements draft.Adapter.
func (a *RecordAdapter[K, F]) LoadAll(ctx context.Context, parentID string) ([]draft.Record[K, F], error) {
	recs, err := a.store.List(ctx, a.kind, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]draft.Record[K, F], 0, len(recs))
	for _, rec := range recs {
		decoded, err := a.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}
