// Package persistencetest holds the behavioural contract every
// domain.RecordStore backend must satisfy.
package persistencetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"venueadmin/pkg/domain"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.RecordStore

func seat(parent, key, fields string) domain.Record {
	return domain.Record{Kind: domain.KindSeatOption, ParentID: parent, Key: key, Fields: json.RawMessage(fields)}
}

// Run exercises the RecordStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert assigns identity", func(t *testing.T) {
		store := newStore(t)
		got, err := store.Insert(ctx, seat("bar-1", "table", `{"enabled":true}`))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ID == "" || got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Fatalf("expected id and timestamps, got %+v", got)
		}
		if string(got.Fields) != `{"enabled":true}` {
			t.Fatalf("unexpected fields %s", got.Fields)
		}
	})

	t.Run("list filters by kind and parent", func(t *testing.T) {
		store := newStore(t)
		for _, rec := range []domain.Record{
			seat("bar-1", "table", `{}`),
			seat("bar-1", "bar", `{}`),
			seat("bar-2", "table", `{}`),
			{Kind: domain.KindOperatingHours, ParentID: "bar-1", Key: "monday", Fields: json.RawMessage(`{}`)},
		} {
			if _, err := store.Insert(ctx, rec); err != nil {
				t.Fatalf("seed %s: %v", rec.Key, err)
			}
		}
		list, err := store.List(ctx, domain.KindSeatOption, "bar-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].Key != "bar" || list[1].Key != "table" {
			t.Fatalf("expected bar and table sorted by key, got %+v", list)
		}
		empty, err := store.List(ctx, domain.KindException, "bar-1")
		if err != nil || len(empty) != 0 {
			t.Fatalf("expected no exceptions, got %v %+v", err, empty)
		}
	})

	t.Run("unique key", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Insert(ctx, seat("bar-1", "table", `{}`)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := store.Insert(ctx, seat("bar-1", "table", `{}`)); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("invalid records rejected", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Insert(ctx, seat("", "table", `{}`)); !errors.Is(err, domain.ErrInvalidRecord) {
			t.Fatalf("expected invalid record for missing parent, got %v", err)
		}
		if _, err := store.Insert(ctx, seat("bar-1", "table", `[1]`)); !errors.Is(err, domain.ErrInvalidRecord) {
			t.Fatalf("expected invalid record for array fields, got %v", err)
		}
		for _, rec := range []domain.Record{
			seat("bar-1", "booth", `{}`),
			{Kind: domain.KindOperatingHours, ParentID: "bar-1", Key: "someday", Fields: json.RawMessage(`{}`)},
			{Kind: domain.KindException, ParentID: "bar-1", Key: "next friday", Fields: json.RawMessage(`{}`)},
		} {
			if _, err := store.Insert(ctx, rec); !errors.Is(err, domain.ErrInvalidRecord) {
				t.Fatalf("expected invalid record for %s key %q, got %v", rec.Kind, rec.Key, err)
			}
		}
		list, err := store.List(ctx, domain.KindException, "bar-1")
		if err != nil || len(list) != 0 {
			t.Fatalf("rejected records must not be stored, got %v %+v", err, list)
		}
	})

	t.Run("update replaces fields", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Insert(ctx, seat("bar-1", "table", `{"available_count":4}`))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		updated, err := store.Update(ctx, created.ID, seat("bar-1", "table", `{"available_count":8}`))
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.ID != created.ID || string(updated.Fields) != `{"available_count":8}` {
			t.Fatalf("unexpected updated record %+v", updated)
		}
		list, _ := store.List(ctx, domain.KindSeatOption, "bar-1")
		if len(list) != 1 || string(list[0].Fields) != `{"available_count":8}` {
			t.Fatalf("expected update persisted, got %+v", list)
		}
		if _, err := store.Update(ctx, created.ID, seat("bar-1", "bar", `{}`)); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected identity change rejected, got %v", err)
		}
		if _, err := store.Update(ctx, "missing", seat("bar-1", "table", `{}`)); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("delete frees key", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Insert(ctx, seat("bar-1", "counter", `{}`))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := store.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.Delete(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
		if _, err := store.Insert(ctx, seat("bar-1", "counter", `{}`)); err != nil {
			t.Fatalf("expected key reusable after delete: %v", err)
		}
	})
}
