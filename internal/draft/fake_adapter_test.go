package draft_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

// fakeAdapter is an in-memory backing store enforcing a (parent, slot)
// uniqueness constraint, where slot defaults to the key string.
type fakeAdapter[K domain.Key, F any] struct {
	mu      sync.Mutex
	nextID  int
	records map[string]draft.Record[K, F]
	slots   map[string]string
	slotOf  func(key K) string
	calls   []string
	failOn  map[string]error
	noEcho  bool
	loadErr error

	// gate, when set, blocks every insert until closed; entered receives a
	// value as each insert starts.
	gate    chan struct{}
	entered chan struct{}

	inFlight    int
	maxInFlight int
}

func newFakeAdapter[K domain.Key, F any](seed ...draft.Record[K, F]) *fakeAdapter[K, F] {
	f := &fakeAdapter[K, F]{
		records: make(map[string]draft.Record[K, F]),
		slots:   make(map[string]string),
		failOn:  make(map[string]error),
	}
	for _, rec := range seed {
		f.records[rec.ID] = rec
		f.slots[f.slot(rec.ParentID, rec.Key)] = rec.ID
	}
	return f
}

func (f *fakeAdapter[K, F]) slot(parentID string, key K) string {
	name := key.String()
	if f.slotOf != nil {
		name = f.slotOf(key)
	}
	return parentID + "/" + name
}

func (f *fakeAdapter[K, F]) enter(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	if err, ok := f.failOn[call]; ok {
		return err
	}
	return nil
}

func (f *fakeAdapter[K, F]) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeAdapter[K, F]) Insert(ctx context.Context, payload draft.Payload[K, F]) (draft.Record[K, F], error) {
	if err := ctx.Err(); err != nil {
		return draft.Record[K, F]{}, err
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	defer f.leave()
	if err := f.enter("insert:" + payload.Key.String()); err != nil {
		return draft.Record[K, F]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	slot := f.slot(payload.ParentID, payload.Key)
	if _, taken := f.slots[slot]; taken {
		return draft.Record[K, F]{}, fmt.Errorf("insert %s: %w", payload.Key, domain.ErrConflict)
	}
	f.nextID++
	rec := draft.Record[K, F]{
		ID:       fmt.Sprintf("srv-%d", f.nextID),
		ParentID: payload.ParentID,
		Key:      payload.Key,
		Fields:   payload.Fields,
	}
	f.records[rec.ID] = rec
	f.slots[slot] = rec.ID
	return rec, nil
}

func (f *fakeAdapter[K, F]) Update(ctx context.Context, recordID string, payload draft.Payload[K, F]) (*draft.Record[K, F], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer f.leave()
	if err := f.enter("update:" + payload.Key.String()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Fields = payload.Fields
	f.records[recordID] = rec
	if f.noEcho {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeAdapter[K, F]) Delete(ctx context.Context, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	rec, ok := f.records[recordID]
	f.mu.Unlock()
	key := recordID
	if ok {
		key = rec.Key.String()
	}
	defer f.leave()
	if err := f.enter("delete:" + key); err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, recordID)
	delete(f.slots, f.slot(rec.ParentID, rec.Key))
	return nil
}

func (f *fakeAdapter[K, F]) LoadAll(_ context.Context, parentID string) ([]draft.Record[K, F], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []draft.Record[K, F]
	for _, rec := range f.records {
		if rec.ParentID == parentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeAdapter[K, F]) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAdapter[K, F]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

var errStoreDown = errors.New("store unavailable")
