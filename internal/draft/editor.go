package draft

import (
	"context"
	"fmt"
	"sync"

	"venueadmin/pkg/domain"
)

// Phase is the save lifecycle state of an editor.
type Phase string

// Save phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhasePlanning   Phase = "planning"
	PhaseCommitting Phase = "committing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Editor owns the draft of one collection for one parent and drives saves.
// It is safe for concurrent use. Draft mutations are rejected while a commit
// is in flight; reads are always allowed.
type Editor[K domain.Key, F any] struct {
	mu       sync.Mutex
	schema   Schema[K, F]
	adapter  Adapter[K, F]
	parentID string
	settings settings
	drafts   *Store[K, F]
	phase    Phase
	lastErr  error
}

// NewEditor returns an editor over an empty baseline. Call Resync to load the
// persisted state, or use Open.
func NewEditor[K domain.Key, F any](schema Schema[K, F], adapter Adapter[K, F], parentID string, opts ...Option) *Editor[K, F] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Editor[K, F]{
		schema:   schema,
		adapter:  adapter,
		parentID: parentID,
		settings: cfg,
		drafts:   NewStore(schema, EmptyBaseline[K, F](parentID), cfg.scope),
		phase:    PhaseIdle,
	}
}

// Open returns an editor loaded from the backing store.
func Open[K domain.Key, F any](ctx context.Context, schema Schema[K, F], adapter Adapter[K, F], parentID string, opts ...Option) (*Editor[K, F], error) {
	e := NewEditor(schema, adapter, parentID, opts...)
	if err := e.Resync(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Kind returns the entity kind edited.
func (e *Editor[K, F]) Kind() domain.EntityKind { return e.schema.Kind() }

// ParentID returns the owning parent id.
func (e *Editor[K, F]) ParentID() string { return e.parentID }

// Schema returns the schema the editor was built with.
func (e *Editor[K, F]) Schema() Schema[K, F] { return e.schema }

// Resync reloads the baseline from the backing store and discards every
// draft edit. It is the recovery path after a partial commit.
func (e *Editor[K, F]) Resync(ctx context.Context) error {
	e.mu.Lock()
	if e.phase == PhaseCommitting {
		e.mu.Unlock()
		return domain.ErrCommitInProgress
	}
	e.mu.Unlock()

	kind := e.schema.Kind()
	ctx, done := e.settings.instrument(ctx, "load_"+string(kind))
	records, err := e.adapter.LoadAll(ctx, e.parentID)
	if err != nil {
		done(err)
		return fmt.Errorf("load %s for %s: %w", kind, e.parentID, err)
	}
	base, err := NewBaseline(e.parentID, records)
	done(err)
	if err != nil {
		return fmt.Errorf("load %s for %s: %w", kind, e.parentID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseCommitting {
		return domain.ErrCommitInProgress
	}
	e.drafts.Reset(base)
	e.phase = PhaseIdle
	e.lastErr = nil
	e.settings.logger.Debug("baseline loaded", "kind", kind, "parent", e.parentID, "records", base.Len())
	return nil
}

func (e *Editor[K, F]) mutate(fn func(s *Store[K, F]) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseCommitting {
		return domain.ErrCommitInProgress
	}
	return fn(e.drafts)
}

// Activate makes key part of the collection.
func (e *Editor[K, F]) Activate(key K, initial *F) error {
	return e.mutate(func(s *Store[K, F]) error { return s.Activate(key, initial) })
}

// Deactivate removes key from the collection.
func (e *Editor[K, F]) Deactivate(key K) error {
	return e.mutate(func(s *Store[K, F]) error { return s.Deactivate(key) })
}

// Update edits the fields of a live entry.
func (e *Editor[K, F]) Update(key K, mutate func(fields *F) error) error {
	return e.mutate(func(s *Store[K, F]) error { return s.Update(key, mutate) })
}

// SetField assigns one field by path.
func (e *Editor[K, F]) SetField(key K, path string, value any) error {
	return e.mutate(func(s *Store[K, F]) error { return s.SetField(key, path, value) })
}

// Revert discards every draft edit.
func (e *Editor[K, F]) Revert() error {
	return e.mutate(func(s *Store[K, F]) error {
		s.Revert()
		return nil
	})
}

// RevertKey discards the draft edits of one key.
func (e *Editor[K, F]) RevertKey(key K) error {
	return e.mutate(func(s *Store[K, F]) error { return s.RevertKey(key) })
}

// Entry returns the draft state of key.
func (e *Editor[K, F]) Entry(key K) Entry[K, F] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Entry(key)
}

// Entries returns every known entry in key order.
func (e *Editor[K, F]) Entries() []Entry[K, F] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Entries()
}

// Status returns the badge for key.
func (e *Editor[K, F]) Status(key K) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Status(key)
}

// IsDirty reports whether saving would change anything.
func (e *Editor[K, F]) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Dirty()
}

// Plan previews the operations a save would issue.
func (e *Editor[K, F]) Plan() Plan[K, F] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Plan()
}

// Validate evaluates the rules against the draft.
func (e *Editor[K, F]) Validate() domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Validate()
}

// ValidateKey evaluates the rules against one entry.
func (e *Editor[K, F]) ValidateKey(key K) []domain.Violation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.ValidateKey(key)
}

// Phase returns the save lifecycle state.
func (e *Editor[K, F]) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// LastError returns the error of the last failed save, if any.
func (e *Editor[K, F]) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Baseline returns the persisted records the draft is edited against.
func (e *Editor[K, F]) Baseline() []Record[K, F] {
	e.mu.Lock()
	defer e.mu.Unlock()
	records := e.drafts.Baseline().Records()
	for i := range records {
		records[i].Fields = e.schema.Clone(records[i].Fields)
	}
	return records
}

func (e *Editor[K, F]) setPhase(p Phase) {
	e.phase = p
	e.settings.logger.Debug("save phase", "kind", e.schema.Kind(), "parent", e.parentID, "phase", string(p))
}

// Save validates the draft, plans the diff and commits it. Blocking
// violations abort before any store call with a domain.ValidationError. A
// failing store call yields a *domain.AdapterError when nothing was applied
// and a *domain.PartialCommitError otherwise; in both cases the draft and
// baseline are left as they were. On success the applied records become the
// new baseline and the draft is reset to mirror it.
func (e *Editor[K, F]) Save(ctx context.Context) (Outcome[K, F], error) {
	kind := e.schema.Kind()
	e.mu.Lock()
	if e.phase == PhaseCommitting {
		e.mu.Unlock()
		return Outcome[K, F]{}, domain.ErrCommitInProgress
	}
	ctx, done := e.settings.instrument(ctx, "save_"+string(kind))

	e.setPhase(PhaseValidating)
	if result := e.drafts.Validate(); result.HasBlocking() {
		err := domain.ValidationError{Kind: kind, Result: result}
		e.lastErr = err
		e.setPhase(PhaseFailed)
		e.mu.Unlock()
		done(err)
		return Outcome[K, F]{}, err
	}

	e.setPhase(PhasePlanning)
	plan := e.drafts.Plan()
	if plan.Empty() {
		e.lastErr = nil
		e.setPhase(PhaseSucceeded)
		e.mu.Unlock()
		done(nil)
		return Outcome[K, F]{NothingToSave: true}, nil
	}
	base := e.drafts.Baseline()
	e.setPhase(PhaseCommitting)
	e.mu.Unlock()

	x := &executor[K, F]{
		kind:        kind,
		adapter:     e.adapter,
		concurrency: e.settings.concurrency,
		instrument:  e.settings.instrument,
		logger:      e.settings.logger,
	}
	out, err := x.execute(ctx, plan, base)

	e.mu.Lock()
	if err != nil {
		e.lastErr = err
		e.setPhase(PhaseFailed)
		e.mu.Unlock()
		done(err)
		return Outcome[K, F]{}, err
	}
	next := base.apply(out)
	e.drafts.Reset(next)
	e.lastErr = nil
	e.setPhase(PhaseSucceeded)
	e.mu.Unlock()
	done(nil)

	e.settings.logger.Info("draft saved", "kind", kind, "parent", e.parentID,
		"inserted", len(out.Inserted), "updated", len(out.Updated), "deleted", len(out.Deleted))
	if e.settings.onCommit != nil {
		e.settings.onCommit(ctx, Commit{Kind: string(kind), ParentID: e.parentID, Baseline: next, Summary: plan.Summary()})
	}
	return out, nil
}
