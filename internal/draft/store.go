package draft

import (
	"fmt"
	"sort"

	"venueadmin/pkg/domain"
)

// Store holds the draft of one collection against its baseline. It is not
// safe for concurrent use; Editor serializes access.
type Store[K domain.Key, F any] struct {
	schema   Schema[K, F]
	space    KeySpace[K]
	scope    func(key string) bool
	baseline *Baseline[K, F]
	entries  map[K]*Entry[K, F]
}

// NewStore returns a draft mirroring baseline. When scope is set, baseline
// records whose key it rejects are left out of the draft and therefore out of
// every plan.
func NewStore[K domain.Key, F any](schema Schema[K, F], baseline *Baseline[K, F], scope func(key string) bool) *Store[K, F] {
	s := &Store[K, F]{schema: schema, space: schema.KeySpace(), scope: scope}
	s.Reset(baseline)
	return s
}

// Baseline returns the baseline the draft is edited against.
func (s *Store[K, F]) Baseline() *Baseline[K, F] { return s.baseline }

// Reset replaces the baseline and discards every draft edit.
func (s *Store[K, F]) Reset(baseline *Baseline[K, F]) {
	s.baseline = baseline
	s.entries = make(map[K]*Entry[K, F])
	if s.space.Fixed() {
		for _, key := range s.space.Keys() {
			s.entries[key] = &Entry[K, F]{Key: key}
		}
	}
	for key, rec := range baseline.records {
		if !s.space.Contains(key) || !s.inScope(key) {
			continue
		}
		s.entries[key] = s.fromBaseline(rec)
	}
}

func (s *Store[K, F]) inScope(key K) bool {
	return s.scope == nil || s.scope(key.String())
}

func (s *Store[K, F]) fromBaseline(rec Record[K, F]) *Entry[K, F] {
	return &Entry[K, F]{
		Key:      rec.Key,
		Present:  true,
		Fields:   s.schema.Clone(rec.Fields),
		Origin:   OriginBaseline,
		RecordID: rec.ID,
	}
}

func (s *Store[K, F]) absent(key K) {
	if s.space.Fixed() {
		s.entries[key] = &Entry[K, F]{Key: key}
		return
	}
	delete(s.entries, key)
}

func (s *Store[K, F]) checkKey(key K) error {
	if !s.space.Contains(key) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownKey, key)
	}
	return nil
}

// Activate makes key part of the collection. A key with a baseline record is
// restored from it, which also undoes a pending deletion; otherwise it starts
// from initial, or the schema defaults when initial is nil. Activating a live
// entry is a no-op.
func (s *Store[K, F]) Activate(key K, initial *F) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	if cur := s.entries[key]; cur != nil && cur.Live() {
		return nil
	}
	if rec, ok := s.baseline.Get(key); ok {
		s.entries[key] = s.fromBaseline(rec)
		return nil
	}
	fields := s.schema.Defaults(key)
	if initial != nil {
		fields = s.schema.Clone(*initial)
	}
	s.entries[key] = &Entry[K, F]{Key: key, Present: true, Fields: fields, Origin: OriginNew}
	return nil
}

// Deactivate removes key from the collection. New entries vanish; baseline
// entries are flagged for deletion with their fields kept. Deactivating an
// absent key is a no-op.
func (s *Store[K, F]) Deactivate(key K) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	cur := s.entries[key]
	if cur == nil || !cur.Present {
		return nil
	}
	if cur.Origin == OriginNew {
		s.absent(key)
		return nil
	}
	cur.ToDelete = true
	return nil
}

// Update applies mutate to a copy of the entry's fields, reconciles derived
// fields and stores the result. The entry is unchanged when mutate fails.
func (s *Store[K, F]) Update(key K, mutate func(fields *F) error) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	cur := s.entries[key]
	if cur == nil || !cur.Present {
		return fmt.Errorf("%w: %s", domain.ErrAbsentEntry, key)
	}
	if cur.ToDelete {
		return fmt.Errorf("%w: %s", domain.ErrMarkedForDeletion, key)
	}
	before := s.schema.Clone(cur.Fields)
	working := s.schema.Clone(cur.Fields)
	if err := mutate(&working); err != nil {
		return err
	}
	s.schema.Reconcile(before, &working)
	cur.Fields = working
	return nil
}

// SetField assigns one field by path.
func (s *Store[K, F]) SetField(key K, path string, value any) error {
	setter, ok := s.schema.Fields()[path]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, path)
	}
	return s.Update(key, func(fields *F) error {
		if err := setter(fields, value); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
}

// Revert discards every draft edit.
func (s *Store[K, F]) Revert() { s.Reset(s.baseline) }

// RevertKey discards the draft edits of one key.
func (s *Store[K, F]) RevertKey(key K) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	cur := s.entries[key]
	rec, ok := s.baseline.Get(key)
	switch {
	case ok && (s.inScope(key) || (cur != nil && cur.Present)):
		s.entries[key] = s.fromBaseline(rec)
	default:
		s.absent(key)
	}
	return nil
}

// Entry returns a copy of the draft state of key.
func (s *Store[K, F]) Entry(key K) Entry[K, F] {
	cur := s.entries[key]
	if cur == nil {
		return Entry[K, F]{Key: key}
	}
	cp := *cur
	cp.Fields = s.schema.Clone(cur.Fields)
	return cp
}

// Keys returns the keys the draft knows about in key order: every key of a
// fixed space, or the materialized keys of an open one.
func (s *Store[K, F]) Keys() []K {
	if s.space.Fixed() {
		return s.space.Keys()
	}
	keys := make([]K, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.space.Sort(keys)
	return keys
}

// Entries returns a copy of every entry in key order.
func (s *Store[K, F]) Entries() []Entry[K, F] {
	keys := s.Keys()
	out := make([]Entry[K, F], 0, len(keys))
	for _, key := range keys {
		out = append(out, s.Entry(key))
	}
	return out
}

// Status returns the badge for key.
func (s *Store[K, F]) Status(key K) Status {
	cur := s.entries[key]
	switch {
	case cur == nil || !cur.Present:
		return StatusAbsent
	case cur.Origin == OriginNew:
		return StatusNew
	case cur.ToDelete:
		return StatusMarkedForDeletion
	case s.matchesBaseline(cur):
		return StatusUnchanged
	default:
		return StatusModified
	}
}

// Dirty reports whether saving would change anything.
func (s *Store[K, F]) Dirty() bool {
	for _, cur := range s.entries {
		if !cur.Present {
			continue
		}
		if cur.Origin == OriginNew || cur.ToDelete || !s.matchesBaseline(cur) {
			return true
		}
	}
	return false
}

func (s *Store[K, F]) matchesBaseline(cur *Entry[K, F]) bool {
	rec, ok := s.baseline.Get(cur.Key)
	if !ok {
		return false
	}
	return s.schema.Equal(s.schema.Normalize(cur.Fields), s.schema.Normalize(rec.Fields))
}

// Validate evaluates the schema rules against every live entry. Absent
// entries and entries marked for deletion are not validated.
func (s *Store[K, F]) Validate() domain.Result {
	var result domain.Result
	rules := s.schema.Rules()
	if rules == nil {
		return result
	}
	for _, key := range s.Keys() {
		cur := s.entries[key]
		if cur == nil || !cur.Live() {
			continue
		}
		result.Merge(rules.Evaluate(key.String(), s.schema.Normalize(cur.Fields)))
	}
	return result
}

// ValidateKey evaluates the schema rules against one entry.
func (s *Store[K, F]) ValidateKey(key K) []domain.Violation {
	cur := s.entries[key]
	rules := s.schema.Rules()
	if cur == nil || !cur.Live() || rules == nil {
		return nil
	}
	return rules.Evaluate(key.String(), s.schema.Normalize(cur.Fields)).Violations
}

// materialized returns the present entries in key order.
func (s *Store[K, F]) materialized() []*Entry[K, F] {
	out := make([]*Entry[K, F], 0, len(s.entries))
	for _, cur := range s.entries {
		if cur.Present {
			out = append(out, cur)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.space.Less(out[i].Key, out[j].Key) })
	return out
}
