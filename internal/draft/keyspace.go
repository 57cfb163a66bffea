// Package draft implements the draft reconciliation engine: an in-memory
// draft of a small keyed collection edited against a baseline snapshot, a
// validator, a diff planner that derives the minimal insert/update/delete
// plan, and a commit executor that applies it to a backing store in a
// constraint safe order.
package draft

import (
	"fmt"
	"sort"

	"venueadmin/pkg/domain"
)

// KeySpace enumerates the keys a collection may contain. A fixed key space
// (seat types, weekdays) is exhaustive; an open one (exception dates) accepts
// any key in the canonical form its parser produces.
type KeySpace[K domain.Key] struct {
	fixed []K
	index map[K]int
	parse func(string) (K, error)
}

// FixedKeys returns an exhaustive key space ordered as given.
func FixedKeys[K domain.Key](keys []K, parse func(string) (K, error)) KeySpace[K] {
	index := make(map[K]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	return KeySpace[K]{fixed: append([]K(nil), keys...), index: index, parse: parse}
}

// OpenKeys returns an open-ended key space ordered by key string.
func OpenKeys[K domain.Key](parse func(string) (K, error)) KeySpace[K] {
	return KeySpace[K]{parse: parse}
}

// Fixed reports whether the key space is exhaustive.
func (s KeySpace[K]) Fixed() bool { return s.index != nil }

// Keys returns the fixed keys in order, or nil for an open key space.
func (s KeySpace[K]) Keys() []K { return append([]K(nil), s.fixed...) }

// Contains reports whether key belongs to the key space. An open key space
// holds exactly the keys its parser returns unchanged.
func (s KeySpace[K]) Contains(key K) bool {
	if !s.Fixed() {
		if s.parse == nil {
			return false
		}
		parsed, err := s.parse(key.String())
		return err == nil && parsed == key
	}
	_, ok := s.index[key]
	return ok
}

// Parse resolves a key from its string form.
func (s KeySpace[K]) Parse(raw string) (K, error) {
	var zero K
	if s.parse == nil {
		return zero, fmt.Errorf("%w: %q (key space has no parser)", domain.ErrUnknownKey, raw)
	}
	key, err := s.parse(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", domain.ErrUnknownKey, err)
	}
	if !s.Contains(key) {
		return zero, fmt.Errorf("%w: %q", domain.ErrUnknownKey, raw)
	}
	return key, nil
}

// Less orders keys: by position for fixed spaces, by string otherwise.
func (s KeySpace[K]) Less(a, b K) bool {
	if s.Fixed() {
		return s.index[a] < s.index[b]
	}
	return a.String() < b.String()
}

// Sort orders keys in place.
func (s KeySpace[K]) Sort(keys []K) {
	sort.Slice(keys, func(i, j int) bool { return s.Less(keys[i], keys[j]) })
}
