package draft

import (
	"fmt"

	"venueadmin/pkg/domain"
)

// Insert creates a record for a key with no baseline record.
type Insert[K domain.Key, F any] struct {
	Key     K
	Payload Payload[K, F]
}

// Update overwrites the fields of an existing record.
type Update[K domain.Key, F any] struct {
	Key      K
	RecordID string
	Payload  Payload[K, F]
}

// Delete removes an existing record.
type Delete[K domain.Key] struct {
	Key      K
	RecordID string
}

// Plan is the minimal set of store operations that turns the baseline into
// the draft. Each list is in key order.
type Plan[K domain.Key, F any] struct {
	Inserts []Insert[K, F]
	Updates []Update[K, F]
	Deletes []Delete[K]
}

// Empty reports whether the plan changes nothing.
func (p Plan[K, F]) Empty() bool { return p.Len() == 0 }

// Len returns the total number of operations.
func (p Plan[K, F]) Len() int { return len(p.Inserts) + len(p.Updates) + len(p.Deletes) }

// Summary renders the operation counts.
func (p Plan[K, F]) Summary() string {
	return fmt.Sprintf("%d delete(s), %d update(s), %d insert(s)", len(p.Deletes), len(p.Updates), len(p.Inserts))
}

// Plan diffs the draft against its baseline. Only keys present in the draft
// are considered: a baseline record that is out of scope is never touched.
//
//   - new entry: insert
//   - baseline entry marked for deletion: delete
//   - baseline entry whose normalized fields differ: update
//   - everything else: nothing
func (s *Store[K, F]) Plan() Plan[K, F] {
	var plan Plan[K, F]
	for _, cur := range s.materialized() {
		switch {
		case cur.Origin == OriginNew:
			plan.Inserts = append(plan.Inserts, Insert[K, F]{Key: cur.Key, Payload: s.payload(cur)})
		case cur.ToDelete:
			plan.Deletes = append(plan.Deletes, Delete[K]{Key: cur.Key, RecordID: cur.RecordID})
		default:
			if s.matchesBaseline(cur) {
				continue
			}
			plan.Updates = append(plan.Updates, Update[K, F]{Key: cur.Key, RecordID: cur.RecordID, Payload: s.payload(cur)})
		}
	}
	return plan
}

func (s *Store[K, F]) payload(cur *Entry[K, F]) Payload[K, F] {
	return Payload[K, F]{
		ParentID: s.baseline.ParentID(),
		Key:      cur.Key,
		Fields:   s.schema.Normalize(s.schema.Clone(cur.Fields)),
	}
}
