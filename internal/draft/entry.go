package draft

import "venueadmin/pkg/domain"

// Origin records where a present draft entry came from.
type Origin int

// Entry origins.
const (
	// OriginNew marks an entry activated in this editing session with no
	// baseline record behind it.
	OriginNew Origin = iota + 1
	// OriginBaseline marks an entry mirrored from a baseline record.
	OriginBaseline
)

func (o Origin) String() string {
	switch o {
	case OriginNew:
		return "new"
	case OriginBaseline:
		return "baseline"
	default:
		return "none"
	}
}

// Status is the per-key badge shown next to a collection member.
type Status string

// Draft statuses.
const (
	StatusAbsent            Status = "absent"
	StatusNew               Status = "new"
	StatusUnchanged         Status = "unchanged"
	StatusModified          Status = "modified"
	StatusMarkedForDeletion Status = "marked_for_deletion"
)

// Entry is the draft state of one key. The zero value (Present false) is the
// Absent state: the key is not part of the collection.
type Entry[K domain.Key, F any] struct {
	Key     K
	Present bool
	Fields  F
	Origin  Origin
	// RecordID is the baseline record id; set only for OriginBaseline.
	RecordID string
	// ToDelete flags a baseline entry the operator removed. Its fields are
	// kept so an undo restores them.
	ToDelete bool
}

// IsNew reports whether the entry will be inserted on save.
func (e Entry[K, F]) IsNew() bool { return e.Present && e.Origin == OriginNew }

// MarkedForDeletion reports whether the entry will be deleted on save.
func (e Entry[K, F]) MarkedForDeletion() bool {
	return e.Present && e.Origin == OriginBaseline && e.ToDelete
}

// Live reports whether the entry is part of the collection after save.
func (e Entry[K, F]) Live() bool { return e.Present && !e.ToDelete }
