package draft

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"venueadmin/pkg/domain"
)

// Record is one persisted collection member as the engine sees it.
type Record[K domain.Key, F any] struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	Key       K         `json:"key"`
	Fields    F         `json:"fields"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Payload is the body sent to the backing store for an insert or update.
type Payload[K domain.Key, F any] struct {
	ParentID string `json:"parent_id"`
	Key      K      `json:"key"`
	Fields   F      `json:"fields"`
}

// Baseline is the last known persisted state of one collection. It is never
// mutated; a successful commit produces a new Baseline.
type Baseline[K domain.Key, F any] struct {
	parentID string
	records  map[K]Record[K, F]
}

// EmptyBaseline returns a baseline with no records.
func EmptyBaseline[K domain.Key, F any](parentID string) *Baseline[K, F] {
	return &Baseline[K, F]{parentID: parentID, records: map[K]Record[K, F]{}}
}

// NewBaseline indexes records by key. Two records with the same key, a record
// without an id or a record owned by another parent are rejected.
func NewBaseline[K domain.Key, F any](parentID string, records []Record[K, F]) (*Baseline[K, F], error) {
	b := EmptyBaseline[K, F](parentID)
	for _, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("baseline record %s has no id", rec.Key)
		}
		if rec.ParentID == "" {
			rec.ParentID = parentID
		}
		if rec.ParentID != parentID {
			return nil, fmt.Errorf("baseline record %s belongs to parent %s, want %s", rec.ID, rec.ParentID, parentID)
		}
		if prior, ok := b.records[rec.Key]; ok {
			return nil, fmt.Errorf("baseline records %s and %s share key %s", prior.ID, rec.ID, rec.Key)
		}
		b.records[rec.Key] = rec
	}
	return b, nil
}

// ParentID returns the owning parent id.
func (b *Baseline[K, F]) ParentID() string { return b.parentID }

// Len returns the number of records.
func (b *Baseline[K, F]) Len() int { return len(b.records) }

// Get returns the record stored under key. The record's fields must be
// treated as read-only.
func (b *Baseline[K, F]) Get(key K) (Record[K, F], bool) {
	rec, ok := b.records[key]
	return rec, ok
}

// Records returns every record ordered by key string.
func (b *Baseline[K, F]) Records() []Record[K, F] {
	out := make([]Record[K, F], 0, len(b.records))
	for _, rec := range b.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// MarshalJSON renders the baseline as an archive document.
func (b *Baseline[K, F]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ParentID string         `json:"parent_id"`
		Records  []Record[K, F] `json:"records"`
	}{ParentID: b.parentID, Records: b.Records()})
}

// apply returns the baseline that results from a fully successful commit:
// deleted keys dropped, updated and inserted records replacing their keys.
func (b *Baseline[K, F]) apply(out Outcome[K, F]) *Baseline[K, F] {
	next := &Baseline[K, F]{parentID: b.parentID, records: make(map[K]Record[K, F], len(b.records))}
	for key, rec := range b.records {
		next.records[key] = rec
	}
	for _, d := range out.Deleted {
		delete(next.records, d.Key)
	}
	for _, rec := range out.Updated {
		next.records[rec.Key] = rec
	}
	for _, rec := range out.Inserted {
		next.records[rec.Key] = rec
	}
	return next
}
