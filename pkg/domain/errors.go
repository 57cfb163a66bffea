package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Draft mutation errors.
var (
	// ErrCommitInProgress is returned when a draft is mutated or saved while a
	// commit for the same collection is in flight.
	ErrCommitInProgress = errors.New("commit in progress")
	// ErrAbsentEntry is returned when editing a key that has no present entry.
	ErrAbsentEntry = errors.New("entry is not present")
	// ErrMarkedForDeletion is returned when editing an entry flagged for deletion.
	ErrMarkedForDeletion = errors.New("entry is marked for deletion")
	// ErrUnknownKey is returned for keys outside a fixed key space.
	ErrUnknownKey = errors.New("unknown key")
	// ErrUnknownField is returned when a field path is not editable.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a field value cannot be converted.
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError reports blocking rule violations found before any store
// call was made. Fixing the listed fields and saving again is always safe.
type ValidationError struct {
	Kind   EntityKind
	Result Result
}

func (e ValidationError) Error() string {
	blocking := e.Result.Blocking()
	parts := make([]string, 0, len(blocking))
	for _, v := range blocking {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Key, v.Message))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Kind, strings.Join(parts, "; "))
}

// Keys returns the distinct offending keys in violation order.
func (e ValidationError) Keys() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range e.Result.Blocking() {
		if _, ok := seen[v.Key]; ok {
			continue
		}
		seen[v.Key] = struct{}{}
		out = append(out, v.Key)
	}
	return out
}

// Operation identifies a store mutation kind within a commit plan.
type Operation string

// Store mutation kinds in commit order.
const (
	OpDelete Operation = "delete"
	OpUpdate Operation = "update"
	OpInsert Operation = "insert"
)

// OperationReport describes the fate of one planned store operation.
type OperationReport struct {
	Op       Operation `json:"op"`
	Key      string    `json:"key"`
	RecordID string    `json:"record_id,omitempty"`
	Err      error     `json:"-"`
}

func (r OperationReport) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %s: %v", r.Op, r.Key, r.Err)
	}
	return fmt.Sprintf("%s %s", r.Op, r.Key)
}

// PartialCommitError is returned when some planned operations were applied
// before another failed. Applied operations are not rolled back; the only
// recovery is to re-fetch the baseline.
type PartialCommitError struct {
	Kind      EntityKind
	Succeeded []OperationReport
	Failed    []OperationReport
	// Skipped lists operations never attempted because of the failure.
	Skipped []OperationReport
}

func (e *PartialCommitError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		failed = append(failed, f.String())
	}
	return fmt.Sprintf("%s partial commit: %d operation(s) applied, %d failed (%s), %d skipped; some changes may have been saved, refresh advised",
		e.Kind, len(e.Succeeded), len(e.Failed), strings.Join(failed, "; "), len(e.Skipped))
}

// Unwrap exposes the underlying store errors.
func (e *PartialCommitError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		if f.Err != nil {
			out = append(out, f.Err)
		}
	}
	return out
}

// AdapterError is returned when a store call failed before any side effect
// of the commit was applied. Retrying the save unchanged is safe.
type AdapterError struct {
	Kind EntityKind
	Op   Operation
	Key  string
	Err  error
}

func (e *AdapterError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s failed: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s failed: %v", e.Kind, e.Op, e.Key, e.Err)
}

// Unwrap exposes the underlying store error.
func (e *AdapterError) Unwrap() error { return e.Err }
