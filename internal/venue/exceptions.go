package venue

import (
	"strings"
	"time"

	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

// Exceptions is the schema of the dated exception collection. Its key space
// is open-ended: any calendar day may carry an exception.
type Exceptions struct{}

var _ draft.Schema[domain.ExceptionDate, domain.ExceptionFields] = Exceptions{}

var (
	exceptionKeys  = draft.OpenKeys(domain.ParseExceptionDate)
	exceptionRules = newExceptionRules()
)

// Kind implements draft.Schema.
func (Exceptions) Kind() domain.EntityKind { return domain.KindException }

// KeySpace implements draft.Schema.
func (Exceptions) KeySpace() draft.KeySpace[domain.ExceptionDate] { return exceptionKeys }

// Defaults closes the venue for the day.
func (Exceptions) Defaults(domain.ExceptionDate) domain.ExceptionFields {
	return domain.ExceptionFields{Closed: true}
}

// Clone implements draft.Schema.
func (Exceptions) Clone(f domain.ExceptionFields) domain.ExceptionFields {
	cp := f
	cp.OpensAt = cloneInt(f.OpensAt)
	cp.ClosesAt = cloneInt(f.ClosesAt)
	cp.Capacity = cloneInt(f.Capacity)
	return cp
}

// Normalize drops times and capacity of a closed day, drops the capacity when
// the override gate is off and trims the reason.
func (Exceptions) Normalize(f domain.ExceptionFields) domain.ExceptionFields {
	f.Reason = strings.TrimSpace(f.Reason)
	if f.Closed {
		return domain.ExceptionFields{Closed: true, Reason: f.Reason}
	}
	if !f.CapacityOverrideEnabled {
		f.Capacity = nil
	}
	return f
}

// Equal implements draft.Schema.
func (Exceptions) Equal(a, b domain.ExceptionFields) bool {
	return a.Closed == b.Closed &&
		equalInt(a.OpensAt, b.OpensAt) &&
		equalInt(a.ClosesAt, b.ClosesAt) &&
		a.CapacityOverrideEnabled == b.CapacityOverrideEnabled &&
		equalInt(a.Capacity, b.Capacity) &&
		a.Reason == b.Reason
}

// Reconcile keeps the special opening window ordered.
func (Exceptions) Reconcile(before domain.ExceptionFields, after *domain.ExceptionFields) {
	reconcileBounds(before.OpensAt, before.ClosesAt, &after.OpensAt, &after.ClosesAt)
}

// Fields implements draft.Schema.
func (Exceptions) Fields() draft.FieldSet[domain.ExceptionFields] {
	type F = domain.ExceptionFields
	return draft.FieldSet[F]{
		"closed":                    draft.BoolField(func(f *F) *bool { return &f.Closed }),
		"opens_at":                  clockField(func(f *F) **int { return &f.OpensAt }),
		"closes_at":                 clockField(func(f *F) **int { return &f.ClosesAt }),
		"capacity_override_enabled": draft.BoolField(func(f *F) *bool { return &f.CapacityOverrideEnabled }),
		"capacity":                  draft.IntField(func(f *F) **int { return &f.Capacity }),
		"reason":                    draft.StringField(func(f *F) *string { return &f.Reason }),
	}
}

// Rules implements draft.Schema.
func (Exceptions) Rules() *domain.RuleSet[domain.ExceptionFields] { return exceptionRules }

// Upcoming returns a scope accepting exception dates on or after the day of
// from. Malformed keys are rejected.
func Upcoming(from time.Time) func(key string) bool {
	floor := domain.ExceptionDateOf(from).String()
	return func(key string) bool {
		if _, err := domain.ParseExceptionDate(key); err != nil {
			return false
		}
		return key >= floor
	}
}

func newExceptionRules() *domain.RuleSet[domain.ExceptionFields] {
	type F = domain.ExceptionFields
	rules := domain.NewRuleSet[F](domain.KindException)
	rules.Register(domain.RuleFunc[F]{RuleName: "special_hours_window", Fn: func(f F) []domain.Violation {
		if f.Closed {
			return nil
		}
		return clockWindowViolations(f.OpensAt, f.ClosesAt)
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "capacity_override_positive", Fn: func(f F) []domain.Violation {
		if f.Closed || !f.CapacityOverrideEnabled {
			return nil
		}
		if f.Capacity == nil || *f.Capacity <= 0 {
			return []domain.Violation{{Message: "Capacity must be > 0 when the capacity override applies"}}
		}
		return nil
	}})
	return rules
}
