package venue

import (
	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

// OperatingHours is the schema of the weekly opening hours collection.
type OperatingHours struct{}

var _ draft.Schema[domain.Weekday, domain.OperatingHoursFields] = OperatingHours{}

var (
	weekdayKeys = draft.FixedKeys(domain.Weekdays(), domain.ParseWeekday)
	hoursRules  = newHoursRules()
)

// Default opening window of a newly activated weekday.
const (
	DefaultOpensAt  = 17 * 60
	DefaultClosesAt = 23 * 60
)

// Kind implements draft.Schema.
func (OperatingHours) Kind() domain.EntityKind { return domain.KindOperatingHours }

// KeySpace implements draft.Schema.
func (OperatingHours) KeySpace() draft.KeySpace[domain.Weekday] { return weekdayKeys }

// Defaults opens the day for an evening service.
func (OperatingHours) Defaults(domain.Weekday) domain.OperatingHoursFields {
	return domain.OperatingHoursFields{
		Open:     true,
		OpensAt:  intPtr(DefaultOpensAt),
		ClosesAt: intPtr(DefaultClosesAt),
	}
}

// Clone implements draft.Schema.
func (OperatingHours) Clone(f domain.OperatingHoursFields) domain.OperatingHoursFields {
	cp := f
	cp.OpensAt = cloneInt(f.OpensAt)
	cp.ClosesAt = cloneInt(f.ClosesAt)
	cp.MaxCovers = cloneInt(f.MaxCovers)
	cp.LastSeatingMinutes = cloneInt(f.LastSeatingMinutes)
	return cp
}

// Normalize treats everything but the open flag of a closed day as absent and
// drops the last seating offset when its gate is off.
func (OperatingHours) Normalize(f domain.OperatingHoursFields) domain.OperatingHoursFields {
	if !f.Open {
		return domain.OperatingHoursFields{}
	}
	if !f.LastSeatingEnabled {
		f.LastSeatingMinutes = nil
	}
	return f
}

// Equal implements draft.Schema.
func (OperatingHours) Equal(a, b domain.OperatingHoursFields) bool {
	return a.Open == b.Open &&
		equalInt(a.OpensAt, b.OpensAt) &&
		equalInt(a.ClosesAt, b.ClosesAt) &&
		equalInt(a.MaxCovers, b.MaxCovers) &&
		a.LastSeatingEnabled == b.LastSeatingEnabled &&
		equalInt(a.LastSeatingMinutes, b.LastSeatingMinutes)
}

// Reconcile keeps the opening window ordered.
func (OperatingHours) Reconcile(before domain.OperatingHoursFields, after *domain.OperatingHoursFields) {
	reconcileBounds(before.OpensAt, before.ClosesAt, &after.OpensAt, &after.ClosesAt)
}

// Fields implements draft.Schema.
func (OperatingHours) Fields() draft.FieldSet[domain.OperatingHoursFields] {
	type F = domain.OperatingHoursFields
	return draft.FieldSet[F]{
		"open":                 draft.BoolField(func(f *F) *bool { return &f.Open }),
		"opens_at":             clockField(func(f *F) **int { return &f.OpensAt }),
		"closes_at":            clockField(func(f *F) **int { return &f.ClosesAt }),
		"max_covers":           draft.IntField(func(f *F) **int { return &f.MaxCovers }),
		"last_seating_enabled": draft.BoolField(func(f *F) *bool { return &f.LastSeatingEnabled }),
		"last_seating_minutes": draft.IntField(func(f *F) **int { return &f.LastSeatingMinutes }),
	}
}

// Rules implements draft.Schema.
func (OperatingHours) Rules() *domain.RuleSet[domain.OperatingHoursFields] { return hoursRules }

func newHoursRules() *domain.RuleSet[domain.OperatingHoursFields] {
	type F = domain.OperatingHoursFields
	rules := domain.NewRuleSet[F](domain.KindOperatingHours)
	rules.Register(domain.RuleFunc[F]{RuleName: "max_covers_positive", Fn: func(f F) []domain.Violation {
		if f.Open && (f.MaxCovers == nil || *f.MaxCovers <= 0) {
			return []domain.Violation{{Message: "Max covers must be > 0 when open"}}
		}
		return nil
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "opening_window", Fn: func(f F) []domain.Violation {
		if !f.Open {
			return nil
		}
		return clockWindowViolations(f.OpensAt, f.ClosesAt)
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "last_seating_positive", Fn: func(f F) []domain.Violation {
		if !f.Open || !f.LastSeatingEnabled {
			return nil
		}
		if f.LastSeatingMinutes == nil || *f.LastSeatingMinutes <= 0 {
			return []domain.Violation{{Message: "Last seating offset must be > 0 when last seating applies"}}
		}
		if f.OpensAt != nil && f.ClosesAt != nil && *f.LastSeatingMinutes > *f.ClosesAt-*f.OpensAt {
			return []domain.Violation{{Severity: domain.SeverityWarn, Message: "Last seating offset is longer than the opening window"}}
		}
		return nil
	}})
	return rules
}
