package venue

import (
	"strings"

	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

// SeatOptions is the schema of the per-venue seat type collection.
type SeatOptions struct{}

var _ draft.Schema[domain.SeatType, domain.SeatOptionFields] = SeatOptions{}

var (
	seatKeys  = draft.FixedKeys(domain.SeatTypes(), domain.ParseSeatType)
	seatRules = newSeatRules()

	defaultMaxParty = map[domain.SeatType]int{
		domain.SeatTable:   6,
		domain.SeatBar:     2,
		domain.SeatCounter: 2,
	}
)

// Kind implements draft.Schema.
func (SeatOptions) Kind() domain.EntityKind { return domain.KindSeatOption }

// KeySpace implements draft.Schema.
func (SeatOptions) KeySpace() draft.KeySpace[domain.SeatType] { return seatKeys }

// Defaults enables the seat type for parties of one up to a per-type
// maximum. The available count is left for the operator to fill in.
func (SeatOptions) Defaults(key domain.SeatType) domain.SeatOptionFields {
	maxParty, ok := defaultMaxParty[key]
	if !ok {
		maxParty = 2
	}
	return domain.SeatOptionFields{
		Enabled:      true,
		MinPartySize: intPtr(1),
		MaxPartySize: intPtr(maxParty),
	}
}

// Clone implements draft.Schema.
func (SeatOptions) Clone(f domain.SeatOptionFields) domain.SeatOptionFields {
	cp := f
	cp.AvailableCount = cloneInt(f.AvailableCount)
	cp.MinPartySize = cloneInt(f.MinPartySize)
	cp.MaxPartySize = cloneInt(f.MaxPartySize)
	cp.Restrictions.MinimumSpend = cloneInt(f.Restrictions.MinimumSpend)
	return cp
}

// Normalize drops the minimum spend when its gate is off and trims notes.
func (SeatOptions) Normalize(f domain.SeatOptionFields) domain.SeatOptionFields {
	if !f.Restrictions.MinimumSpendEnabled {
		f.Restrictions.MinimumSpend = nil
	}
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// Equal implements draft.Schema.
func (SeatOptions) Equal(a, b domain.SeatOptionFields) bool {
	return a.Enabled == b.Enabled &&
		equalInt(a.AvailableCount, b.AvailableCount) &&
		equalInt(a.MinPartySize, b.MinPartySize) &&
		equalInt(a.MaxPartySize, b.MaxPartySize) &&
		a.Restrictions.MinimumSpendEnabled == b.Restrictions.MinimumSpendEnabled &&
		equalInt(a.Restrictions.MinimumSpend, b.Restrictions.MinimumSpend) &&
		a.Restrictions.DepositRequired == b.Restrictions.DepositRequired &&
		a.Notes == b.Notes
}

// Reconcile keeps the party size range ordered.
func (SeatOptions) Reconcile(before domain.SeatOptionFields, after *domain.SeatOptionFields) {
	reconcileBounds(before.MinPartySize, before.MaxPartySize, &after.MinPartySize, &after.MaxPartySize)
}

// Fields implements draft.Schema.
func (SeatOptions) Fields() draft.FieldSet[domain.SeatOptionFields] {
	type F = domain.SeatOptionFields
	return draft.FieldSet[F]{
		"enabled":                            draft.BoolField(func(f *F) *bool { return &f.Enabled }),
		"available_count":                    draft.IntField(func(f *F) **int { return &f.AvailableCount }),
		"min_party_size":                     draft.IntField(func(f *F) **int { return &f.MinPartySize }),
		"max_party_size":                     draft.IntField(func(f *F) **int { return &f.MaxPartySize }),
		"restrictions.minimum_spend_enabled": draft.BoolField(func(f *F) *bool { return &f.Restrictions.MinimumSpendEnabled }),
		"restrictions.minimum_spend":         draft.IntField(func(f *F) **int { return &f.Restrictions.MinimumSpend }),
		"restrictions.deposit_required":      draft.BoolField(func(f *F) *bool { return &f.Restrictions.DepositRequired }),
		"notes":                              draft.StringField(func(f *F) *string { return &f.Notes }),
	}
}

// Rules implements draft.Schema.
func (SeatOptions) Rules() *domain.RuleSet[domain.SeatOptionFields] { return seatRules }

func newSeatRules() *domain.RuleSet[domain.SeatOptionFields] {
	type F = domain.SeatOptionFields
	rules := domain.NewRuleSet[F](domain.KindSeatOption)
	rules.Register(domain.RuleFunc[F]{RuleName: "available_count_positive", Fn: func(f F) []domain.Violation {
		if f.Enabled && (f.AvailableCount == nil || *f.AvailableCount <= 0) {
			return []domain.Violation{{Message: "Available count must be > 0 when seating is enabled"}}
		}
		return nil
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "party_size_positive", Fn: func(f F) []domain.Violation {
		var out []domain.Violation
		if f.MinPartySize != nil && *f.MinPartySize <= 0 {
			out = append(out, domain.Violation{Message: "Minimum party size must be > 0"})
		}
		if f.MaxPartySize != nil && *f.MaxPartySize <= 0 {
			out = append(out, domain.Violation{Message: "Maximum party size must be > 0"})
		}
		return out
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "party_size_order", Fn: func(f F) []domain.Violation {
		if f.MinPartySize != nil && f.MaxPartySize != nil && *f.MinPartySize > *f.MaxPartySize {
			return []domain.Violation{{Message: "Minimum party size must not exceed maximum party size"}}
		}
		return nil
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "minimum_spend_positive", Fn: func(f F) []domain.Violation {
		if f.Restrictions.MinimumSpendEnabled && (f.Restrictions.MinimumSpend == nil || *f.Restrictions.MinimumSpend <= 0) {
			return []domain.Violation{{Message: "Minimum spend must be > 0 when a minimum spend applies"}}
		}
		return nil
	}})
	rules.Register(domain.RuleFunc[F]{RuleName: "party_exceeds_inventory", Fn: func(f F) []domain.Violation {
		if f.Enabled && f.AvailableCount != nil && f.MinPartySize != nil && *f.AvailableCount > 0 && *f.MinPartySize > *f.AvailableCount {
			return []domain.Violation{{Severity: domain.SeverityWarn, Message: "Minimum party size exceeds the available count"}}
		}
		return nil
	}})
	return rules
}
