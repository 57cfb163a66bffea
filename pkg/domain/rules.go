package domain

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine save behavior and logging.
const (
	// SeverityBlock blocks a save.
	SeverityBlock Severity = "block"
	// SeverityWarn is surfaced to the operator but allows the save.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation for one collection member.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityKind `json:"entity"`
	Key      string     `json:"key"`
}

// Result aggregates violations from a rule set.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks a save.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns only the violations that block a save.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// Rule checks one business invariant against the editable fields of a
// collection member. Rules are pure: they see nothing but the fields.
type Rule[F any] interface {
	Name() string
	Evaluate(fields F) []Violation
}

// RuleFunc adapts a function into a named Rule.
type RuleFunc[F any] struct {
	RuleName string
	Fn       func(fields F) []Violation
}

// Name implements Rule.
func (r RuleFunc[F]) Name() string { return r.RuleName }

// Evaluate implements Rule.
func (r RuleFunc[F]) Evaluate(fields F) []Violation { return r.Fn(fields) }

// RuleSet orchestrates rule evaluation for one entity kind.
type RuleSet[F any] struct {
	kind  EntityKind
	rules []Rule[F]
}

// NewRuleSet constructs an empty rule set for the kind.
func NewRuleSet[F any](kind EntityKind) *RuleSet[F] {
	return &RuleSet[F]{kind: kind}
}

// Register appends a rule to the set.
func (s *RuleSet[F]) Register(rule Rule[F]) {
	s.rules = append(s.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (s *RuleSet[F]) Rules() []Rule[F] {
	return append([]Rule[F](nil), s.rules...)
}

// Evaluate runs every rule and stamps the results with the entity kind, the
// member key and the rule name where the rule left them blank.
func (s *RuleSet[F]) Evaluate(key string, fields F) Result {
	var combined Result
	for _, rule := range s.rules {
		for _, v := range rule.Evaluate(fields) {
			if v.Rule == "" {
				v.Rule = rule.Name()
			}
			if v.Severity == "" {
				v.Severity = SeverityBlock
			}
			if v.Entity == "" {
				v.Entity = s.kind
			}
			if v.Key == "" {
				v.Key = key
			}
			combined.Violations = append(combined.Violations, v)
		}
	}
	return combined
}
