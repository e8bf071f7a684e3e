// Package validation provides a rule-table validator. Entities expose their
// constraints as explicit rule slices instead of struct tags, and callers run
// Apply to collect every violation keyed by field.
package validation

// Rule is a single named constraint on a field.
type Rule struct {
	Field   string
	Message string
	Valid   func() bool
}

// Violations maps a field name to the messages of every rule it failed.
type Violations map[string][]string

// Apply runs every rule and collects failures. A nil result means the rule
// table passed.
func Apply(rules []Rule) Violations {
	var violations Violations
	for _, rule := range rules {
		if rule.Valid() {
			continue
		}
		if violations == nil {
			violations = make(Violations)
		}
		violations[rule.Field] = append(violations[rule.Field], rule.Message)
	}
	return violations
}

// Merge folds other into v, prefixing each field with the given path.
// Used to attach nested entity violations under their parent.
func (v Violations) Merge(prefix string, other Violations) Violations {
	if len(other) == 0 {
		return v
	}
	merged := v
	if merged == nil {
		merged = make(Violations)
	}
	for field, msgs := range other {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		merged[key] = append(merged[key], msgs...)
	}
	return merged
}
