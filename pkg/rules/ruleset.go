package rules

import (
	"sort"
)

// RuleSet is an immutable snapshot of the compatibility rules, grouped by
// source type and kept in insertion order.
type RuleSet struct {
	all      []CompatibilityRule
	bySource map[uint][]CompatibilityRule
}

// NewRuleSet builds a rule set. Rules are ordered by creation time, ties
// broken by id.
func NewRuleSet(rules []CompatibilityRule) *RuleSet {
	sorted := make([]CompatibilityRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	bySource := make(map[uint][]CompatibilityRule)
	for _, r := range sorted {
		bySource[r.SourceTypeID] = append(bySource[r.SourceTypeID], r)
	}
	return &RuleSet{all: sorted, bySource: bySource}
}

// RulesFor returns the rules whose source is the given component type.
func (s *RuleSet) RulesFor(sourceTypeID uint) []CompatibilityRule {
	return s.bySource[sourceTypeID]
}

// All returns every rule in order.
func (s *RuleSet) All() []CompatibilityRule {
	out := make([]CompatibilityRule, len(s.all))
	copy(out, s.all)
	return out
}

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.all) }
