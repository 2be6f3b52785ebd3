package advisory

import (
	"strings"
)

// HealthCondition is a pre-existing condition a user can declare.
type HealthCondition int

const (
	ConditionNone HealthCondition = iota
	ConditionAsthma
	ConditionDiabetes
	ConditionHighBP
)

var conditionLabels = map[HealthCondition]string{
	ConditionNone:     "None",
	ConditionAsthma:   "Asthma",
	ConditionDiabetes: "Diabetes",
	ConditionHighBP:   "High BP",
}

// String returns the label used on the wire.
func (c HealthCondition) String() string {
	if label, ok := conditionLabels[c]; ok {
		return label
	}
	return "Unknown"
}

// ParseCondition maps a client label to a condition. Matching ignores case
// and whitespace so "High BP", "high bp" and "HighBP" are the same condition.
func ParseCondition(label string) (HealthCondition, bool) {
	switch canonicalLabel(label) {
	case "none":
		return ConditionNone, true
	case "asthma":
		return ConditionAsthma, true
	case "diabetes":
		return ConditionDiabetes, true
	case "highbp":
		return ConditionHighBP, true
	default:
		return 0, false
	}
}

func canonicalLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), ""))
}

// Conditions is the set of real conditions a profile carries. None is never a
// member; an empty set means "None".
type Conditions map[HealthCondition]struct{}

// NewConditions builds a set from the given conditions, dropping None.
func NewConditions(items ...HealthCondition) Conditions {
	set := make(Conditions, len(items))
	for _, item := range items {
		if item == ConditionNone {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

// ParseConditions converts client labels into a set. Unknown labels and None
// are ignored.
func ParseConditions(labels []string) Conditions {
	set := make(Conditions, len(labels))
	for _, label := range labels {
		cond, ok := ParseCondition(label)
		if !ok || cond == ConditionNone {
			continue
		}
		set[cond] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the condition.
func (c Conditions) Has(cond HealthCondition) bool {
	_, ok := c[cond]
	return ok
}

// Selection is the checkbox state collected from the user. It keeps None
// exclusive with every other condition.
type Selection struct {
	items []HealthCondition
}

// Toggle applies one checkbox change. Checking None clears every other
// condition; checking anything else clears None.
func (s *Selection) Toggle(cond HealthCondition, checked bool) {
	if cond == ConditionNone {
		if checked {
			s.items = []HealthCondition{ConditionNone}
		} else {
			s.items = nil
		}
		return
	}

	filtered := make([]HealthCondition, 0, len(s.items)+1)
	for _, item := range s.items {
		if item == ConditionNone || item == cond {
			continue
		}
		filtered = append(filtered, item)
	}
	if checked {
		filtered = append(filtered, cond)
	}
	s.items = filtered
}

// Items returns the selected conditions in the order they were checked.
func (s Selection) Items() []HealthCondition {
	out := make([]HealthCondition, len(s.items))
	copy(out, s.items)
	return out
}

// Labels returns the wire labels of the selection.
func (s Selection) Labels() []string {
	out := make([]string, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.String())
	}
	return out
}

// Conditions returns the selection as an evaluator input.
func (s Selection) Conditions() Conditions {
	return NewConditions(s.items...)
}
