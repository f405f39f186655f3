// Package validation holds the pure field validators used by the wizard steps.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Rule declares the constraints of one field. Zero values disable a check.
type Rule struct {
	Required  bool
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
	Pattern   *regexp.Regexp
	// PatternCode replaces the generic "pattern" code, e.g. "phone".
	PatternCode string
	// Normalize is applied before the pattern check only.
	Normalize func(string) string
}

// Check returns the first constraint the value violates, or nil.
func (r Rule) Check(value string) *Problem {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if r.Required {
			return &Problem{Code: CodeRequired}
		}
		return nil
	}

	n := utf8.RuneCountInString(trimmed)
	if r.MinLength > 0 && n < r.MinLength {
		return &Problem{Code: CodeMinLength, Params: map[string]any{"min": r.MinLength}}
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return &Problem{Code: CodeMaxLength, Params: map[string]any{"max": r.MaxLength}}
	}

	if r.Min != nil || r.Max != nil {
		num, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			return &Problem{Code: CodeNotANumber}
		}
		if r.Min != nil && num < *r.Min {
			return &Problem{Code: CodeMinValue, Params: map[string]any{"min": formatNumber(*r.Min)}}
		}
		if r.Max != nil && num > *r.Max {
			return &Problem{Code: CodeMaxValue, Params: map[string]any{"max": formatNumber(*r.Max)}}
		}
	}

	if r.Pattern != nil {
		candidate := trimmed
		if r.Normalize != nil {
			candidate = r.Normalize(candidate)
		}
		if !r.Pattern.MatchString(candidate) {
			code := r.PatternCode
			if code == "" {
				code = CodePattern
			}
			return &Problem{Code: code}
		}
	}

	return nil
}

// Rules maps field names to their rule.
type Rules map[string]Rule

// CheckAll validates every field that has a rule and returns problems for
// exactly the failing fields. Fields without a rule are ignored.
func CheckAll(rules Rules, input map[string]string) map[string]Problem {
	problems := make(map[string]Problem)
	for field, rule := range rules {
		if p := rule.Check(input[field]); p != nil {
			problems[field] = *p
		}
	}
	return problems
}

// Float is a helper for declaring numeric bounds inline.
func Float(v float64) *float64 {
	return &v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
