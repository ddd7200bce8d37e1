package validation

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ParseNumber reads a number after dropping currency symbols, thousands
// separators, percent signs and whitespace.
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', '%':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Compare applies op to an actual and expected value.
// Ordering operators compare numerically when both sides parse and fall
// back to plain string ordering otherwise.
func Compare(actual string, op domain.Operator, expected string) bool {
	a, aok := ParseNumber(actual)
	e, eok := ParseNumber(expected)
	numeric := aok && eok
	as, es := strings.TrimSpace(actual), strings.TrimSpace(expected)

	switch op {
	case domain.OpGreaterThan:
		if numeric {
			return a > e
		}
		return as > es
	case domain.OpLessThan:
		if numeric {
			return a < e
		}
		return as < es
	case domain.OpGreaterThanOrEqual:
		if numeric {
			return a >= e
		}
		return as >= es
	case domain.OpLessThanOrEqual:
		if numeric {
			return a <= e
		}
		return as <= es
	case domain.OpEquals:
		if numeric {
			return a == e
		}
		return strings.EqualFold(as, es)
	case domain.OpNotEquals:
		if numeric {
			return a != e
		}
		return !strings.EqualFold(as, es)
	case domain.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case domain.OpNotContains:
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	default:
		return false
	}
}
