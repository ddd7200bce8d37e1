// Package engine evaluates static rule tables against typed inputs and turns
// the triggered rules into weighted, tiered signals.
package engine

import (
	"github.com/opensource-finance/harrier/internal/domain"
)

// Outcome is the result of applying one rule predicate.
type Outcome struct {
	Triggered  bool
	Confidence int
	Detail     string
}

// Hit returns a triggered outcome.
func Hit(confidence int, detail string) Outcome {
	return Outcome{Triggered: true, Confidence: confidence, Detail: detail}
}

// Miss is the not-triggered outcome.
var Miss = Outcome{}

// Rule is one entry of a static rule table.
type Rule[T any] struct {
	Code        string
	Name        string
	Description string
	Severity    domain.Severity

	// Dimension is the bucket the impact accumulates into. Empty means risk.
	Dimension domain.Dimension

	// BaseWeight is the impact at full confidence. Negative weights are
	// discounts.
	BaseWeight int

	// Variants restricts the rule to inputs of these variants. Empty applies
	// to all.
	Variants []string

	// Predicate must be pure. A nil field it depends on yields Miss.
	Predicate func(T) Outcome

	ImpactedFields []string
	Remediation    string
}

func (r Rule[T]) dimension() domain.Dimension {
	if r.Dimension == "" {
		return domain.DimensionRisk
	}
	return r.Dimension
}

func (r Rule[T]) appliesTo(variant string) bool {
	if len(r.Variants) == 0 {
		return true
	}
	for _, v := range r.Variants {
		if v == variant {
			return true
		}
	}
	return false
}
