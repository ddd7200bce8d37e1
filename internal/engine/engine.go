package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine runs a rule table over inputs of type T.
// It holds no mutable state after construction and is safe for concurrent use.
type Engine[T any] struct {
	rules     []Rule[T]
	variantOf func(T) string
	logger    *slog.Logger
}

// Option configures an Engine.
type Option[T any] func(*Engine[T])

// WithVariant sets the function that picks an input's variant for rule
// filtering.
func WithVariant[T any](fn func(T) string) Option[T] {
	return func(e *Engine[T]) {
		e.variantOf = fn
	}
}

// WithLogger sets the logger used for predicate failures.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(e *Engine[T]) {
		e.logger = logger
	}
}

// New creates an engine over rules. Rule codes must be unique and every
// rule needs a predicate.
func New[T any](rules []Rule[T], opts ...Option[T]) (*Engine[T], error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Code == "" {
			return nil, fmt.Errorf("rule %q has no code", r.Name)
		}
		if seen[r.Code] {
			return nil, fmt.Errorf("duplicate rule code %s", r.Code)
		}
		if r.Predicate == nil {
			return nil, fmt.Errorf("rule %s has no predicate", r.Code)
		}
		seen[r.Code] = true
	}

	e := &Engine[T]{
		rules:  append([]Rule[T](nil), rules...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns a copy of the rule table.
func (e *Engine[T]) Rules() []Rule[T] {
	return append([]Rule[T](nil), e.rules...)
}

// Result is the aggregated outcome of one evaluation.
type Result struct {
	// Signals are sorted critical first, stable within a severity.
	Signals []domain.Signal

	// Scores holds, per dimension, the sum of positive impacts capped at 100.
	Scores map[domain.Dimension]int

	// Net is the signed sum of all impacts, unclamped.
	Net int
}

// Score returns the capped score of a dimension.
func (r Result) Score(d domain.Dimension) int {
	return r.Scores[d]
}

// Evaluate applies every applicable rule to input.
func (e *Engine[T]) Evaluate(input T) Result {
	res := Result{
		Signals: []domain.Signal{},
		Scores:  map[domain.Dimension]int{},
	}

	variant := ""
	if e.variantOf != nil {
		variant = e.variantOf(input)
	}

	sums := map[domain.Dimension]int{}
	for _, r := range e.rules {
		if !r.appliesTo(variant) {
			continue
		}
		out := e.apply(r, input)
		if !out.Triggered {
			continue
		}

		impact := Impact(r.BaseWeight, out.Confidence)
		dim := r.dimension()
		if impact > 0 {
			sums[dim] += impact
		}
		res.Net += impact

		desc := out.Detail
		if desc == "" {
			desc = r.Description
		}
		res.Signals = append(res.Signals, domain.Signal{
			ID:              uuid.New().String(),
			Code:            r.Code,
			Name:            r.Name,
			Description:     desc,
			Severity:        r.Severity,
			Dimension:       dim,
			Confidence:      out.Confidence,
			ImpactedFields:  append([]string(nil), r.ImpactedFields...),
			ScoreImpact:     impact,
			RemediationHint: r.Remediation,
		})
	}

	for dim, sum := range sums {
		res.Scores[dim] = min(100, sum)
	}

	sort.SliceStable(res.Signals, func(i, j int) bool {
		return res.Signals[i].Severity.Rank() < res.Signals[j].Severity.Rank()
	})
	return res
}

// apply runs one predicate. A panic is logged and treated as not triggered.
func (e *Engine[T]) apply(r Rule[T], input T) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("rule predicate panicked",
				"rule", r.Code,
				"panic", rec,
			)
			out = Miss
		}
	}()

	out = r.Predicate(input)
	if !out.Triggered {
		return Miss
	}
	out.Confidence = Clamp(out.Confidence, 0, 100)
	return out
}
