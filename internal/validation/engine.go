// Package validation evaluates user-authored rules against fields extracted
// from documents and produces a pass/fail/pending verdict.
package validation

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine evaluates validation rules. It is safe for concurrent use.
type Engine struct {
	exprs  *expressions
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for expression failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the verdict timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a validation engine.
func NewEngine(opts ...Option) (*Engine, error) {
	exprs, err := newExpressions()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		exprs:  exprs,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CheckExpression compiles expr so invalid rules can be rejected before
// they are stored. An empty expression is valid.
func (e *Engine) CheckExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := e.exprs.program(expr)
	return err
}

// CachedPrograms reports how many compiled expressions are cached.
func (e *Engine) CachedPrograms() int {
	return e.exprs.size()
}

// record indexes extracted fields by trimmed, lower-cased label.
type record struct {
	values  map[string]string
	numbers map[string]float64
}

// LabelKey normalizes a field label for lookup.
func LabelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func newRecord(fields []domain.ExtractedField) record {
	rec := record{
		values:  make(map[string]string, len(fields)),
		numbers: make(map[string]float64, len(fields)),
	}
	for _, f := range fields {
		key := LabelKey(f.Label)
		if key == "" {
			continue
		}
		rec.values[key] = f.Value
		if n, ok := ParseNumber(f.Value); ok {
			rec.numbers[key] = n
		}
	}
	return rec
}

// Evaluate runs every enabled rule against fields. With no enabled rules
// the verdict is pending.
func (e *Engine) Evaluate(fields []domain.ExtractedField, rules []domain.ValidationRule) domain.Verdict {
	rec := newRecord(fields)
	verdict := domain.Verdict{
		Status:      domain.VerdictPending,
		Results:     []domain.RuleResult{},
		EvaluatedAt: e.now().UTC(),
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		verdict.Results = append(verdict.Results, e.evaluateRule(rule, rec))
	}
	if len(verdict.Results) == 0 {
		return verdict
	}

	verdict.Status = domain.VerdictPass
	for _, r := range verdict.Results {
		if !r.Passed {
			verdict.Status = domain.VerdictFail
			break
		}
	}
	return verdict
}

func (e *Engine) evaluateRule(rule domain.ValidationRule, rec record) domain.RuleResult {
	result := domain.RuleResult{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Action:     rule.Action,
		Conditions: make([]domain.ConditionResult, 0, len(rule.Conditions)),
	}

	for _, c := range rule.Conditions {
		cr := domain.ConditionResult{
			Field:    c.Field,
			Operator: c.Operator,
			Expected: c.Value,
			Actual:   domain.NotAvailable,
		}
		if actual, ok := rec.values[LabelKey(c.Field)]; ok {
			cr.Actual = actual
			cr.Matched = Compare(actual, c.Operator, c.Value)
		}
		result.Conditions = append(result.Conditions, cr)
	}

	hasExpr := strings.TrimSpace(rule.Expression) != ""
	switch {
	case len(result.Conditions) == 0 && !hasExpr:
		result.Matched = false
	case len(result.Conditions) == 0:
		result.Matched = true
	default:
		result.Matched = combine(rule.Logic, result.Conditions)
	}

	if hasExpr && result.Matched {
		ok, err := e.exprs.eval(rule.Expression, rec)
		if err != nil {
			e.logger.Warn("validation expression failed",
				"rule_id", rule.ID,
				"error", err,
			)
			result.Error = err.Error()
		}
		result.Matched = ok && err == nil
	}

	if rule.Action == domain.ActionPass {
		result.Passed = result.Matched
	} else {
		result.Passed = !result.Matched
	}
	result.Message = message(rule, result.Passed)
	return result
}

func combine(logic domain.RuleLogic, conds []domain.ConditionResult) bool {
	if logic == domain.LogicAny {
		for _, c := range conds {
			if c.Matched {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !c.Matched {
			return false
		}
	}
	return true
}

func message(rule domain.ValidationRule, passed bool) string {
	if passed {
		return fmt.Sprintf("%s passed", rule.Name)
	}
	if rule.Message != "" {
		return rule.Message
	}
	return fmt.Sprintf("%s failed", rule.Name)
}
