package engine

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

type probe struct {
	kind  string
	value int
}

func fixedRule(code string, sev domain.Severity, weight, confidence int) Rule[probe] {
	return Rule[probe]{
		Code:        code,
		Name:        "Rule " + code,
		Description: "static " + code,
		Severity:    sev,
		BaseWeight:  weight,
		Predicate: func(p probe) Outcome {
			if p.value == 0 {
				return Miss
			}
			return Hit(confidence, "")
		},
	}
}

func TestNewRejectsDuplicateCodes(t *testing.T) {
	_, err := New([]Rule[probe]{
		fixedRule("R1", domain.SeverityInfo, 10, 100),
		fixedRule("R1", domain.SeverityInfo, 10, 100),
	})
	if err == nil {
		t.Error("expected error for duplicate codes")
	}
}

func TestNewRejectsMissingPredicate(t *testing.T) {
	_, err := New([]Rule[probe]{{Code: "R1"}})
	if err == nil {
		t.Error("expected error for nil predicate")
	}
}

func TestEvaluateNoTrigger(t *testing.T) {
	e, err := New([]Rule[probe]{fixedRule("R1", domain.SeverityCritical, 30, 100)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res := e.Evaluate(probe{})
	if len(res.Signals) != 0 {
		t.Errorf("expected no signals, got %d", len(res.Signals))
	}
	if res.Signals == nil {
		t.Error("expected empty, non-nil signals")
	}
	if res.Score(domain.DimensionRisk) != 0 || res.Net != 0 {
		t.Errorf("expected zero scores, got %v net %d", res.Scores, res.Net)
	}
}

func TestEvaluateAggregation(t *testing.T) {
	e, _ := New([]Rule[probe]{
		fixedRule("INFO", domain.SeverityInfo, 10, 60),
		fixedRule("WARN", domain.SeverityWarning, 25, 90),
		fixedRule("CRIT", domain.SeverityCritical, 30, 100),
		fixedRule("DISC", domain.SeverityInfo, -10, 100),
	})

	res := e.Evaluate(probe{value: 1})

	// 6 + 23 + 30 positive; discount only moves the net.
	if got := res.Score(domain.DimensionRisk); got != 59 {
		t.Errorf("expected risk score 59, got %d", got)
	}
	if res.Net != 49 {
		t.Errorf("expected net 49, got %d", res.Net)
	}

	wantOrder := []string{"CRIT", "WARN", "INFO", "DISC"}
	for i, code := range wantOrder {
		if res.Signals[i].Code != code {
			t.Errorf("signal %d: expected %s, got %s", i, code, res.Signals[i].Code)
		}
	}
	if res.Signals[2].Description != "static INFO" {
		t.Errorf("expected static description fallback, got %q", res.Signals[2].Description)
	}
	if res.Signals[0].ID == "" || res.Signals[0].ID == res.Signals[1].ID {
		t.Error("expected unique signal IDs")
	}
}

func TestEvaluateCapsAt100(t *testing.T) {
	var rules []Rule[probe]
	for _, code := range []string{"A", "B", "C", "D", "E"} {
		rules = append(rules, fixedRule(code, domain.SeverityWarning, 30, 100))
	}
	e, _ := New(rules)

	res := e.Evaluate(probe{value: 1})
	if got := res.Score(domain.DimensionRisk); got != 100 {
		t.Errorf("expected capped score 100, got %d", got)
	}
	if res.Net != 150 {
		t.Errorf("expected unclamped net 150, got %d", res.Net)
	}
}

func TestEvaluateDimensions(t *testing.T) {
	risk := fixedRule("RISK", domain.SeverityWarning, 20, 100)
	profit := fixedRule("PROF", domain.SeverityWarning, 15, 100)
	profit.Dimension = domain.DimensionProfitability

	e, _ := New([]Rule[probe]{risk, profit})
	res := e.Evaluate(probe{value: 1})

	if res.Score(domain.DimensionRisk) != 20 {
		t.Errorf("expected risk 20, got %d", res.Score(domain.DimensionRisk))
	}
	if res.Score(domain.DimensionProfitability) != 15 {
		t.Errorf("expected profitability 15, got %d", res.Score(domain.DimensionProfitability))
	}
	if res.Signals[0].Dimension != domain.DimensionRisk {
		t.Errorf("expected default dimension risk, got %s", res.Signals[0].Dimension)
	}
}

func TestEvaluateVariants(t *testing.T) {
	a := fixedRule("ONLY_A", domain.SeverityInfo, 10, 100)
	a.Variants = []string{"a"}
	b := fixedRule("ONLY_B", domain.SeverityInfo, 10, 100)
	b.Variants = []string{"b"}
	all := fixedRule("ALL", domain.SeverityInfo, 10, 100)

	e, _ := New([]Rule[probe]{a, b, all}, WithVariant(func(p probe) string { return p.kind }))

	res := e.Evaluate(probe{kind: "a", value: 1})
	if len(res.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(res.Signals))
	}
	for _, s := range res.Signals {
		if s.Code == "ONLY_B" {
			t.Error("rule for variant b applied to variant a")
		}
	}
}

func TestEvaluateRecoversPanic(t *testing.T) {
	boom := Rule[probe]{
		Code:       "BOOM",
		BaseWeight: 50,
		Predicate: func(probe) Outcome {
			var m map[string]*int
			return Hit(*m["missing"], "")
		},
	}
	e, _ := New([]Rule[probe]{boom, fixedRule("OK", domain.SeverityInfo, 10, 100)})

	res := e.Evaluate(probe{value: 1})
	if len(res.Signals) != 1 || res.Signals[0].Code != "OK" {
		t.Errorf("expected only OK signal, got %+v", res.Signals)
	}
}

func TestEvaluateClampsConfidence(t *testing.T) {
	e, _ := New([]Rule[probe]{fixedRule("HIGH", domain.SeverityInfo, 10, 150)})
	res := e.Evaluate(probe{value: 1})
	if res.Signals[0].Confidence != 100 || res.Signals[0].ScoreImpact != 10 {
		t.Errorf("expected confidence 100 impact 10, got %+v", res.Signals[0])
	}
}
