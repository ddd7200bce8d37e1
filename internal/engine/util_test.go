package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestImpact(t *testing.T) {
	// Halves round up.
	tests := []struct {
		weight, confidence, want int
	}{
		{25, 90, 23},
		{30, 100, 30},
		{15, 90, 14},
		{25, 95, 24},
		{20, 95, 19},
		{10, 60, 6},
		{15, 70, 11},
		{-10, 100, -10},
		{-5, 50, -2},
		{0, 100, 0},
	}
	for _, tt := range tests {
		if got := Impact(tt.weight, tt.confidence); got != tt.want {
			t.Errorf("Impact(%d, %d) = %d, want %d", tt.weight, tt.confidence, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(55, -40, 40) != 40 || Clamp(-55, -40, 40) != -40 || Clamp(12, -40, 40) != 12 {
		t.Error("Clamp returned unexpected values")
	}
}

func TestThresholds(t *testing.T) {
	th, err := NewThresholds(domain.DefaultFraudTiers(), domain.FraudTierOrder()...)
	if err != nil {
		t.Fatalf("NewThresholds failed: %v", err)
	}

	tests := []struct {
		score int
		want  string
	}{
		{0, domain.RiskLow},
		{29, domain.RiskLow},
		{30, domain.RiskMedium},
		{59, domain.RiskMedium},
		{60, domain.RiskHigh},
		{100, domain.RiskHigh},
	}
	for _, tt := range tests {
		if got := th.Tier(tt.score); got != tt.want {
			t.Errorf("Tier(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
	if th.Best() != domain.RiskLow || th.Worst() != domain.RiskHigh {
		t.Errorf("unexpected best/worst: %s/%s", th.Best(), th.Worst())
	}
}

func TestUnderwritingThresholds(t *testing.T) {
	th := MustThresholds(domain.DefaultUnderwritingTiers())
	cases := map[int]string{
		0: domain.TierPreferred, 24: domain.TierPreferred,
		25: domain.TierStandard, 49: domain.TierStandard,
		50: domain.TierSubstandard, 69: domain.TierSubstandard,
		70: domain.TierDecline, 100: domain.TierDecline,
	}
	for score, want := range cases {
		if got := th.Tier(score); got != want {
			t.Errorf("Tier(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestNewThresholdsInvalid(t *testing.T) {
	fraudTiers := domain.FraudTierOrder()
	tests := []struct {
		name  string
		bands []domain.TierBand
		tiers []string
	}{
		{"empty", nil, nil},
		{"not from zero", []domain.TierBand{{Tier: "a", Lower: 5}}, nil},
		{"not ascending", []domain.TierBand{{Tier: "a", Lower: 0}, {Tier: "b", Lower: 0}}, nil},
		{"renamed tiers", []domain.TierBand{{Tier: "green", Lower: 0}, {Tier: "amber", Lower: 30}, {Tier: "red", Lower: 60}}, fraudTiers},
		{"missing tier", []domain.TierBand{{Tier: domain.RiskLow, Lower: 0}, {Tier: domain.RiskHigh, Lower: 60}}, fraudTiers},
		{"tiers out of order", []domain.TierBand{{Tier: domain.RiskLow, Lower: 0}, {Tier: domain.RiskHigh, Lower: 30}, {Tier: domain.RiskMedium, Lower: 60}}, fraudTiers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholds(tt.bands, tt.tiers...)
			if !errors.Is(err, ErrInvalidBands) {
				t.Errorf("expected ErrInvalidBands, got %v", err)
			}
		})
	}
}

func TestRunBatchPreservesOrder(t *testing.T) {
	inputs := make([]int, 200)
	for i := range inputs {
		inputs[i] = i
	}

	out, err := RunBatch(context.Background(), inputs, 7, func(n int) int { return n * n })
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("result %d: expected %d, got %d", i, i*i, v)
		}
	}
}

func TestRunBatchEmpty(t *testing.T) {
	out, err := RunBatch(context.Background(), []int{}, 4, func(n int) int { return n })
	if err != nil || len(out) != 0 {
		t.Errorf("expected empty result, got %v %v", out, err)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, []int{1, 2, 3}, 2, func(n int) int { return n })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMean(t *testing.T) {
	if Mean(nil) != 0 {
		t.Error("expected 0 for empty input")
	}
	if got := Mean([]float64{10, 20, 60}); got != 30 {
		t.Errorf("expected 30, got %f", got)
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{60000, "$60,000"},
		{500, "$500"},
		{1234.5, "$1,234.50"},
		{1e20, "$100,000,000,000,000,000,000"},
	}
	for _, tt := range tests {
		if got := Money(tt.in); got != tt.want {
			t.Errorf("Money(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Number(12000) != "12,000" {
		t.Errorf("Number(12000) = %q", Number(12000))
	}
}

func TestSeverityPhrase(t *testing.T) {
	tests := []struct {
		counts domain.SeverityCounts
		want   string
	}{
		{domain.SeverityCounts{}, "none"},
		{domain.SeverityCounts{Critical: 2}, "2 critical"},
		{domain.SeverityCounts{Critical: 2, Warning: 1}, "2 critical and 1 warning"},
		{domain.SeverityCounts{Critical: 1, Warning: 2, Info: 1}, "1 critical, 2 warnings and 1 informational"},
	}
	for _, tt := range tests {
		if got := SeverityPhrase(tt.counts); got != tt.want {
			t.Errorf("SeverityPhrase(%+v) = %q, want %q", tt.counts, got, tt.want)
		}
	}
	if Plural(1, "signal", "signals") != "1 signal" || Plural(0, "signal", "signals") != "0 signals" {
		t.Error("Plural returned unexpected values")
	}
}
