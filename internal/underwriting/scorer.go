// Package underwriting scores insurance applications for risk and
// profitability and prices them.
package underwriting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/intake"
)

// ErrUnknownApplicantType is returned for an application that is neither
// individual nor company.
var ErrUnknownApplicantType = errors.New("unknown applicant type")

// Adjustment bounds in percent.
const (
	MinAdjustment = -40
	MaxAdjustment = 40
)

// Scorer runs the underwriting rule table over applications.
type Scorer struct {
	engine  *engine.Engine[domain.ApplicationInput]
	tiers   *engine.Thresholds
	workers int
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		s.workers = n
	}
}

// WithClock overrides the evaluation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a scorer over the default rule table.
func NewScorer(tiers []domain.TierBand, opts ...Option) (*Scorer, error) {
	return NewScorerWithRules(DefaultRules(), tiers, opts...)
}

// NewScorerWithRules creates a scorer over a custom rule table.
func NewScorerWithRules(rules []Rule, tiers []domain.TierBand, opts ...Option) (*Scorer, error) {
	th, err := engine.NewThresholds(tiers, domain.UnderwritingTierOrder()...)
	if err != nil {
		return nil, fmt.Errorf("underwriting tiers: %w", err)
	}

	s := &Scorer{
		tiers:   th,
		workers: 8,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	eng, err := engine.New(rules,
		engine.WithVariant(func(a domain.ApplicationInput) string { return string(a.ApplicantType) }),
		engine.WithLogger[domain.ApplicationInput](s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("underwriting rules: %w", err)
	}
	s.engine = eng
	return s, nil
}

// Rules returns the rule table.
func (s *Scorer) Rules() []Rule {
	return s.engine.Rules()
}

// Score evaluates and prices one application.
func (s *Scorer) Score(app domain.ApplicationInput) (*domain.UnderwritingAssessment, error) {
	if !app.ApplicantType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApplicantType, app.ApplicantType)
	}

	res := s.engine.Evaluate(app)
	risk := res.Score(domain.DimensionRisk)
	profitability := res.Score(domain.DimensionProfitability)
	tier := s.tiers.Tier(risk)
	adjustment := engine.Clamp(res.Net, MinAdjustment, MaxAdjustment)
	premium := Price(app, adjustment)

	a := &domain.UnderwritingAssessment{
		ID:                   uuid.New().String(),
		OverallRiskScore:     risk,
		ProfitabilityScore:   profitability,
		RiskTier:             tier,
		TriggeredSignals:     res.Signals,
		EvaluatedAt:          s.now().UTC(),
		InputData:            app,
		BasePremium:          premium.Base.InexactFloat64(),
		AdjustmentPercentage: adjustment,
		RecommendedPremium:   premium.Recommended.InexactFloat64(),
		ProjectedLossRatio:   LossRatio(tier),
		IsApproved:           tier != domain.TierDecline,
	}
	if !a.IsApproved {
		a.DeclineReason = declineReason(risk, res.Signals)
	}
	a.Summary = Summarize(a)
	return a, nil
}

// ScoreAll scores typed applications concurrently, keeping input order.
// Applications with an unknown applicant type are rejected.
func (s *Scorer) ScoreAll(ctx context.Context, apps []domain.ApplicationInput) (*domain.UnderwritingBulkResult, error) {
	valid := make([]domain.ApplicationInput, 0, len(apps))
	for i, app := range apps {
		if !app.ApplicantType.Valid() {
			s.logger.Debug("skipping application", "index", i, "applicant_type", app.ApplicantType)
			continue
		}
		valid = append(valid, app)
	}
	return s.run(ctx, valid, len(apps)-len(valid))
}

// ScoreBatch decodes raw records, skips the invalid ones and scores the rest.
func (s *Scorer) ScoreBatch(ctx context.Context, records []json.RawMessage) (*domain.UnderwritingBulkResult, error) {
	decoded := intake.DecodeAll(records, intake.DecodeApplication, func(i int, err error) {
		s.logger.Debug("skipping invalid application", "index", i, "error", err)
	})

	apps := make([]domain.ApplicationInput, len(decoded))
	for i, d := range decoded {
		apps[i] = d.Value
	}
	return s.run(ctx, apps, len(records)-len(decoded))
}

func (s *Scorer) run(ctx context.Context, apps []domain.ApplicationInput, rejected int) (*domain.UnderwritingBulkResult, error) {
	results, err := engine.RunBatch(ctx, apps, s.workers, func(app domain.ApplicationInput) *domain.UnderwritingAssessment {
		// Applicant types were checked before the batch started.
		a, _ := s.Score(app)
		return a
	})
	if err != nil {
		return nil, fmt.Errorf("underwriting batch: %w", err)
	}

	out := &domain.UnderwritingBulkResult{
		TotalCount:    len(results),
		RejectedCount: rejected,
		AnalyzedAt:    s.now().UTC(),
		Results:       make([]domain.UnderwritingAssessment, len(results)),
	}

	risk := make([]float64, len(results))
	profit := make([]float64, len(results))
	total := decimal.Zero
	for i, a := range results {
		out.Results[i] = *a
		risk[i] = float64(a.OverallRiskScore)
		profit[i] = float64(a.ProfitabilityScore)
		total = total.Add(decimal.NewFromFloat(a.RecommendedPremium))
		if a.IsApproved {
			out.Summary.Approved++
		}
		switch a.RiskTier {
		case domain.TierPreferred:
			out.Summary.Preferred++
		case domain.TierStandard:
			out.Summary.Standard++
		case domain.TierSubstandard:
			out.Summary.Substandard++
		case domain.TierDecline:
			out.Summary.Decline++
		}
	}
	out.Summary.AverageRiskScore = engine.Mean(risk)
	out.Summary.AverageProfitabilityScore = engine.Mean(profit)
	out.Summary.TotalRecommendedPremium = total.InexactFloat64()
	return out, nil
}

func declineReason(risk int, signals []domain.Signal) string {
	reason := fmt.Sprintf("Risk score %d is in the decline band", risk)
	if len(signals) > 0 {
		reason += "; primary factor: " + signals[0].Name
	}
	return reason
}
