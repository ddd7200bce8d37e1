// Package fraud scores insurance claims for fraud risk.
package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/intake"
)

// Scorer runs the fraud rule table over claims.
type Scorer struct {
	engine  *engine.Engine[domain.ClaimInput]
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
	th, err := engine.NewThresholds(tiers, domain.FraudTierOrder()...)
	if err != nil {
		return nil, fmt.Errorf("fraud tiers: %w", err)
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

	eng, err := engine.New(rules, engine.WithLogger[domain.ClaimInput](s.logger))
	if err != nil {
		return nil, fmt.Errorf("fraud rules: %w", err)
	}
	s.engine = eng
	return s, nil
}

// Rules returns the rule table.
func (s *Scorer) Rules() []Rule {
	return s.engine.Rules()
}

// IsHighest reports whether level is the top risk tier.
func (s *Scorer) IsHighest(level string) bool {
	return level == s.tiers.Worst()
}

// Score evaluates one claim. Missing fields never cause an error.
func (s *Scorer) Score(claim domain.ClaimInput) *domain.FraudAssessment {
	res := s.engine.Evaluate(claim)
	score := res.Score(domain.DimensionRisk)
	level := s.tiers.Tier(score)

	return &domain.FraudAssessment{
		ID:               uuid.New().String(),
		OverallScore:     score,
		RiskLevel:        level,
		TriggeredSignals: res.Signals,
		EvaluatedAt:      s.now().UTC(),
		InputData:        claim,
		Summary:          Summarize(level, score, res.Signals),
	}
}

// ScoreAll scores typed claims concurrently, keeping input order.
func (s *Scorer) ScoreAll(ctx context.Context, claims []domain.ClaimInput) (*domain.FraudBulkResult, error) {
	results, err := engine.RunBatch(ctx, claims, s.workers, func(c domain.ClaimInput) *domain.FraudAssessment {
		return s.Score(c)
	})
	if err != nil {
		return nil, fmt.Errorf("fraud batch: %w", err)
	}
	return s.bulk(results, 0), nil
}

// ScoreBatch decodes raw records, skips the invalid ones and scores the rest.
func (s *Scorer) ScoreBatch(ctx context.Context, records []json.RawMessage) (*domain.FraudBulkResult, error) {
	decoded := intake.DecodeAll(records, intake.DecodeClaim, func(i int, err error) {
		s.logger.Debug("skipping invalid claim", "index", i, "error", err)
	})

	claims := make([]domain.ClaimInput, len(decoded))
	for i, d := range decoded {
		claims[i] = d.Value
	}

	results, err := engine.RunBatch(ctx, claims, s.workers, func(c domain.ClaimInput) *domain.FraudAssessment {
		return s.Score(c)
	})
	if err != nil {
		return nil, fmt.Errorf("fraud batch: %w", err)
	}
	return s.bulk(results, len(records)-len(decoded)), nil
}

func (s *Scorer) bulk(results []*domain.FraudAssessment, rejected int) *domain.FraudBulkResult {
	out := &domain.FraudBulkResult{
		TotalCount:    len(results),
		RejectedCount: rejected,
		AnalyzedAt:    s.now().UTC(),
		Results:       make([]domain.FraudAssessment, len(results)),
	}

	scores := make([]float64, len(results))
	for i, a := range results {
		out.Results[i] = *a
		scores[i] = float64(a.OverallScore)
		out.Summary.TotalSignals += len(a.TriggeredSignals)
		switch a.RiskLevel {
		case domain.RiskLow:
			out.Summary.LowRisk++
		case domain.RiskMedium:
			out.Summary.MediumRisk++
		case domain.RiskHigh:
			out.Summary.HighRisk++
		}
	}
	out.Summary.AverageScore = engine.Mean(scores)
	return out
}
