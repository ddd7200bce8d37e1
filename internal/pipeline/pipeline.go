// Package pipeline runs scoring with its side effects: history
// enrichment, persistence, caching, metrics and events.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/history"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/underwriting"
	"github.com/opensource-finance/harrier/internal/validation"
)

// ErrNotFound is returned when an assessment or document does not exist.
var ErrNotFound = errors.New("not found")

var tracer = otel.Tracer("harrier-pipeline")

// Pipeline wires the pure scorers to the stores. Every collaborator except
// the scorers is optional.
type Pipeline struct {
	fraud        *fraud.Scorer
	underwriting *underwriting.Scorer

	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	history *history.Service

	extractor  domain.Extractor
	validator  *validation.Engine
	rules      *validation.RuleSet
	uploadSpec domain.UploadConfig

	cacheTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRepository persists assessments and documents.
func WithRepository(repo domain.Repository) Option {
	return func(p *Pipeline) { p.repo = repo }
}

// WithCache caches assessments for ttl.
func WithCache(c domain.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithBus publishes assessment and alert events.
func WithBus(bus domain.EventBus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithHistory fills missing prior claim counts before fraud scoring.
func WithHistory(h *history.Service) Option {
	return func(p *Pipeline) { p.history = h }
}

// WithDocuments enables document processing and validation.
func WithDocuments(ext domain.Extractor, validator *validation.Engine, rules *validation.RuleSet, upload domain.UploadConfig) Option {
	return func(p *Pipeline) {
		p.extractor = ext
		p.validator = validator
		p.rules = rules
		p.uploadSpec = upload
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides the document timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline over the two scorers.
func New(fs *fraud.Scorer, us *underwriting.Scorer, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		fraud:        fs,
		underwriting: us,
		cacheTTL:     time.Hour,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rules == nil {
		p.rules = validation.NewRuleSet()
	}
	if p.validator == nil {
		v, err := validation.NewEngine(validation.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.validator = v
	}
	return p, nil
}

// Validator returns the validation engine.
func (p *Pipeline) Validator() *validation.Engine {
	return p.validator
}

// Rules returns the in-memory validation rule set.
func (p *Pipeline) Rules() *validation.RuleSet {
	return p.rules
}

// ScoreClaim enriches, scores and records one claim.
func (p *Pipeline) ScoreClaim(ctx context.Context, tenantID string, claim domain.ClaimInput) (*domain.FraudAssessment, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ScoreClaim", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("claim.id", claim.ClaimID),
	))
	defer span.End()

	scored := claim
	var derived *int
	if p.history != nil {
		var err error
		if scored, derived, err = p.history.Enrich(ctx, tenantID, claim); err != nil {
			p.logger.Warn("claim history unavailable",
				"tenant_id", tenantID,
				"claim_id", claim.ClaimID,
				"error", err,
			)
		}
	}

	a := p.fraud.Score(scored)
	a.InputData = claim
	a.DerivedPriorClaims = derived
	span.SetAttributes(
		attribute.Int("fraud.score", a.OverallScore),
		attribute.String("fraud.risk_level", a.RiskLevel),
	)
	metrics.ObserveFraud(a)

	rec, err := newRecord(a.ID, domain.KindFraud, claim.Subject(), claim.ClaimID, a.RiskLevel, a.OverallScore, a.EvaluatedAt, a)
	if err != nil {
		return nil, err
	}
	p.record(ctx, tenantID, rec, domain.TopicFraudAssessed)

	if p.fraud.IsHighest(a.RiskLevel) {
		p.alert(ctx, tenantID, rec, a.Summary)
	}
	return a, nil
}

// ScoreApplication scores and records one application. The only error is
// an unknown applicant type.
func (p *Pipeline) ScoreApplication(ctx context.Context, tenantID string, app domain.ApplicationInput) (*domain.UnderwritingAssessment, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ScoreApplication", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("application.id", app.ApplicationID),
	))
	defer span.End()

	a, err := p.underwriting.Score(app)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("underwriting.risk_score", a.OverallRiskScore),
		attribute.String("underwriting.tier", a.RiskTier),
	)
	metrics.ObserveUnderwriting(a)

	rec, err := newRecord(a.ID, domain.KindUnderwriting, app.Subject(), app.ApplicationID, a.RiskTier, a.OverallRiskScore, a.EvaluatedAt, a)
	if err != nil {
		return nil, err
	}
	p.record(ctx, tenantID, rec, domain.TopicUnderwritingAssessed)

	if !a.IsApproved {
		p.alert(ctx, tenantID, rec, a.Summary)
	}
	return a, nil
}

// ScoreClaimBatch scores raw claim records. Batch results are not stored
// individually.
func (p *Pipeline) ScoreClaimBatch(ctx context.Context, records []json.RawMessage) (*domain.FraudBulkResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ScoreClaimBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(records)),
	))
	defer span.End()

	res, err := p.fraud.ScoreBatch(ctx, records)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range res.Results {
		metrics.ObserveFraud(&res.Results[i])
	}
	metrics.ObserveBatch(domain.KindFraud, res.TotalCount, res.RejectedCount)
	return res, nil
}

// ScoreApplicationBatch scores raw application records.
func (p *Pipeline) ScoreApplicationBatch(ctx context.Context, records []json.RawMessage) (*domain.UnderwritingBulkResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ScoreApplicationBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(records)),
	))
	defer span.End()

	res, err := p.underwriting.ScoreBatch(ctx, records)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range res.Results {
		metrics.ObserveUnderwriting(&res.Results[i])
	}
	metrics.ObserveBatch(domain.KindUnderwriting, res.TotalCount, res.RejectedCount)
	return res, nil
}

// Assessment looks an assessment up in the cache, then the store.
func (p *Pipeline) Assessment(ctx context.Context, tenantID, id string) (*domain.AssessmentRecord, error) {
	if p.cache != nil {
		rec, err := cache.GetAssessment(ctx, p.cache, tenantID, id)
		if err != nil {
			p.logger.Warn("assessment cache read failed", "tenant_id", tenantID, "assessment_id", id, "error", err)
		} else if rec != nil {
			return rec, nil
		}
	}
	if p.repo == nil {
		return nil, ErrNotFound
	}

	rec, err := p.repo.GetAssessment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		_ = cache.PutAssessment(ctx, p.cache, tenantID, rec, p.cacheTTL)
	}
	return rec, nil
}

func newRecord(id, kind, subject, sourceID, tier string, score int, at time.Time, payload any) (*domain.AssessmentRecord, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s assessment: %w", kind, err)
	}
	return &domain.AssessmentRecord{
		ID:          id,
		Kind:        kind,
		Subject:     subject,
		SourceID:    sourceID,
		Tier:        tier,
		Score:       score,
		EvaluatedAt: at,
		Payload:     b,
	}, nil
}

// record persists, caches and publishes an assessment. Failures are logged;
// the assessment itself is already computed and is still returned.
func (p *Pipeline) record(ctx context.Context, tenantID string, rec *domain.AssessmentRecord, topic string) {
	if p.repo != nil {
		if err := p.repo.SaveAssessment(ctx, tenantID, rec); err != nil {
			p.logger.Error("failed to save assessment",
				"tenant_id", tenantID,
				"assessment_id", rec.ID,
				"kind", rec.Kind,
				"error", err,
			)
		}
	}
	rec.TenantID = tenantID

	if p.cache != nil {
		if err := cache.PutAssessment(ctx, p.cache, tenantID, rec, p.cacheTTL); err != nil {
			p.logger.Warn("failed to cache assessment", "assessment_id", rec.ID, "error", err)
		}
	}

	p.publish(ctx, tenantID, topic, rec.Payload)
}

func (p *Pipeline) alert(ctx context.Context, tenantID string, rec *domain.AssessmentRecord, summary string) {
	b, err := json.Marshal(domain.Alert{
		AssessmentID: rec.ID,
		Kind:         rec.Kind,
		Subject:      rec.Subject,
		Tier:         rec.Tier,
		Score:        rec.Score,
		Summary:      summary,
	})
	if err != nil {
		return
	}
	p.publish(ctx, tenantID, domain.TopicAlert, b)
}

func (p *Pipeline) publish(ctx context.Context, tenantID, topic string, payload []byte) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, tenantID, topic, payload); err != nil {
		p.logger.Error("failed to publish event",
			"tenant_id", tenantID,
			"topic", topic,
			"error", err,
		)
	}
}
