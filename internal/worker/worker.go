// Package worker scores claims and applications submitted through the
// event bus.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/intake"
)

// Scorer is the part of the pipeline the worker drives.
type Scorer interface {
	ScoreClaim(ctx context.Context, tenantID string, claim domain.ClaimInput) (*domain.FraudAssessment, error)
	ScoreApplication(ctx context.Context, tenantID string, app domain.ApplicationInput) (*domain.UnderwritingAssessment, error)
}

// Worker consumes submission events and runs them through the pipeline.
type Worker struct {
	bus    domain.EventBus
	scorer Scorer
	logger *slog.Logger

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs limits processing to these tenants. Empty means all tenants.
	TenantIDs []string
}

// NewWorker creates a worker. Results are persisted and published by the
// scorer, not the worker.
func NewWorker(bus domain.EventBus, scorer Scorer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		scorer: scorer,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the submission topics for the configured tenants.
func (w *Worker) Start(cfg Config) error {
	tenants := cfg.TenantIDs
	if len(tenants) == 0 {
		tenants = []string{domain.AllTenants}
	}

	for _, tenantID := range tenants {
		if err := w.subscribe(tenantID, domain.TopicClaimSubmitted, w.handleClaim); err != nil {
			return err
		}
		if err := w.subscribe(tenantID, domain.TopicApplicationSubmitted, w.handleApplication); err != nil {
			return err
		}
	}

	w.logger.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
		"subscriptions", len(w.subscriptions),
	)
	return nil
}

func (w *Worker) subscribe(tenantID, topic string, handler domain.MessageHandler) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, handler)
	if err != nil {
		w.logger.Error("failed to subscribe",
			"tenant_id", tenantID,
			"topic", topic,
			"error", err,
		)
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()
	return nil
}

func (w *Worker) handleClaim(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	claim, err := intake.DecodeClaim(msg.Payload)
	if err != nil {
		w.logger.Warn("rejected submitted claim",
			"message_id", msg.ID,
			"tenant_id", msg.TenantID,
			"error", err,
		)
		return err
	}

	a, err := w.scorer.ScoreClaim(ctx, msg.TenantID, claim)
	if err != nil {
		w.logger.Error("claim scoring failed",
			"claim_id", claim.ClaimID,
			"tenant_id", msg.TenantID,
			"error", err,
		)
		return err
	}

	w.logger.Info("claim processed",
		"claim_id", claim.ClaimID,
		"assessment_id", a.ID,
		"tenant_id", msg.TenantID,
		"risk_level", a.RiskLevel,
		"score", a.OverallScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) handleApplication(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	app, err := intake.DecodeApplication(msg.Payload)
	if err != nil {
		w.logger.Warn("rejected submitted application",
			"message_id", msg.ID,
			"tenant_id", msg.TenantID,
			"error", err,
		)
		return err
	}

	a, err := w.scorer.ScoreApplication(ctx, msg.TenantID, app)
	if err != nil {
		w.logger.Error("application scoring failed",
			"application_id", app.ApplicationID,
			"tenant_id", msg.TenantID,
			"error", err,
		)
		return err
	}

	w.logger.Info("application processed",
		"application_id", app.ApplicationID,
		"assessment_id", a.ID,
		"tenant_id", msg.TenantID,
		"risk_tier", a.RiskTier,
		"approved", a.IsApproved,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop unsubscribes everything. Messages already delivered finish on the
// bus's goroutines.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	w.logger.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
