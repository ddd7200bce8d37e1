package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/harrier/internal/metrics"
)

// RuleReloader refreshes in-memory validation rules from the store.
type RuleReloader interface {
	ReloadAllRules(ctx context.Context) (int, error)
}

// RuleReloadJob keeps every replica's rule set in step with the store.
type RuleReloadJob struct {
	reloader RuleReloader
	logger   *slog.Logger
}

// NewRuleReloadJob creates a rule reload job.
func NewRuleReloadJob(reloader RuleReloader, logger *slog.Logger) *RuleReloadJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleReloadJob{reloader: reloader, logger: logger}
}

func (j *RuleReloadJob) Name() string { return "rule_reload" }

func (j *RuleReloadJob) Run(ctx context.Context) error {
	n, err := j.reloader.ReloadAllRules(ctx)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	j.logger.Debug("validation rules reloaded", "rules", n)
	return nil
}

// Pruner deletes old assessment records.
type Pruner interface {
	PruneAssessments(ctx context.Context, before time.Time) (int64, error)
}

// PruneJob deletes assessment records older than the retention period.
type PruneJob struct {
	store     Pruner
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewPruneJob creates a prune job. Retention must be positive.
func NewPruneJob(store Pruner, retention time.Duration, logger *slog.Logger) (*PruneJob, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneJob{store: store, retention: retention, now: time.Now, logger: logger}, nil
}

func (j *PruneJob) Name() string { return "assessment_prune" }

func (j *PruneJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	n, err := j.store.PruneAssessments(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune assessments: %w", err)
	}
	metrics.ObservePruned(n)
	if n > 0 {
		j.logger.Info("pruned assessments",
			"removed", n,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	}
	return nil
}
