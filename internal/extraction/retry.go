package extraction

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/opensource-finance/harrier/internal/domain"
)

type retrying struct {
	next       domain.Extractor
	maxRetries uint64
	delay      time.Duration
	logger     *slog.Logger
}

// WithRetry wraps next so temporary failures (timeouts, 429 and 5xx
// responses) are retried up to maxRetries times with a constant delay.
func WithRetry(next domain.Extractor, maxRetries int, delay time.Duration, logger *slog.Logger) domain.Extractor {
	if maxRetries <= 0 {
		return next
	}
	if delay <= 0 {
		delay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrying{next: next, maxRetries: uint64(maxRetries), delay: delay, logger: logger}
}

func (r *retrying) Extract(ctx context.Context, upload domain.Upload, fields []domain.FieldDefinition) (*domain.ExtractionResult, error) {
	var result *domain.ExtractionResult
	attempt := 0

	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewConstant(r.delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := r.next.Extract(ctx, upload, fields)
		if err == nil {
			result = res
			return nil
		}
		if !temporary(err) {
			return err
		}
		r.logger.Warn("extraction attempt failed",
			"attempt", attempt,
			"filename", upload.Filename,
			"error", err,
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func temporary(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
