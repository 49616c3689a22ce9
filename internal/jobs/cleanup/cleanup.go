package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type stalePaymentSweeper interface {
	FailStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job fails pending payments that were never finalized. Initiations the
// buyer abandoned would otherwise sit in pending forever.
type Job struct {
	payments   stalePaymentSweeper
	pendingTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func New(payments stalePaymentSweeper, pendingTTL time.Duration, logger *zap.Logger) *Job {
	if pendingTTL <= 0 {
		pendingTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		payments:   payments,
		pendingTTL: pendingTTL,
		now:        time.Now,
		logger:     logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.payments == nil {
		return nil
	}

	cutoff := j.now().Add(-j.pendingTTL)
	swept, err := j.payments.FailStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep stale pending payments: %w", err)
	}
	if swept > 0 {
		j.logger.Info("stale pending payments swept", zap.Int64("failed", swept))
	}
	return nil
}
