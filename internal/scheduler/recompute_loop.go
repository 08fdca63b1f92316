package scheduler

import (
	"context"
	"time"

	"gymops_backend/platform/logger"
)

const defaultRecomputeInterval = 24 * time.Hour

// RecomputeLoop periodically enqueues a retention recompute job.
// The queue deduplicates, so overlapping enqueues are harmless.
type RecomputeLoop struct {
	scheduler RecomputeScheduler
	log       *logger.Logger
	interval  time.Duration
}

func NewRecomputeLoop(scheduler RecomputeScheduler, log *logger.Logger, interval time.Duration) *RecomputeLoop {
	if interval <= 0 {
		interval = defaultRecomputeInterval
	}

	return &RecomputeLoop{
		scheduler: scheduler,
		log:       log,
		interval:  interval,
	}
}

func (l *RecomputeLoop) Run(ctx context.Context) {
	if l == nil || l.scheduler == nil {
		return
	}

	l.enqueue(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.enqueue(ctx)
		}
	}
}

func (l *RecomputeLoop) enqueue(ctx context.Context) {
	if err := l.scheduler.EnqueueRetentionRecompute(ctx, RetentionRecomputePayload{}); err != nil {
		l.log.Warn("enqueue retention recompute failed", "error", err)
		return
	}

	l.log.Info("retention recompute enqueued")
}
