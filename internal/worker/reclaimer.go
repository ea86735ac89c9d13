package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/internal/queue"
)

// StaleClaimer hands over questions another worker read but never acked.
type StaleClaimer interface {
	ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
}

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer answers questions left pending by a worker that died between
// reading and acking them. Reclaimed questions go through the same retry
// policy as fresh ones: requeue on failure, DLQ once MaxAttempts deliveries
// have been used.
type Reclaimer struct {
	claimer StaleClaimer
	worker  *Worker
	cfg     ReclaimerConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer StaleClaimer, w *Worker, cfg ReclaimerConfig) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Reclaimer{
		claimer:   claimer,
		worker:    w,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run claims stale questions every Interval until Stop is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "oracle.worker.reclaimer",
	})
	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce claims one batch of stale questions and settles each of them:
// answered and acked, requeued, or dead-lettered.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) error {
	messages, err := r.claimer.ClaimStale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claiming stale questions: %w", err)
	}
	if len(messages) > 0 {
		slog.InfoContext(ctx, "claimed stale questions", "count", len(messages))
	}

	for _, msg := range messages {
		r.settle(ctx, msg)
	}
	return nil
}

func (r *Reclaimer) settle(ctx context.Context, msg queue.Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msg.ID,
		UserID:    &msg.UserID,
	})

	// Every earlier delivery ended without an ack, most likely with the
	// worker dying on this very question. Running it again would not help.
	if msg.Attempt > r.worker.cfg.MaxAttempts {
		reason := fmt.Sprintf("abandoned after %d deliveries without ack", msg.Attempt-1)
		slog.ErrorContext(ctx, "stale question exhausted its attempts, sending to DLQ",
			"attempt", msg.Attempt)
		if err := r.worker.consumer.SendDLQ(ctx, msg, reason); err != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", err)
		}
		return
	}

	start := time.Now()
	if err := r.worker.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "reclaimed question failed", "error", err, "attempt", msg.Attempt)
		r.worker.handleFailedMessage(ctx, msg, err)
		return
	}
	slog.InfoContext(ctx, "reclaimed question answered",
		"attempt", msg.Attempt,
		"duration_ms", time.Since(start).Milliseconds())
}
