package outbox

import (
	"context"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Relay drains pending outbox rows to a Publisher in id order.
type Relay struct {
	repo      Repository
	publisher Publisher
	interval  time.Duration
	batchSize int
}

func NewRelay(repo Repository, publisher Publisher, interval time.Duration) *Relay {
	return &Relay{repo: repo, publisher: publisher, interval: interval, batchSize: defaultBatchSize}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log := logger.L().With(zap.String("component", "outbox_relay"))
	log.Info("outbox relay started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			log.Warn("outbox drain stopped early", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("outbox relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// Drain publishes one batch. It stops at the first failure so events for
// the same key keep their order.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	recs, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		if err := r.publisher.Publish(ctx, rec); err != nil {
			return sent, err
		}
		if err := r.repo.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
