package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Source yields pending records and settles delivered ones.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Publisher delivers one record to the broker.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// Relay drains the outbox to a publisher on a fixed interval. A record that
// fails to publish stays pending and is retried on the next cycle, which is
// where the at-least-once guarantee comes from.
type Relay struct {
	source    Source
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRelay(source Source, publisher Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	return &Relay{
		source:    source,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run loops until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain publishes one batch. Errors are logged and left for the next cycle.
func (r *Relay) drain(ctx context.Context) {
	records, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("outbox_fetch_failed", "error", err)
		return
	}

	for _, rec := range records {
		if err := r.publisher.Publish(ctx, rec); err != nil {
			r.logger.Error("outbox_publish_failed", "record_id", rec.ID, "event_id", rec.EventID, "error", err)
			return
		}
		if err := r.source.MarkSent(ctx, rec.ID); err != nil {
			r.logger.Error("outbox_mark_sent_failed", "record_id", rec.ID, "error", err)
			return
		}
		r.logger.Info("outbox_record_published", "record_id", rec.ID, "topic", rec.Topic, "key", rec.Key)
	}
}
