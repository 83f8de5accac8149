// Package outbox relays committed audit records to Kafka. The relay is
// observational: the ledger row in auditoria is the contract, and a Kafka
// outage only delays the stream, never the mutation.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"geoasistencia/internal/audit"
	"geoasistencia/internal/platform/metrics"
	id "geoasistencia/pkg/domain"
)

const batchSize = 100

// Store is the outbox persistence surface the relay polls.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []id.AuditID) error
}

// Publisher sends one payload to the audit topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Relay polls the outbox table and publishes pending rows.
type Relay struct {
	store    Store
	producer Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewRelay(store Store, producer Publisher, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Relay {
	return &Relay{
		store:    store,
		producer: producer,
		logger:   logger,
		metrics:  m,
		interval: interval,
	}
}

// Run polls until the context is cancelled. Publish failures leave rows
// unmarked so the next poll retries them.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// drain publishes every currently pending row, in batches.
func (r *Relay) drain(ctx context.Context) error {
	for {
		rows, err := r.store.FetchUnpublished(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		published := make([]id.AuditID, 0, len(rows))
		for _, row := range rows {
			if err := r.producer.Publish(ctx, []byte(row.ID.String()), row.Payload); err != nil {
				// Mark what made it through, retry the rest next poll.
				if markErr := r.store.MarkPublished(ctx, published); markErr != nil {
					r.logger.ErrorContext(ctx, "failed to mark published outbox rows", "error", markErr)
				}
				return err
			}
			published = append(published, row.ID)
		}

		if err := r.store.MarkPublished(ctx, published); err != nil {
			return err
		}
		r.metrics.RecordOutboxPublished(len(published))

		if len(rows) < batchSize {
			return nil
		}
	}
}
