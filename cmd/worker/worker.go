package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"storeops/internal/core/id"
	"storeops/internal/domain/registers/stock"
	"storeops/pkg/logger"
)

// Relay moves outbox messages to the broker.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	CleanupPublished(ctx context.Context) (int64, error)
}

// IdempotencyCleaner drops expired idempotency keys.
type IdempotencyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// JournalCleaner drops old webhook deliveries.
type JournalCleaner interface {
	CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// DriftAuditor compares product counters with the ledger.
type DriftAuditor interface {
	Drift(ctx context.Context, productIDs []id.ID) ([]stock.Balance, error)
}

// Intervals of the worker loops.
type Intervals struct {
	Poll             time.Duration
	Cleanup          time.Duration
	Drift            time.Duration
	WebhookRetention time.Duration
}

// Worker runs the background loops of the service.
type Worker struct {
	relay       Relay
	idempotency IdempotencyCleaner
	journal     JournalCleaner
	drift       DriftAuditor
	intervals   Intervals
	log         *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(relay Relay, idem IdempotencyCleaner, journal JournalCleaner, drift DriftAuditor, intervals Intervals, log *logger.Logger) *Worker {
	return &Worker{
		relay:       relay,
		idempotency: idem,
		journal:     journal,
		drift:       drift,
		intervals:   intervals,
		log:         log.WithComponent("worker"),
	}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.every(ctx, w.intervals.Poll, w.relayOnce)
		return nil
	})
	g.Go(func() error {
		w.every(ctx, w.intervals.Cleanup, w.cleanupOnce)
		return nil
	})
	g.Go(func() error {
		w.every(ctx, w.intervals.Drift, w.auditOnce)
		return nil
	})
	return g.Wait()
}

func (w *Worker) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// relayOnce drains the outbox while full batches keep coming.
func (w *Worker) relayOnce(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("outbox batch delivered", "count", n)
	}
}

func (w *Worker) cleanupOnce(ctx context.Context) {
	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("outbox dlq sweep failed", "error", err)
	} else if n > 0 {
		w.log.Warnw("outbox messages moved to dlq", "count", n)
	}

	if n, err := w.relay.CleanupPublished(ctx); err != nil {
		w.log.Errorw("outbox cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up published outbox messages", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if n, err := w.journal.CleanupOlderThan(ctx, w.intervals.WebhookRetention); err != nil {
		w.log.Errorw("webhook journal cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up webhook journal", "count", n)
	}
}

// auditOnce reports drift; repairing counters is an operator decision.
func (w *Worker) auditOnce(ctx context.Context) {
	drifted, err := w.drift.Drift(ctx, nil)
	if err != nil {
		w.log.Errorw("stock drift audit failed", "error", err)
		return
	}
	for _, b := range drifted {
		w.log.Warnw("stock counter drifted from ledger",
			"product_id", b.ProductID,
			"counter", b.Counter,
			"expected", b.Expected(),
			"opening_stock", b.OpeningStock,
			"total_in", b.TotalIn,
			"total_out", b.TotalOut,
		)
	}
	if len(drifted) == 0 {
		w.log.Debugw("stock drift audit clean")
	}
}
