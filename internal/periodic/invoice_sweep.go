package periodic

import (
	"context"
	"log/slog"
	"time"

	"github.com/klppl/mitra/internal/store"
)

// InvoiceSweepStore is the subset of *store.Store the timeout sweep needs.
type InvoiceSweepStore interface {
	ListOpenInvoicesOlderThan(cutoff string) ([]string, error)
	SetInvoiceStatus(id string, newStatus store.InvoiceStatus) error
}

// InvoiceTimeoutSweeper periodically moves invoices stuck in Open past
// Deadline into Timeout, the one spontaneous (not activity-triggered)
// transition in spec.md §4.10's state machine: a counterparty who never
// pays must not hold an Open invoice forever.
type InvoiceTimeoutSweeper struct {
	Store InvoiceSweepStore

	// Interval between sweeps. Defaults to 10 minutes if zero.
	Interval time.Duration
	// Deadline is how long an invoice may stay Open before it times out.
	// Defaults to 1 hour if zero.
	Deadline time.Duration
}

// Start begins the periodic sweep loop. Blocks until ctx is cancelled.
func (s *InvoiceTimeoutSweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	deadline := s.Deadline
	if deadline <= 0 {
		deadline = time.Hour
	}

	slog.Info("invoice timeout sweeper started", "interval", interval, "deadline", deadline)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("invoice timeout sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(deadline)
		}
	}
}

func (s *InvoiceTimeoutSweeper) sweepOnce(deadline time.Duration) {
	cutoff := time.Now().UTC().Add(-deadline).Format(time.RFC3339Nano)
	ids, err := s.Store.ListOpenInvoicesOlderThan(cutoff)
	if err != nil {
		slog.Warn("invoice sweep: list stale open invoices", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	timedOut := 0
	for _, id := range ids {
		if err := s.Store.SetInvoiceStatus(id, store.InvoiceTimeout); err != nil {
			slog.Warn("invoice sweep: timeout transition failed", "invoice", id, "error", err)
			continue
		}
		timedOut++
	}
	slog.Info("invoice sweep: complete", "timed_out", timedOut, "candidates", len(ids))
}
