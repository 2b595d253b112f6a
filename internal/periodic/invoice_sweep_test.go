package periodic

import (
	"testing"

	"github.com/klppl/mitra/internal/store"
)

type fakeInvoiceStore struct {
	stale    []string
	statuses map[string]store.InvoiceStatus
}

func (f *fakeInvoiceStore) ListOpenInvoicesOlderThan(cutoff string) ([]string, error) {
	return f.stale, nil
}

func (f *fakeInvoiceStore) SetInvoiceStatus(id string, newStatus store.InvoiceStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]store.InvoiceStatus{}
	}
	f.statuses[id] = newStatus
	return nil
}

func TestInvoiceTimeoutSweeperTimesOutStaleOpenInvoices(t *testing.T) {
	fakeStore := &fakeInvoiceStore{stale: []string{"invoice-1", "invoice-2"}}
	s := &InvoiceTimeoutSweeper{Store: fakeStore}

	s.sweepOnce(s.Deadline)

	for _, id := range []string{"invoice-1", "invoice-2"} {
		if got := fakeStore.statuses[id]; got != store.InvoiceTimeout {
			t.Errorf("invoice %s: expected status %s, got %s", id, store.InvoiceTimeout, got)
		}
	}
}

func TestInvoiceTimeoutSweeperNoopWhenNothingStale(t *testing.T) {
	fakeStore := &fakeInvoiceStore{}
	s := &InvoiceTimeoutSweeper{Store: fakeStore}

	s.sweepOnce(s.Deadline)

	if len(fakeStore.statuses) != 0 {
		t.Errorf("expected no status transitions, got %v", fakeStore.statuses)
	}
}
