package store

import "fmt"

// validInvoiceTransitions encodes the state machine from spec.md §4.10.
// Reopen transitions (Timeout/Cancelled/Underpaid/Completed -> Paid) are
// included since the original system allows a late or corrected payment to
// settle an invoice that already reached one of those states.
var validInvoiceTransitions = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoiceRequested: {InvoiceOpen: true},
	InvoiceOpen:       {InvoicePaid: true, InvoiceTimeout: true, InvoiceCancelled: true},
	InvoicePaid:       {InvoiceForwarded: true, InvoiceUnderpaid: true},
	InvoiceForwarded:  {InvoiceCompleted: true},
	InvoiceTimeout:    {InvoicePaid: true},
	InvoiceCancelled:  {InvoicePaid: true},
	InvoiceUnderpaid:  {InvoicePaid: true},
	InvoiceCompleted:  {InvoicePaid: true},
}

// CreateLocalInvoice creates a new invoice in state Requested, the entry
// point of the Offer handler (spec.md §4.10).
func (s *Store) CreateLocalInvoice(id, sender, recipient, chainID, paymentAddress string, amount int64) (Invoice, error) {
	inv := Invoice{
		ID: id, Sender: sender, Recipient: recipient, ChainID: chainID,
		PaymentAddress: paymentAddress, Amount: amount, Status: InvoiceRequested,
	}
	_, err := s.db.Exec(
		`INSERT INTO invoices (id, sender, recipient, chain_id, payment_address, amount, status, created_at, updated_at)
		 VALUES (`+s.ph(1)+`, `+s.ph(2)+`, `+s.ph(3)+`, `+s.ph(4)+`, `+s.ph(5)+`, `+s.ph(6)+`, `+s.ph(7)+`, `+s.ph(8)+`, `+s.ph(8)+`)`,
		id, sender, recipient, chainID, paymentAddress, amount, string(InvoiceRequested), nowTimestamp(),
	)
	if err != nil {
		return Invoice{}, fmt.Errorf("store: create invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice returns an invoice by id.
func (s *Store) GetInvoice(id string) (Invoice, bool) {
	var inv Invoice
	var status string
	err := s.db.QueryRow(
		`SELECT id, sender, recipient, chain_id, payment_address, amount, status, agreement_id, payout_tx_id
		 FROM invoices WHERE id = `+s.ph(1), id,
	).Scan(&inv.ID, &inv.Sender, &inv.Recipient, &inv.ChainID, &inv.PaymentAddress, &inv.Amount, &status, &inv.AgreementID, &inv.PayoutTxID)
	if err != nil {
		return Invoice{}, false
	}
	inv.Status = InvoiceStatus(status)
	return inv, true
}

// SetInvoiceStatus transitions an invoice, rejecting any transition not
// present in validInvoiceTransitions.
func (s *Store) SetInvoiceStatus(id string, newStatus InvoiceStatus) error {
	inv, ok := s.GetInvoice(id)
	if !ok {
		return fmt.Errorf("store: invoice %q not found", id)
	}
	if !validInvoiceTransitions[inv.Status][newStatus] {
		return fmt.Errorf("store: invalid invoice transition %s -> %s", inv.Status, newStatus)
	}
	_, err := s.db.Exec(
		`UPDATE invoices SET status = `+s.ph(1)+`, updated_at = `+s.ph(2)+` WHERE id = `+s.ph(3),
		string(newStatus), nowTimestamp(), id,
	)
	return err
}

// ListOpenInvoicesOlderThan returns the ids of invoices still in state Open
// whose updated_at is before cutoff (an RFC3339Nano timestamp), the
// candidate set for the periodic timeout sweep (internal/periodic,
// spec.md §4.10's Open -> Timeout transition).
func (s *Store) ListOpenInvoicesOlderThan(cutoff string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM invoices WHERE status = `+s.ph(1)+` AND updated_at < `+s.ph(2),
		string(InvoiceOpen), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list stale open invoices: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetInvoiceAgreement records the agreement id returned by Accept(Offer) and
// moves the invoice from Requested to Open, per spec.md §4.10's Accept handling.
func (s *Store) SetInvoiceAgreement(id, agreementID, paymentAddress string) error {
	inv, ok := s.GetInvoice(id)
	if !ok {
		return fmt.Errorf("store: invoice %q not found", id)
	}
	if !validInvoiceTransitions[inv.Status][InvoiceOpen] {
		return fmt.Errorf("store: invalid invoice transition %s -> %s", inv.Status, InvoiceOpen)
	}
	_, err := s.db.Exec(
		`UPDATE invoices SET status = `+s.ph(1)+`, agreement_id = `+s.ph(2)+`, payment_address = `+s.ph(3)+`, updated_at = `+s.ph(4)+` WHERE id = `+s.ph(5),
		string(InvoiceOpen), agreementID, paymentAddress, nowTimestamp(), id,
	)
	return err
}
