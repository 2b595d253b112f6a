package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/agreements"
)

// handleOffer implements spec.md §4.7's Offer row: treat as Offer(Agreement),
// validate against the local actor's proposal, create an invoice, and
// enqueue the Accept(Offer) response.
func (d *Dispatcher) handleOffer(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	if d.Agreements == nil {
		return nil, fatalErr("agreement reconciler not configured")
	}
	var agreementObj activitypub.AgreementObject
	if err := json.Unmarshal(a.Object, &agreementObj); err != nil {
		return nil, validationErr("offer object is not an agreement: %w", err)
	}

	result, err := d.Agreements.HandleOffer(agreements.Offer{
		ActivityID:  a.ID,
		RemoteActor: a.Actor,
		Agreement:   agreementObj,
	})
	if err != nil {
		return nil, validationErr("reject offer: %w", err)
	}

	if d.Deliverer != nil {
		if err := d.Deliverer.Enqueue(ctx, a.Actor, result.Accept, result.Invoice.Sender); err != nil {
			return nil, retryableErr("enqueue accept offer: %w", err)
		}
	}

	return &Descriptor{ObjectType: activitypub.Agreement, Target: result.Invoice.ID}, nil
}

// handleAcceptOffer implements the Accept{result: Agreement} branch: this
// instance made an Offer and the remote proposer accepted it, returning the
// agreed payment address. The invoice is recorded locally as Open so a
// payment-monitoring worker can watch for it.
func (d *Dispatcher) handleAcceptOffer(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	var agreementObj activitypub.AgreementObject
	if err := json.Unmarshal(a.Result, &agreementObj); err != nil {
		return nil, validationErr("accept result is not an agreement: %w", err)
	}
	if agreementObj.AttributedTo != a.Actor {
		return nil, authErr("agreement attributedTo %q does not match accepting actor %q", agreementObj.AttributedTo, a.Actor)
	}
	if agreementObj.URL == nil || agreementObj.URL.Href == "" {
		return nil, validationErr("agreement carries no payment url")
	}
	address, ok := paymentAddressFromCAIP10(agreementObj.URL.Href)
	if !ok {
		return nil, validationErr("agreement url %q is not a caip:10 payment uri", agreementObj.URL.Href)
	}

	objectID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("accept object: %w", err)
	}

	amount, err := parseAtomicAmount(agreementObj.StipulatesReciprocal.ResourceQuantity.HasNumericalValue)
	if err != nil {
		return nil, validationErr("agreement reciprocal quantity: %w", err)
	}

	invoiceID := newULID()
	_, err = d.Store.CreateLocalInvoice(invoiceID, a.Actor, agreementObj.AttributedTo, agreementObj.URL.Href, address, amount)
	if err != nil {
		return nil, retryableErr("persist accepted invoice: %w", err)
	}
	if err := d.Store.SetInvoiceAgreement(invoiceID, agreementObj.ID, address); err != nil {
		return nil, retryableErr("open accepted invoice: %w", err)
	}

	return &Descriptor{ObjectType: activitypub.Agreement, Target: objectID}, nil
}

func paymentAddressFromCAIP10(href string) (string, bool) {
	const prefix = "caip:10:"
	if !strings.HasPrefix(href, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(href, prefix)
	idx := strings.LastIndexByte(rest, ':')
	if idx < 0 || idx == len(rest)-1 {
		return "", false
	}
	return rest[idx+1:], true
}

func parseAtomicAmount(s string) (int64, error) {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("not an integer quantity %q", s)
	}
	return v, nil
}
