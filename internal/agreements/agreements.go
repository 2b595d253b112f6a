// Package agreements implements the FEP-0837 value-exchange reconciler:
// a local actor's Proposal, an incoming Offer against it, the Accept it
// produces, and the Invoice state machine that tracks payment.
//
// Grounded on offer.rs's handle_offer and accept_offer.rs's
// build_accept_offer/prepare_accept_offer.
package agreements

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/caip"
	"github.com/klppl/mitra/internal/store"
)

// SubscriptionOption is a local actor's advertised price for a given chain,
// the collaborator interface a payments backend must provide (spec.md §6:
// blockchain RPC clients are out of scope, referenced only through this
// interface).
type SubscriptionOption struct {
	ChainID        caip.ChainID
	PriceAtomicUnits int64 // atomic units of the reciprocal asset, per second
}

// PaymentAddressAllocator mints a fresh receive address on the given chain
// for one invoice. Concrete wallet RPC is out of scope; callers provide it.
type PaymentAddressAllocator interface {
	AllocateAddress(chainID caip.ChainID) (string, error)
}

// ProposalLookup resolves a local username's subscription price for a chain.
// Returns ok=false if the actor has no subscription option on that chain.
type ProposalLookup interface {
	SubscriptionOption(username string, chainID caip.ChainID) (SubscriptionOption, bool)
	LocalActorID(username string) (string, bool)
}

// Reconciler implements spec.md §4.10's Offer/Accept/Invoice lifecycle.
type Reconciler struct {
	Store       *store.Store
	Proposals   ProposalLookup
	Addresses   PaymentAddressAllocator
	InstanceURL string
}

// Offer is the subset of an incoming Offer{object: Agreement} activity this
// reconciler needs, already unwrapped by the handler dispatch.
type Offer struct {
	ActivityID   string
	RemoteActor  string
	Agreement    activitypub.AgreementObject
}

// AcceptOfferResult is what HandleOffer returns: the invoice it created plus
// the Accept activity ready for delivery back to the remote actor.
type AcceptOfferResult struct {
	Invoice store.Invoice
	Accept  map[string]interface{}
}

// HandleOffer validates an incoming Offer against the targeted local
// proposal and, if valid, creates a Requested invoice and builds the
// Accept(Offer) response — offer.rs's handle_offer, generalized off Monero.
func (r *Reconciler) HandleOffer(o Offer) (*AcceptOfferResult, error) {
	primary := o.Agreement.Stipulates
	reciprocal := o.Agreement.StipulatesReciprocal

	username, assetRef, err := authority.ParseLocalPrimaryIntentID(r.InstanceURL, primary.Satisfies)
	if err != nil {
		return nil, fmt.Errorf("agreement does not reference a local proposal: %w", err)
	}
	chainID, err := caip.ParseChainID(assetRef)
	if err != nil {
		return nil, fmt.Errorf("proposal asset %q is not a valid chain id: %w", assetRef, err)
	}

	localActorID, ok := r.Proposals.LocalActorID(username)
	if !ok {
		return nil, fmt.Errorf("no local actor %q", username)
	}

	option, ok := r.Proposals.SubscriptionOption(username, chainID)
	if !ok {
		return nil, fmt.Errorf("recipient can't accept payment on chain %s", chainID)
	}

	duration, err := parseAtomicValue(primary.ResourceQuantity)
	if err != nil {
		return nil, fmt.Errorf("primary commitment quantity: %w", err)
	}
	amount, err := parseAtomicValue(reciprocal.ResourceQuantity)
	if err != nil {
		return nil, fmt.Errorf("reciprocal commitment quantity: %w", err)
	}
	if option.PriceAtomicUnits <= 0 {
		return nil, fmt.Errorf("subscription option has no price")
	}
	expectedDuration := amount / option.PriceAtomicUnits
	if duration != expectedDuration {
		return nil, fmt.Errorf("invalid duration: got %d, expected %d for amount %d at price %d", duration, expectedDuration, amount, option.PriceAtomicUnits)
	}

	address, err := r.Addresses.AllocateAddress(chainID)
	if err != nil {
		return nil, fmt.Errorf("allocate payment address: %w", err)
	}

	invoiceID := newULID()
	invoice, err := r.Store.CreateLocalInvoice(invoiceID, localActorID, o.RemoteActor, chainID.String(), address, amount)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	agreementID := authority.LocalAgreementID(r.InstanceURL, invoice.ID)
	if err := r.Store.SetInvoiceAgreement(invoice.ID, agreementID, address); err != nil {
		return nil, fmt.Errorf("move invoice to open: %w", err)
	}
	invoice.Status = store.InvoiceOpen
	invoice.AgreementID = agreementID

	accept := buildAcceptOffer(r.InstanceURL, localActorID, agreementID, o.ActivityID, o.RemoteActor, primary, reciprocal, chainID, address)
	return &AcceptOfferResult{Invoice: invoice, Accept: accept}, nil
}

// parseAtomicValue reads a valueflows ResourceQuantity's decimal string
// value as an integer count of atomic units.
func parseAtomicValue(q activitypub.ResourceQuantity) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(q.HasNumericalValue, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("non-integer quantity %q", q.HasNumericalValue)
	}
	return v, nil
}

func newULID() string {
	return uuid.New().String()
}
