package handler

import (
	"context"
	"testing"

	"github.com/klppl/mitra/internal/agreements"
	"github.com/klppl/mitra/internal/caip"
)

type stubProposalLookup struct {
	actorID string
	option  agreements.SubscriptionOption
}

func (p *stubProposalLookup) SubscriptionOption(username string, chainID caip.ChainID) (agreements.SubscriptionOption, bool) {
	if chainID.String() != p.option.ChainID.String() {
		return agreements.SubscriptionOption{}, false
	}
	return p.option, true
}

func (p *stubProposalLookup) LocalActorID(username string) (string, bool) {
	return p.actorID, true
}

type stubAddressAllocator struct {
	address string
}

func (a *stubAddressAllocator) AllocateAddress(chainID caip.ChainID) (string, error) {
	return a.address, nil
}

func TestHandleOfferCreatesInvoiceAndEnqueuesAccept(t *testing.T) {
	d, deliverer := newTestDispatcher(t)
	chain := caip.MoneroMainnet()
	localActor := "https://mitra.example/users/alice"

	d.Agreements = &agreements.Reconciler{
		Store:       d.Store,
		Proposals:   &stubProposalLookup{actorID: localActor, option: agreements.SubscriptionOption{ChainID: chain, PriceAtomicUnits: 10}},
		Addresses:   &stubAddressAllocator{address: "4AdUndXHHZ9pfQj27iMAjAU4xMeuNZmVzqKqAT3p5jz4"},
		InstanceURL: "https://mitra.example",
	}

	offer := mustRaw(t, map[string]interface{}{
		"id": "https://remote.example/activities/offer-1", "type": "Offer", "actor": "https://remote.example/users/bob",
		"object": map[string]interface{}{
			"id": "https://remote.example/objects/agreement-1", "type": "Agreement", "attributedTo": "https://remote.example/users/bob",
			"stipulates": map[string]interface{}{
				"id": "https://remote.example/objects/agreement-1#primary", "type": "Commitment",
				"satisfies":        "https://mitra.example/users/alice/proposals/" + chain.String() + "#primary",
				"resourceQuantity": map[string]interface{}{"hasUnit": "second", "hasNumericalValue": "10"},
			},
			"stipulatesReciprocal": map[string]interface{}{
				"id": "https://remote.example/objects/agreement-1#reciprocal", "type": "Commitment",
				"satisfies":        "https://remote.example/objects/agreement-1#reciprocal-intent",
				"resourceQuantity": map[string]interface{}{"hasUnit": "monero", "hasNumericalValue": "100"},
			},
		},
	})

	desc, err := d.HandleActivity(context.Background(), offer, nil, true)
	if err != nil {
		t.Fatalf("HandleActivity(Offer): %v", err)
	}
	if desc == nil || desc.ObjectType != "Agreement" {
		t.Fatalf("descriptor = %+v", desc)
	}
	if len(deliverer.enqueued) != 1 || deliverer.enqueued[0].activity["type"] != "Accept" {
		t.Fatalf("expected one enqueued Accept(Offer), got %+v", deliverer.enqueued)
	}
	if deliverer.enqueued[0].recipient != "https://remote.example/users/bob" {
		t.Fatalf("Accept delivered to %q, want the offering actor", deliverer.enqueued[0].recipient)
	}
}

func TestHandleOfferRejectsMismatchedDuration(t *testing.T) {
	d, _ := newTestDispatcher(t)
	chain := caip.MoneroMainnet()
	d.Agreements = &agreements.Reconciler{
		Store:       d.Store,
		Proposals:   &stubProposalLookup{actorID: "https://mitra.example/users/alice", option: agreements.SubscriptionOption{ChainID: chain, PriceAtomicUnits: 10}},
		Addresses:   &stubAddressAllocator{address: "4AdUndXHHZ9pfQj27iMAjAU4xMeuNZmVzqKqAT3p5jz4"},
		InstanceURL: "https://mitra.example",
	}

	offer := mustRaw(t, map[string]interface{}{
		"id": "https://remote.example/activities/offer-2", "type": "Offer", "actor": "https://remote.example/users/bob",
		"object": map[string]interface{}{
			"id": "https://remote.example/objects/agreement-2", "type": "Agreement", "attributedTo": "https://remote.example/users/bob",
			"stipulates": map[string]interface{}{
				"id": "https://remote.example/objects/agreement-2#primary", "type": "Commitment",
				"satisfies":        "https://mitra.example/users/alice/proposals/" + chain.String() + "#primary",
				"resourceQuantity": map[string]interface{}{"hasUnit": "second", "hasNumericalValue": "999"},
			},
			"stipulatesReciprocal": map[string]interface{}{
				"id": "https://remote.example/objects/agreement-2#reciprocal", "type": "Commitment",
				"satisfies":        "https://remote.example/objects/agreement-2#reciprocal-intent",
				"resourceQuantity": map[string]interface{}{"hasUnit": "monero", "hasNumericalValue": "100"},
			},
		},
	})
	if _, err := d.HandleActivity(context.Background(), offer, nil, true); err == nil {
		t.Fatal("expected an error for a duration that does not match amount/price")
	}
}
