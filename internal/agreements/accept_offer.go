package agreements

import (
	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/caip"
)

// buildAcceptOffer constructs the outgoing Accept(Offer) activity: an
// Agreement whose two commitments mirror the offer's, with a caip:10
// payment URL and an "Open" preview — accept_offer.rs's build_accept_offer,
// with the wire shape it pins down in its own test fixture reproduced here.
func buildAcceptOffer(
	instanceURL, localActorID, agreementID, offerActivityID, remoteActor string,
	primary, reciprocal activitypub.Commitment,
	chainID caip.ChainID, paymentAddress string,
) map[string]interface{} {
	account := caip.AccountID{Chain: chainID, Address: paymentAddress}

	agreement := map[string]interface{}{
		"id":           agreementID,
		"type":         activitypub.Agreement,
		"attributedTo": localActorID,
		"stipulates": map[string]interface{}{
			"id":        primary.ID,
			"type":      activitypub.Commitment,
			"satisfies": primary.Satisfies,
			"resourceQuantity": map[string]interface{}{
				"hasUnit":           primary.ResourceQuantity.HasUnit,
				"hasNumericalValue": primary.ResourceQuantity.HasNumericalValue,
			},
		},
		"stipulatesReciprocal": map[string]interface{}{
			"id":        reciprocal.ID,
			"type":      activitypub.Commitment,
			"satisfies": reciprocal.Satisfies,
			"resourceQuantity": map[string]interface{}{
				"hasUnit":           reciprocal.ResourceQuantity.HasUnit,
				"hasNumericalValue": reciprocal.ResourceQuantity.HasNumericalValue,
			},
		},
		"url": map[string]interface{}{
			"type": "Link",
			"href": account.URI(),
			"rel":  []string{"payment"},
		},
		"preview": map[string]interface{}{
			"type": "Note",
			"name": "Open",
		},
	}

	activityID := authority.LocalActivityID(instanceURL, activitypub.Accept, newULID())
	accept := map[string]interface{}{
		"@context": activitypub.DefaultContext,
		"id":       activityID,
		"type":     activitypub.Accept,
		"actor":    localActorID,
		"object":   offerActivityID,
		"result":   agreement,
		"to":       []string{remoteActor},
	}
	return accept
}
