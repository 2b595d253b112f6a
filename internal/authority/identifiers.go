package authority

import (
	"fmt"
	"strings"
)

// LocalActorID builds the canonical id of a local actor under a
// conventional (non-portable) authority.
func LocalActorID(instanceURL, username string) string {
	return fmt.Sprintf("%s/users/%s", instanceURL, username)
}

// LocalObjectID builds the canonical id of a local object.
func LocalObjectID(instanceURL, objectUUID string) string {
	return fmt.Sprintf("%s/objects/%s", instanceURL, objectUUID)
}

// LocalActivityID builds the canonical id of a local outgoing activity.
func LocalActivityID(instanceURL, activityType, activityUUID string) string {
	return fmt.Sprintf("%s/activities/%s/%s", instanceURL, strings.ToLower(activityType), activityUUID)
}

// LocalAgreementID builds the canonical id of a local FEP-0837 agreement
// object, keyed by its backing invoice id.
func LocalAgreementID(instanceURL, invoiceID string) string {
	return fmt.Sprintf("%s/objects/agreements/%s", instanceURL, invoiceID)
}

// LocalProposalID builds the id of a local user's value proposal for a
// given chain-scoped asset, e.g. ".../users/alice/proposals/monero:<chain>".
func LocalProposalID(instanceURL, username, asset string) string {
	return fmt.Sprintf("%s/users/%s/proposals/%s", instanceURL, username, asset)
}

// ParseLocalActorID extracts the username from a local actor id, erroring
// if instanceURL is not a prefix or the id has an unexpected shape.
func ParseLocalActorID(instanceURL, actorID string) (string, error) {
	prefix := instanceURL + "/users/"
	if !strings.HasPrefix(actorID, prefix) {
		return "", fmt.Errorf("authority: %q is not a local actor id", actorID)
	}
	rest := actorID[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", fmt.Errorf("authority: %q is not a local actor id", actorID)
	}
	return rest, nil
}

// ParseLocalPrimaryIntentID extracts the proposer username and chain id
// from a primary commitment's "satisfies" field, which points at a local
// proposal fragment id: ".../users/<username>/proposals/<chain>:<ref>#primary".
func ParseLocalPrimaryIntentID(instanceURL, satisfies string) (username, asset string, err error) {
	prefix := instanceURL + "/users/"
	if !strings.HasPrefix(satisfies, prefix) {
		return "", "", fmt.Errorf("authority: %q is not a local proposal reference", satisfies)
	}
	rest := satisfies[len(prefix):]
	username, tail, ok := strings.Cut(rest, "/proposals/")
	if !ok {
		return "", "", fmt.Errorf("authority: %q is not a local proposal reference", satisfies)
	}
	asset = strings.TrimSuffix(tail, "#primary")
	if asset == tail {
		return "", "", fmt.Errorf("authority: %q is not a primary commitment reference", satisfies)
	}
	return username, asset, nil
}
