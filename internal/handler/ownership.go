package handler

import (
	"net/url"
	"strings"

	"github.com/klppl/mitra/internal/apurl"
)

// ActorIDFromKeyID derives the controlling actor id from an HTTP-signature
// keyId, per spec.md §4.8: strip a "#fragment" (the common case, e.g.
// "https://a.test/users/u#main-key"), except a Podcast-Index-style
// "?id=<actor>" query which names the actor directly, and a GoToSocial-style
// trailing "/main-key" path segment.
func ActorIDFromKeyID(keyID string) string {
	if u, err := url.Parse(keyID); err == nil {
		if id := u.Query().Get("id"); id != "" {
			return id
		}
	}
	if idx := strings.IndexByte(keyID, '#'); idx >= 0 {
		keyID = keyID[:idx]
	}
	keyID = strings.TrimSuffix(keyID, "/main-key")
	return keyID
}

// sameHost reports whether two HTTP(S) ids share an authority.
func sameHost(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}

// sameAuthority implements the ownership predicate of spec.md §4.8: two
// canonical ids are co-owned when they share a host (HTTP ids) or share a
// DID authority (ap:// ids).
func sameAuthority(actorID, attributedTo string) bool {
	aAp, aErr := apurl.Parse(actorID)
	bAp, bErr := apurl.Parse(attributedTo)
	if aErr == nil && bErr == nil {
		return aAp.Authority.String() == bAp.Authority.String()
	}
	if aErr == nil || bErr == nil {
		// One is a portable ap:// id, the other a conventional HTTP id: never co-owned.
		return false
	}
	return sameHost(actorID, attributedTo)
}

// TransportAuth is the result of a verified HTTP-signature request,
// resolved to the actor id that controls the signing key.
type TransportAuth struct {
	ActorID string
}

// CheckTransportOwnership implements spec.md §4.8's transport-auth path: the
// HTTP signature key's controller actor id must equal the activity's actor,
// after host-based canonicalization.
func CheckTransportOwnership(auth TransportAuth, activityActor string) bool {
	return sameAuthority(auth.ActorID, activityActor)
}

// CheckEmbeddedOwnership implements the ownership predicate on an embedded
// activity: its actor and the inner object's attributedTo must share the
// same authority.
func CheckEmbeddedOwnership(actor, attributedTo string) bool {
	return sameAuthority(actor, attributedTo)
}
