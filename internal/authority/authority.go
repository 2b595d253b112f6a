// Package authority resolves which identity a local actor is federated
// under: a conventional HTTPS server URL, a portable did:key identity
// (FEP-ef61), or a did:key identity additionally rendered through an HTTPS
// gateway so legacy AP servers that don't understand "ap://" can still
// dereference it.
package authority

import (
	"crypto/ed25519"
	"fmt"

	"github.com/klppl/mitra/internal/apurl"
	"github.com/klppl/mitra/internal/did"
)

// Kind distinguishes the three authority shapes a local actor can have.
type Kind int

const (
	KindServer Kind = iota
	KindKey
	KindKeyWithGateway
)

// GatewayPathPrefix is the well-known path FEP-ef61 gateway URLs use.
const GatewayPathPrefix = "/.well-known/apgateway/"

// Authority names the identity a local actor's objects are attributed to.
type Authority struct {
	kind      Kind
	serverURL string
	publicKey ed25519.PublicKey
}

// NewServer builds a conventional, non-portable HTTPS authority.
func NewServer(serverURL string) Authority {
	return Authority{kind: KindServer, serverURL: serverURL}
}

// NewKey builds a bare did:key portable authority.
func NewKey(serverURL string, pub ed25519.PublicKey) Authority {
	return Authority{kind: KindKey, serverURL: serverURL, publicKey: pub}
}

// NewKeyWithGateway builds a did:key authority additionally reachable via
// the server's HTTPS gateway path.
func NewKeyWithGateway(serverURL string, pub ed25519.PublicKey) Authority {
	return Authority{kind: KindKeyWithGateway, serverURL: serverURL, publicKey: pub}
}

// FromActor picks the authority for a local actor: a gateway-wrapped
// did:key identity when portable identities are enabled instance-wide,
// otherwise the conventional server URL.
func FromActor(serverURL string, pub ed25519.PublicKey, portableIdentitiesEnabled bool) Authority {
	if portableIdentitiesEnabled {
		return NewKeyWithGateway(serverURL, pub)
	}
	return NewServer(serverURL)
}

// IsPortable reports whether this authority is a did:key identity (with or
// without a gateway rendering), as opposed to a conventional server URL.
func (a Authority) IsPortable() bool {
	return a.kind != KindServer
}

// ServerURL returns the instance's HTTPS base URL regardless of authority
// kind — even a portable actor still has a home server for the gateway path.
func (a Authority) ServerURL() string {
	return a.serverURL
}

// didKey renders the did:key form of the wrapped Ed25519 public key.
func (a Authority) didKey() (did.Key, error) {
	return did.Key{Codec: 0xed, KeyData: a.publicKey}, nil
}

// ApURL returns the "ap://did:key:..." identity for this authority, or
// false if this authority is a conventional server URL.
func (a Authority) ApURL() (string, bool) {
	if a.kind == KindServer {
		return "", false
	}
	k, _ := a.didKey()
	return "ap://" + k.String(), true
}

// String renders the authority as it should be used as the prefix of an
// object id: the bare server URL, the bare "ap://did:key:..." identity, or
// the gateway-wrapped HTTPS rendering of it.
func (a Authority) String() string {
	switch a.kind {
	case KindServer:
		return a.serverURL
	case KindKey:
		apURL, _ := a.ApURL()
		return apURL
	case KindKeyWithGateway:
		k, _ := a.didKey()
		return a.serverURL + GatewayPathPrefix + "did:key:" + k.Multibase()
	default:
		return ""
	}
}

// ParseObjectAuthority extracts the authority prefix from an object id: the
// ap:// did:key origin for canonical portable ids and for gateway URLs, or
// the scheme+host for conventional HTTPS ids.
func ParseObjectAuthority(objectID string) (string, error) {
	if apurl.IsApURL(objectID) {
		u, err := apurl.Parse(objectID)
		if err != nil {
			return "", fmt.Errorf("authority: %w", err)
		}
		return u.Origin(), nil
	}
	u, err := apurl.ParseGatewayHTTPS(objectID)
	if err == nil {
		return u.Origin(), nil
	}
	return httpOrigin(objectID)
}
