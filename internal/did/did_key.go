package did

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"regexp"

	"github.com/klppl/mitra/internal/multibase"
	"github.com/klppl/mitra/internal/multicodec"
)

// didKeyRe matches "did:key:z...".
var didKeyRe = regexp.MustCompile(`^did:key:(?P<key>z[1-9A-HJ-NP-Za-km-z]+)$`)

// Key is a did:key identifier: a multicodec-tagged public key, multibase
// encoded. Both Ed25519 and RSA public keys are valid did:key values, but
// only Ed25519 keys are accepted as ap:// URL authorities (see package
// apurl).
type Key struct {
	Codec   multicodec.Code
	KeyData []byte
}

// FromEd25519 builds a did:key Key wrapping an Ed25519 public key.
func FromEd25519(pub ed25519.PublicKey) Key {
	return Key{Codec: multicodec.Ed25519Pub, KeyData: append([]byte(nil), pub...)}
}

// FromRSAPublicKey builds a did:key Key wrapping an RSA public key's
// DER (PKIX) encoding.
func FromRSAPublicKey(pub *rsa.PublicKey) (Key, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return Key{}, fmt.Errorf("did: marshal rsa public key: %w", err)
	}
	return Key{Codec: multicodec.RsaPub, KeyData: der}, nil
}

// Multibase returns the multicodec-prefixed, multibase-encoded key string
// (the part after "did:key:").
func (k Key) Multibase() string {
	return multibase.Encode(multicodec.Encode(k.Codec, k.KeyData))
}

// String renders the full "did:key:z..." identifier.
func (k Key) String() string {
	return "did:key:" + k.Multibase()
}

// Ed25519PublicKey returns the wrapped key as an Ed25519 public key. It
// errors if this did:key does not carry an Ed25519 public key, matching
// ApUrl's authority requirement and the EddsaJcsSignature verification-method
// check.
func (k Key) Ed25519PublicKey() (ed25519.PublicKey, error) {
	if k.Codec != multicodec.Ed25519Pub {
		return nil, fmt.Errorf("did: key codec %s is not ed25519-pub", k.Codec)
	}
	if len(k.KeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("did: ed25519 key has wrong length %d", len(k.KeyData))
	}
	return ed25519.PublicKey(k.KeyData), nil
}

// RSAPublicKey returns the wrapped key as an RSA public key.
func (k Key) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Codec != multicodec.RsaPub {
		return nil, fmt.Errorf("did: key codec %s is not rsa-pub", k.Codec)
	}
	pub, err := x509.ParsePKIXPublicKey(k.KeyData)
	if err != nil {
		return nil, fmt.Errorf("did: parse rsa public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("did: embedded key is not an RSA public key")
	}
	return rsaPub, nil
}

// ParseKey parses a "did:key:z..." string.
func ParseKey(s string) (Key, error) {
	m := didKeyRe.FindStringSubmatch(s)
	if m == nil {
		return Key{}, fmt.Errorf("did: %q is not a valid did:key", s)
	}
	raw, err := multibase.Decode(m[1])
	if err != nil {
		return Key{}, fmt.Errorf("did: decode did:key multibase: %w", err)
	}
	code, payload, err := multicodec.Decode(raw)
	if err != nil {
		return Key{}, fmt.Errorf("did: decode did:key multicodec: %w", err)
	}
	switch code {
	case multicodec.Ed25519Pub, multicodec.RsaPub:
	default:
		return Key{}, fmt.Errorf("did: did:key codec %s is not a supported public key type", code)
	}
	return Key{Codec: code, KeyData: payload}, nil
}
