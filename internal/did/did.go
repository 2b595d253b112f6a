// Package did implements the subset of the Decentralized Identifiers
// specification this codebase needs: did:key (self-certifying keys) and
// did:pkh (chain-agnostic blockchain accounts, CAIP-10).
package did

import (
	"fmt"
	"regexp"
	"strings"
)

// didRe matches the generic "did:<method>:<method-specific-id>" shape.
var didRe = regexp.MustCompile(`^did:(?P<method>[a-zA-Z]+):[A-Za-z0-9._:-]+$`)

// DID is a parsed decentralized identifier. It is always one of Key or Pkh;
// other methods are rejected by Parse since this codebase never needs to
// resolve them.
type DID struct {
	method     string
	identifier string
	key        *Key
	pkh        *Pkh
}

// Method returns the DID method name, e.g. "key" or "pkh".
func (d DID) Method() string { return d.method }

// Identifier returns the method-specific identifier substring.
func (d DID) Identifier() string { return d.identifier }

// String renders the DID back to its canonical "did:method:id" form.
func (d DID) String() string {
	return fmt.Sprintf("did:%s:%s", d.method, d.identifier)
}

// AsKey returns the did:key view of this DID, or false if the method isn't "key".
func (d DID) AsKey() (Key, bool) {
	if d.key == nil {
		return Key{}, false
	}
	return *d.key, true
}

// AsPkh returns the did:pkh view of this DID, or false if the method isn't "pkh".
func (d DID) AsPkh() (Pkh, bool) {
	if d.pkh == nil {
		return Pkh{}, false
	}
	return *d.pkh, true
}

// Equal reports whether two DIDs are the same identifier. Comparison is
// case-sensitive except for did:pkh, whose CAIP-10 account address compares
// case-insensitively (see Pkh.Equal).
func (d DID) Equal(other DID) bool {
	if d.pkh != nil && other.pkh != nil {
		return d.pkh.Equal(*other.pkh)
	}
	return d.String() == other.String()
}

// Parse parses s as a DID. It accepts only did:key and did:pkh; any other
// method, or any string that isn't a DID at all (e.g. an https:// URL), is
// an error.
func Parse(s string) (DID, error) {
	m := didRe.FindStringSubmatch(s)
	if m == nil {
		return DID{}, fmt.Errorf("did: %q is not a valid DID", s)
	}
	method := m[1]
	rest := strings.TrimPrefix(s, "did:"+method+":")
	switch method {
	case "key":
		k, err := ParseKey(s)
		if err != nil {
			return DID{}, err
		}
		return DID{method: method, identifier: rest, key: &k}, nil
	case "pkh":
		p, err := ParsePkh(s)
		if err != nil {
			return DID{}, err
		}
		return DID{method: method, identifier: rest, pkh: &p}, nil
	default:
		return DID{}, fmt.Errorf("did: unsupported DID method %q", method)
	}
}
