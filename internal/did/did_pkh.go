package did

import (
	"fmt"
	"regexp"
	"strings"
)

// didPkhRe matches "did:pkh:<namespace>:<reference>:<address>", the
// did:pkh encoding of a CAIP-10 account id.
var didPkhRe = regexp.MustCompile(`^did:pkh:(?P<namespace>[-a-z0-9]{3,8}):(?P<reference>[-a-zA-Z0-9]{1,32}):(?P<address>[a-zA-Z0-9]{1,64})$`)

// Pkh is a did:pkh identifier: a CAIP-10 blockchain account address.
type Pkh struct {
	Namespace string // e.g. "eip155"
	Reference string // e.g. "1" for Ethereum mainnet
	Address   string
}

// ChainID returns the CAIP-2 chain id ("<namespace>:<reference>").
func (p Pkh) ChainID() string {
	return p.Namespace + ":" + p.Reference
}

// AccountID returns the full CAIP-10 account id
// ("<namespace>:<reference>:<address>").
func (p Pkh) AccountID() string {
	return p.ChainID() + ":" + p.Address
}

// String renders the full "did:pkh:..." identifier.
func (p Pkh) String() string {
	return "did:pkh:" + p.AccountID()
}

// Equal compares two did:pkh values. eip155 (Ethereum-family) addresses
// compare case-insensitively since EIP-55 checksum casing is a display
// convention, not an identity distinction; other namespaces compare
// byte-for-byte.
func (p Pkh) Equal(other Pkh) bool {
	if p.Namespace != other.Namespace || p.Reference != other.Reference {
		return false
	}
	if p.Namespace == "eip155" {
		return strings.EqualFold(p.Address, other.Address)
	}
	return p.Address == other.Address
}

// NewPkh builds a did:pkh Pkh from a CAIP-2 chain id and an address.
func NewPkh(chainID, address string) (Pkh, error) {
	namespace, reference, ok := strings.Cut(chainID, ":")
	if !ok {
		return Pkh{}, fmt.Errorf("did: %q is not a valid CAIP-2 chain id", chainID)
	}
	return Pkh{Namespace: namespace, Reference: reference, Address: address}, nil
}

// ParsePkh parses a "did:pkh:..." string.
func ParsePkh(s string) (Pkh, error) {
	m := didPkhRe.FindStringSubmatch(s)
	if m == nil {
		return Pkh{}, fmt.Errorf("did: %q is not a valid did:pkh", s)
	}
	return Pkh{Namespace: m[1], Reference: m[2], Address: m[3]}, nil
}
