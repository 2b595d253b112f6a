// Package caip implements the small slice of the Chain Agnostic Improvement
// Proposals this codebase needs to describe value-exchange agreements:
// CAIP-2 chain ids, CAIP-10 account ids, and CAIP-19 asset types, scoped to
// the Monero chains FEP-0837 agreements in this codebase settle in.
package caip

import (
	"fmt"
	"strings"
)

// SLIP-44 coin type codes used to build Monero CAIP-19 asset types.
const (
	Slip44Monero  = 128
	Slip44Testnet = 1
	Slip44Wownero = 417
)

// ChainID is a CAIP-2 chain identifier, "<namespace>:<reference>".
type ChainID struct {
	Namespace string
	Reference string
}

func (c ChainID) String() string { return c.Namespace + ":" + c.Reference }

// MoneroMainnet is the CAIP-2 chain id Mitra uses for Monero mainnet, keyed
// by its network genesis-block-derived reference.
func MoneroMainnet() ChainID {
	return ChainID{Namespace: "monero", Reference: "418015bb9ae982a1975da7d79277c270"}
}

// ParseChainID parses a "<namespace>:<reference>" CAIP-2 string.
func ParseChainID(s string) (ChainID, error) {
	namespace, reference, ok := strings.Cut(s, ":")
	if !ok {
		return ChainID{}, fmt.Errorf("caip: %q is not a valid CAIP-2 chain id", s)
	}
	return ChainID{Namespace: namespace, Reference: reference}, nil
}

// AccountID is a CAIP-10 account identifier,
// "<namespace>:<reference>:<address>".
type AccountID struct {
	Chain   ChainID
	Address string
}

func (a AccountID) String() string { return a.Chain.String() + ":" + a.Address }

// URI renders the AccountID as a "caip:10:" URI, the form used in an
// Agreement's payment Link href.
func (a AccountID) URI() string { return "caip:10:" + a.String() }

// AssetType is a CAIP-19 asset type, "<chain>/<namespace>:<reference>".
type AssetType struct {
	Chain           ChainID
	AssetNamespace  string
	AssetReference  string
}

func (a AssetType) String() string {
	return fmt.Sprintf("%s/%s:%s", a.Chain, a.AssetNamespace, a.AssetReference)
}

// URI renders the AssetType as a "caip:19:" URI.
func (a AssetType) URI() string { return "caip:19:" + a.String() }

// MoneroAsset builds the CAIP-19 asset type for the native asset of a
// Monero-family chain. It always uses SLIP-44 coin type 128, whichever
// chain is given.
func MoneroAsset(chain ChainID) AssetType {
	return AssetType{Chain: chain, AssetNamespace: "slip44", AssetReference: fmt.Sprintf("%d", Slip44Monero)}
}
