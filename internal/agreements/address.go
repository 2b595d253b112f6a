package agreements

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/klppl/mitra/internal/caip"
)

// DeterministicAddressAllocator implements PaymentAddressAllocator without a
// wallet RPC (out of scope per spec.md §1): each call gets a distinct
// address derived from the instance's key material via HKDF-SHA256, the
// same derive-per-context pattern the bridge's nostr.Signer uses to mint a
// per-actor key from "klistr-ap-actor:"+apID, generalized here to
// "mitra-payment-address:"+chainID+":"+ a fresh newULID() value. Because
// that value is random, an address cannot be derived again from its
// invoice. The derived bytes are rendered as hex, a placeholder identifier
// rather than a real chain address.
type DeterministicAddressAllocator struct {
	// Seed is instance-wide key material used only for address derivation;
	// it must never be reused as a signing key.
	Seed []byte
}

// AllocateAddress derives a fresh address for one invoice on chainID.
func (a *DeterministicAddressAllocator) AllocateAddress(chainID caip.ChainID) (string, error) {
	info := []byte("mitra-payment-address:" + chainID.String() + ":" + newULID())
	r := hkdf.New(sha256.New, a.Seed, nil, info)
	derived := make([]byte, 32)
	if _, err := io.ReadFull(r, derived); err != nil {
		return "", fmt.Errorf("agreements: derive address: %w", err)
	}
	return hex.EncodeToString(derived), nil
}
