package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the Keccak-256 digest Ethereum uses throughout its
// signing and addressing scheme (note: NOT the NIST SHA3-256 variant).
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// EIP191PersonalSignHash computes the digest signed by Ethereum's
// personal_sign / eth_sign, as specified by EIP-191: the message is
// prefixed with "\x19Ethereum Signed Message:\n<len>" before hashing.
func EIP191PersonalSignHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return Keccak256([]byte(prefix), message)
}

// RecoverEIP191Address recovers the Ethereum address that produced an
// EIP-191 personal_sign signature over message. sig is the 65-byte
// r(32) || s(32) || v signature as returned by web3 wallets, where v is
// 27/28 (or the 0/1 "recovery id" form some libraries emit).
func RecoverEIP191Address(message, sig []byte) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("eip191: signature must be 65 bytes, got %d", len(sig))
	}
	v := sig[64]
	switch {
	case v >= 27:
		v -= 27
	case v > 1:
		return "", fmt.Errorf("eip191: invalid recovery id %d", sig[64])
	}
	if v > 3 {
		return "", fmt.Errorf("eip191: invalid recovery id %d", v)
	}

	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:33], sig[0:32])
	copy(compact[33:65], sig[32:64])

	digest := EIP191PersonalSignHash(message)
	pubKey, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return "", fmt.Errorf("eip191: recover public key: %w", err)
	}
	return AddressFromPublicKey(pubKey), nil
}

// AddressFromPublicKey derives the lowercase 0x-prefixed Ethereum address
// for an secp256k1 public key: the low 20 bytes of Keccak-256(X || Y) over
// the uncompressed point coordinates.
func AddressFromPublicKey(pubKey *btcec.PublicKey) string {
	uncompressed := pubKey.SerializeUncompressed() // 0x04 || X(32) || Y(32)
	digest := Keccak256(uncompressed[1:])
	addr := digest[len(digest)-20:]
	return fmt.Sprintf("0x%x", addr)
}
