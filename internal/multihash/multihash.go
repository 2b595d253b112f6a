// Package multihash implements the sha2-256 multihash encoding used to
// represent content digests as self-describing strings: a multicodec code,
// a varint-encoded digest length, and the digest bytes, multibase-encoded.
package multihash

import (
	"crypto/sha256"
	"fmt"

	"github.com/klppl/mitra/internal/multibase"
	"github.com/klppl/mitra/internal/multicodec"
	"github.com/multiformats/go-varint"
)

// EncodeSha256 computes the sha2-256 multihash string for digest, a 32 byte
// SHA-256 sum.
func EncodeSha256(digest []byte) (string, error) {
	if len(digest) != sha256.Size {
		return "", fmt.Errorf("multihash: sha2-256 digest must be %d bytes, got %d", sha256.Size, len(digest))
	}
	sized := append(varint.ToUvarint(uint64(len(digest))), digest...)
	encoded := multicodec.Encode(multicodec.Sha2_256, sized)
	return multibase.Encode(encoded), nil
}

// DecodeSha256 reverses EncodeSha256, returning the bare 32 byte digest.
func DecodeSha256(s string) ([]byte, error) {
	raw, err := multibase.Decode(s)
	if err != nil {
		return nil, err
	}
	code, payload, err := multicodec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if code != multicodec.Sha2_256 {
		return nil, fmt.Errorf("multihash: unexpected codec %s, want sha2-256", code)
	}
	size, n, err := varint.FromUvarint(payload)
	if err != nil {
		return nil, fmt.Errorf("multihash: invalid length varint: %w", err)
	}
	digest := payload[n:]
	if uint64(len(digest)) != size {
		return nil, fmt.Errorf("multihash: declared length %d does not match digest length %d", size, len(digest))
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("multihash: expected a 32 byte sha2-256 digest, got %d bytes", len(digest))
	}
	return digest, nil
}

// Sum256 computes the sha2-256 multihash of data directly.
func Sum256(data []byte) string {
	sum := sha256.Sum256(data)
	encoded, err := EncodeSha256(sum[:])
	if err != nil {
		// sha256.Sum256 always produces 32 bytes; EncodeSha256 cannot fail here.
		panic(err)
	}
	return encoded
}
