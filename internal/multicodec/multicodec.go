// Package multicodec implements the small subset of the multicodec table
// needed for DID and multihash handling: unsigned-varint-prefixed codes for
// SHA2-256 digests and Ed25519/RSA public and private keys.
package multicodec

import (
	"fmt"

	"github.com/multiformats/go-varint"
)

// Code identifies a multicodec entry from the public table
// (https://github.com/multiformats/multicodec/blob/master/table.csv).
type Code uint64

const (
	Sha2_256    Code = 0x12
	Ed25519Pub  Code = 0xed
	Ed25519Priv Code = 0x1300
	RsaPub      Code = 0x1205
	RsaPriv     Code = 0x1305
)

func (c Code) String() string {
	switch c {
	case Sha2_256:
		return "sha2-256"
	case Ed25519Pub:
		return "ed25519-pub"
	case Ed25519Priv:
		return "ed25519-priv"
	case RsaPub:
		return "rsa-pub"
	case RsaPriv:
		return "rsa-priv"
	default:
		return fmt.Sprintf("multicodec(0x%x)", uint64(c))
	}
}

// Encode prepends the varint-encoded code to payload.
func Encode(code Code, payload []byte) []byte {
	prefix := varint.ToUvarint(uint64(code))
	out := make([]byte, 0, len(prefix)+len(payload))
	out = append(out, prefix...)
	out = append(out, payload...)
	return out
}

// Decode splits data into its leading multicodec code and remaining payload.
func Decode(data []byte) (Code, []byte, error) {
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return 0, nil, fmt.Errorf("multicodec: invalid varint prefix: %w", err)
	}
	return Code(code), data[n:], nil
}

// DecodeExact decodes data and requires the payload to be exactly size bytes.
func DecodeExact(data []byte, size int) (Code, []byte, error) {
	code, payload, err := Decode(data)
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != size {
		return 0, nil, fmt.Errorf("multicodec: expected payload of %d bytes, got %d", size, len(payload))
	}
	return code, payload, nil
}
