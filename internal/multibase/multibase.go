// Package multibase implements the base58btc multibase encoding used by
// did:key and other multiformats identifiers. Only the "z" (base58btc)
// prefix is supported; it is the only base this codebase's DID and
// content-integrity identifiers ever use.
package multibase

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Base58btcPrefix is the single-character multibase prefix for base58btc.
const Base58btcPrefix = 'z'

// Encode prepends the base58btc multibase prefix to the base58-encoded data.
func Encode(data []byte) string {
	return string(Base58btcPrefix) + base58.Encode(data)
}

// Decode strips the base58btc multibase prefix and decodes the remainder.
// Any other prefix byte is rejected since this codebase never produces or
// consumes other multibase encodings.
func Decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("multibase: empty string")
	}
	if s[0] != Base58btcPrefix {
		return nil, fmt.Errorf("multibase: unsupported prefix %q (only base58btc is supported)", s[0])
	}
	data, err := base58.Decode(s[1:])
	if err != nil {
		return nil, fmt.Errorf("multibase: invalid base58btc payload: %w", err)
	}
	return data, nil
}
