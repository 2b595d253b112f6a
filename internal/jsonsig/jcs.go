// Package jsonsig implements the Data Integrity proof suites federated
// objects use to stay verifiable independent of their transport: JCS
// canonicalization (RFC 8785) plus four proof suites layered on top of it —
// eddsa-jcs-2022, the FEP-8b32 blake2/ed25519 suite, the FEP-c390
// EIP-191/secp256k1 suite, and a legacy RSA-SHA256 linked-data suite for
// older objects.
package jsonsig

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Canonicalize renders v (any JSON-marshalable value) as JCS
// (RFC 8785) canonical JSON: object members sorted by UTF-16 code unit
// order of their keys, no insignificant whitespace, numbers rendered in
// their shortest round-tripping form.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: marshal: %w", err)
	}
	var decoded interface{}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("jcs: decode: %w", err)
	}
	var buf strings.Builder
	if err := canonicalizeValue(&buf, decoded); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// CanonicalizeMap is a convenience wrapper for the common case of
// canonicalizing a JSON object represented as map[string]interface{}.
func CanonicalizeMap(m map[string]interface{}) ([]byte, error) {
	return Canonicalize(m)
}

func canonicalizeValue(buf *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		return canonicalizeNumber(buf, val)
	case string:
		encoded, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalizeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := utf16.Encode([]rune(keys[i])), utf16.Encode([]rune(keys[j]))
			for n := 0; n < len(a) && n < len(b); n++ {
				if a[n] != b[n] {
					return a[n] < b[n]
				}
			}
			return len(a) < len(b)
		})
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyEncoded, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyEncoded)
			buf.WriteByte(':')
			if err := canonicalizeValue(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jcs: unsupported value type %T", v)
	}
	return nil
}

// canonicalizeNumber renders a JSON number per the ECMAScript-compatible
// shortest round-tripping form JCS requires.
func canonicalizeNumber(buf *strings.Builder, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("jcs: invalid number %q: %w", n.String(), err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("jcs: number %q is not representable in JSON", n.String())
	}
	if a := math.Abs(f); a != 0 && (a < 1e-6 || a >= 1e21) {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		e, _ := strconv.Atoi(exp)
		sign := "+"
		if e < 0 {
			sign, e = "-", -e
		}
		buf.WriteString(mant + "e" + sign + strconv.Itoa(e))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
