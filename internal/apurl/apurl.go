// Package apurl implements the "ap://" URL scheme from FEP-ef61: a portable
// object location rooted at a did:key (Ed25519) authority instead of an
// HTTPS host, plus the gateway-compatible HTTPS rendering used when an
// ap:// object must be dereferenced over ordinary HTTP.
package apurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/klppl/mitra/internal/did"
)

// ApURL is a parsed "ap://did:key:z.../path" identifier.
type ApURL struct {
	Authority did.Key
	Location  string // path + optional query/fragment, always starting with "/"
}

// String renders the canonical "ap://did:key:.../path" form.
func (u ApURL) String() string {
	return "ap://" + u.Authority.String() + u.Location
}

// Origin returns the scheme/authority component used for same-origin
// comparisons ("ap://did:key:...").
func (u ApURL) Origin() string {
	return "ap://" + u.Authority.String()
}

// Parse parses an "ap://" URL. Per FEP-ef61, the authority must percent-decode
// to a did:key identifier carrying an Ed25519 public key (RSA did:key values
// and did:pkh are not valid ap:// authorities), and the path component must
// be present, non-empty, and must not itself carry a network authority
// (no leading "//").
func Parse(raw string) (ApURL, error) {
	const prefix = "ap://"
	if !strings.HasPrefix(raw, prefix) {
		return ApURL{}, fmt.Errorf("apurl: %q does not have the ap:// scheme", raw)
	}
	rest := raw[len(prefix):]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return ApURL{}, fmt.Errorf("apurl: invalid 'ap' URL: missing path")
	}
	didPart, pathPart := rest[:slash], rest[slash:]
	if len(pathPart) < 2 {
		return ApURL{}, fmt.Errorf("apurl: invalid 'ap' URL: empty path")
	}
	if strings.HasPrefix(pathPart, "//") {
		return ApURL{}, fmt.Errorf("apurl: invalid 'ap' URL: path must not carry an authority")
	}
	decodedDID, err := url.PathUnescape(didPart)
	if err != nil {
		return ApURL{}, fmt.Errorf("apurl: invalid percent-encoding in authority: %w", err)
	}
	parsedDID, err := did.Parse(decodedDID)
	if err != nil {
		return ApURL{}, fmt.Errorf("apurl: authority is not a valid DID: %w", err)
	}
	key, ok := parsedDID.AsKey()
	if !ok {
		return ApURL{}, fmt.Errorf("apurl: authority must be a did:key, got did:%s", parsedDID.Method())
	}
	if _, err := key.Ed25519PublicKey(); err != nil {
		return ApURL{}, fmt.Errorf("apurl: authority did:key must wrap an Ed25519 key: %w", err)
	}
	// Validate the path is a well formed relative reference (path, optional
	// query, optional fragment, no authority).
	if _, err := url.Parse(pathPart); err != nil {
		return ApURL{}, fmt.Errorf("apurl: invalid path component: %w", err)
	}
	return ApURL{Authority: key, Location: pathPart}, nil
}

// IsApURL reports whether raw looks like an "ap://" URL, without validating it.
func IsApURL(raw string) bool {
	return strings.HasPrefix(raw, "ap://")
}

// GatewayHTTPS renders the FEP-ef61 gateway-compatibility HTTPS form of this
// ap:// URL: "https://<gateway>/.well-known/apgateway/<did>/<path...>".
func (u ApURL) GatewayHTTPS(gateway string) string {
	return fmt.Sprintf("https://%s/.well-known/apgateway/%s%s", gateway, u.Authority.String(), u.Location)
}

// ParseGatewayHTTPS parses a gateway-compatibility HTTPS URL back into its
// ap:// form, the inverse of GatewayHTTPS.
func ParseGatewayHTTPS(raw string) (ApURL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ApURL{}, fmt.Errorf("apurl: invalid gateway URL: %w", err)
	}
	const marker = "/.well-known/apgateway/"
	idx := strings.Index(parsed.Path, marker)
	if idx < 0 {
		return ApURL{}, fmt.Errorf("apurl: not a FEP-ef61 gateway URL")
	}
	tail := parsed.Path[idx+len(marker):]
	return Parse("ap://" + tail)
}
