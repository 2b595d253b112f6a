package httpsig

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

type hostPath struct {
	host string
	path string
}

func parseHostPath(requestURL string) (hostPath, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return hostPath{}, fmt.Errorf("httpsig: invalid request URL: %w", err)
	}
	if u.Host == "" {
		return hostPath{}, fmt.Errorf("httpsig: request URL has no host")
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return hostPath{host: u.Host, path: path}, nil
}

func base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// parseSignatureHeader parses a draft-cavage Signature header's
// comma-separated key="value" parameters.
func parseSignatureHeader(header string) (map[string]string, error) {
	if header == "" {
		return nil, fmt.Errorf("httpsig: missing Signature header")
	}
	params := make(map[string]string)
	for _, part := range splitTopLevelCommas(header) {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	if params["signature"] == "" {
		return nil, fmt.Errorf("httpsig: Signature header missing signature parameter")
	}
	return params, nil
}

// splitTopLevelCommas splits on commas outside of double-quoted segments,
// since signature parameter values are base64 and never contain commas
// themselves, but headers="a b c" style values could in principle.
func splitTopLevelCommas(s string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
