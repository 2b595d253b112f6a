package authority

import (
	"fmt"
	"net/url"
)

func httpOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("authority: invalid object id: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("authority: object id has unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("authority: object id has no host")
	}
	return u.Scheme + "://" + u.Host, nil
}
