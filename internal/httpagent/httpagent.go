// Package httpagent builds the outbound *http.Client this codebase uses for
// every federation request: a custom DNS resolver and redirect policy that
// refuse to connect to loopback, private, link-local, and unique-local
// addresses (SSRF protection, per the W3C ActivityPub security
// considerations and the OWASP SSRF cheat sheet), proxy selection for
// .onion/.i2p/.loki hosts, a bounded redirect count, and differentiated
// timeouts for the fetcher (short, many small requests) versus the
// deliverer (longer, POST bodies that must never be silently redirected).
package httpagent

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RedirectLimit is the maximum number of redirects an outbound request will
// follow. Deliverer requests (POST) never follow redirects at all.
const RedirectLimit = 3

// connectTimeoutFloor is the minimum connect timeout regardless of the
// caller's requested request timeout, since a short per-request timeout
// should not starve DNS/TCP/TLS setup on a slow peer.
const connectTimeoutFloor = 30 * time.Second

// Network selects which proxy (if any) an outbound request should use.
type Network int

const (
	NetworkClearnet Network = iota
	NetworkTor
	NetworkI2P
)

// DetectNetwork inspects requestURL's hostname and reports which overlay
// network it belongs to, if any.
func DetectNetwork(requestURL string) (Network, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return NetworkClearnet, fmt.Errorf("httpagent: invalid URL: %w", err)
	}
	host := u.Hostname()
	switch {
	case strings.HasSuffix(host, ".onion"):
		return NetworkTor, nil
	case strings.HasSuffix(host, ".i2p"), strings.HasSuffix(host, ".loki"):
		return NetworkI2P, nil
	default:
		return NetworkClearnet, nil
	}
}

// Config holds the federation-wide agent settings that determine how
// outbound requests are built, loaded from the process configuration.
type Config struct {
	SSRFProtectionEnabled bool
	ProxyURL              string
	OnionProxyURL         string
	I2PProxyURL           string
	UserAgent             string
}

// isSafeAddr reports whether an IP address is acceptable to connect to:
// not loopback, not private (RFC 1918 / ULA), not link-local.
func isSafeAddr(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		return !ip4.IsPrivate()
	}
	return !ip.IsPrivate()
}

// safeDialContext wraps the default dialer to reject connections to unsafe
// addresses after DNS resolution, closing the SSRF hole a redirect policy
// alone can't: the resolver itself must filter results, since an attacker
// fully controls what addresses their own hostname resolves to.
func safeDialContext(base *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("httpagent: invalid dial address %q: %w", addr, err)
		}
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		var safe []net.IP
		for _, ip := range ips {
			if isSafeAddr(ip) {
				safe = append(safe, ip)
			}
		}
		if len(safe) == 0 {
			return nil, fmt.Errorf("httpagent: %s resolves only to unsafe addresses", host)
		}
		var lastErr error
		for _, ip := range safe {
			conn, err := base.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}

func safeRedirectPolicy(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("httpagent: stopped after %d redirects", maxRedirects)
		}
		host := req.URL.Hostname()
		ips, err := net.LookupIP(host)
		if err != nil {
			return fmt.Errorf("httpagent: redirect target %s did not resolve: %w", host, err)
		}
		for _, ip := range ips {
			if !isSafeAddr(ip) {
				return fmt.Errorf("httpagent: redirect to unsafe address %s refused", ip)
			}
		}
		return nil
	}
}

// noRedirect is used for POST deliveries, which must never silently follow
// a redirect to a different inbox URL.
func noRedirect(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}

// proxyFor resolves the proxy URL (if any) that applies to network given the
// agent configuration.
func proxyFor(cfg Config, network Network) (*url.URL, error) {
	raw := cfg.ProxyURL
	switch network {
	case NetworkTor:
		if cfg.OnionProxyURL != "" {
			raw = cfg.OnionProxyURL
		}
	case NetworkI2P:
		if cfg.I2PProxyURL != "" {
			raw = cfg.I2PProxyURL
		}
	}
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}

// NewClient builds an *http.Client scoped to a single outbound request
// family: fetches follow redirects (bounded, SSRF-checked); deliveries
// never follow redirects at all.
func NewClient(cfg Config, requestURL string, timeout time.Duration, followRedirects bool) (*http.Client, error) {
	network, err := DetectNetwork(requestURL)
	if err != nil {
		return nil, err
	}
	proxyURL, err := proxyFor(cfg, network)
	if err != nil {
		return nil, fmt.Errorf("httpagent: invalid proxy URL: %w", err)
	}

	baseDialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if cfg.SSRFProtectionEnabled {
		transport.DialContext = safeDialContext(baseDialer)
	} else {
		transport.DialContext = baseDialer.DialContext
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	connectTimeout := timeout
	if connectTimeout < connectTimeoutFloor {
		connectTimeout = connectTimeoutFloor
	}
	baseDialer.Timeout = connectTimeout

	switch {
	case !followRedirects:
		client.CheckRedirect = noRedirect
	case cfg.SSRFProtectionEnabled:
		client.CheckRedirect = safeRedirectPolicy(RedirectLimit)
	default:
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= RedirectLimit {
				return fmt.Errorf("httpagent: stopped after %d redirects", RedirectLimit)
			}
			return nil
		}
	}
	return client, nil
}

// LimitedRead reads at most limit+1 bytes from r, returning an error if the
// body exceeded limit. This mirrors the deliverer/fetcher's need to bound
// response size without trusting a Content-Length header, which a
// malicious or buggy peer can misreport.
func LimitedRead(r io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("httpagent: read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("httpagent: response body exceeds %d byte limit", limit)
	}
	return data, nil
}
