package httpagent

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIsSafeAddrRejectsLoopbackAndPrivateRanges(t *testing.T) {
	unsafe := []string{
		"127.0.0.1", "::1", "10.0.0.1", "172.16.0.1", "192.168.1.1",
		"169.254.1.1", "fe80::1", "fc00::1",
	}
	for _, addr := range unsafe {
		ip := net.ParseIP(addr)
		if ip == nil {
			t.Fatalf("ParseIP(%q) failed", addr)
		}
		if isSafeAddr(ip) {
			t.Errorf("isSafeAddr(%q) = true, want false", addr)
		}
	}
}

func TestIsSafeAddrAllowsPublicAddresses(t *testing.T) {
	safe := []string{"93.184.216.34", "8.8.8.8", "2606:4700:4700::1111"}
	for _, addr := range safe {
		ip := net.ParseIP(addr)
		if ip == nil {
			t.Fatalf("ParseIP(%q) failed", addr)
		}
		if !isSafeAddr(ip) {
			t.Errorf("isSafeAddr(%q) = false, want true", addr)
		}
	}
}

func TestSafeDialContextRefusesUnsafeTarget(t *testing.T) {
	dial := safeDialContext(&net.Dialer{Timeout: time.Second})
	_, err := dial(context.Background(), "tcp", net.JoinHostPort("127.0.0.1", "80"))
	if err == nil {
		t.Fatal("expected safeDialContext to refuse a loopback address")
	}
}

func TestSafeRedirectPolicyStopsAfterLimit(t *testing.T) {
	policy := safeRedirectPolicy(1)
	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	via := []*http.Request{req}
	if err := policy(req, via); err == nil {
		t.Fatal("expected redirect policy to stop once the redirect count reaches the limit")
	}
}

func TestDetectNetworkClassifiesOverlayHosts(t *testing.T) {
	cases := map[string]Network{
		"https://example.onion/inbox": NetworkTor,
		"https://example.i2p/inbox":   NetworkI2P,
		"https://example.loki/inbox":  NetworkI2P,
		"https://mitra.example/inbox": NetworkClearnet,
	}
	for url, want := range cases {
		got, err := DetectNetwork(url)
		if err != nil {
			t.Fatalf("DetectNetwork(%q): %v", url, err)
		}
		if got != want {
			t.Errorf("DetectNetwork(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestNewClientDisablesRedirectsWhenNotFollowing(t *testing.T) {
	client, err := NewClient(Config{SSRFProtectionEnabled: true}, "https://mitra.example/inbox", time.Second, false)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.CheckRedirect == nil {
		t.Fatal("expected a CheckRedirect policy for a non-redirecting client")
	}
	if err := client.CheckRedirect(nil, nil); err != http.ErrUseLastResponse {
		t.Fatalf("CheckRedirect = %v, want http.ErrUseLastResponse", err)
	}
}

func TestLimitedReadRejectsOversizedBody(t *testing.T) {
	_, err := LimitedRead(strings.NewReader("0123456789"), 5)
	if err == nil {
		t.Fatal("expected LimitedRead to reject a body exceeding the limit")
	}
}

func TestLimitedReadAllowsBodyWithinLimit(t *testing.T) {
	data, err := LimitedRead(strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("LimitedRead: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("LimitedRead = %q, want %q", data, "hello")
	}
}
