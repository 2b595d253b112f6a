package apurl

import (
	"crypto/ed25519"
	"testing"

	"github.com/klppl/mitra/internal/did"
)

func testAuthority(t *testing.T) did.Key {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return did.FromEd25519(pub)
}

func TestParseRoundTrip(t *testing.T) {
	key := testAuthority(t)
	raw := "ap://" + key.String() + "/objects/123"
	u, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	if u.String() != raw {
		t.Fatalf("String() = %q, want %q", u.String(), raw)
	}
	if u.Origin() != "ap://"+key.String() {
		t.Fatalf("Origin() = %q, want %q", u.Origin(), "ap://"+key.String())
	}
}

func TestParseRejectsMissingPath(t *testing.T) {
	key := testAuthority(t)
	if _, err := Parse("ap://" + key.String()); err == nil {
		t.Fatal("expected error for ap:// URL with no path")
	}
}

func TestParseRejectsNonAPScheme(t *testing.T) {
	if _, err := Parse("https://example.com/objects/1"); err == nil {
		t.Fatal("expected error for non-ap:// URL")
	}
}

func TestParseRejectsRSADidKeyAuthority(t *testing.T) {
	pub, priv := generateRSAKey(t)
	_ = priv
	key, err := did.FromRSAPublicKey(pub)
	if err != nil {
		t.Fatalf("FromRSAPublicKey: %v", err)
	}
	if _, err := Parse("ap://" + key.String() + "/objects/1"); err == nil {
		t.Fatal("expected error for an RSA did:key authority")
	}
}

func TestParseRejectsAuthorityInPath(t *testing.T) {
	key := testAuthority(t)
	if _, err := Parse("ap://" + key.String() + "//evil.example/objects/1"); err == nil {
		t.Fatal("expected error for a path carrying a network authority")
	}
}

func TestGatewayHTTPSRoundTrip(t *testing.T) {
	key := testAuthority(t)
	raw := "ap://" + key.String() + "/objects/123"
	u, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	gateway := u.GatewayHTTPS("mitra.example")
	back, err := ParseGatewayHTTPS(gateway)
	if err != nil {
		t.Fatalf("ParseGatewayHTTPS(%q): %v", gateway, err)
	}
	if back.String() != raw {
		t.Fatalf("gateway round trip = %q, want %q", back.String(), raw)
	}
}

func TestIsApURL(t *testing.T) {
	if !IsApURL("ap://did:key:z6Mk.../path") {
		t.Fatal("expected IsApURL to be true for an ap:// string")
	}
	if IsApURL("https://example.com") {
		t.Fatal("expected IsApURL to be false for an https:// string")
	}
}
