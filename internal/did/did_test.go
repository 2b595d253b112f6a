package did

import (
	"crypto/ed25519"
	"testing"
)

func TestKeyRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := FromEd25519(pub)
	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey(%q): %v", key.String(), err)
	}
	if parsed.Codec != key.Codec {
		t.Fatalf("codec mismatch: got %v, want %v", parsed.Codec, key.Codec)
	}
	gotPub, err := parsed.Ed25519PublicKey()
	if err != nil {
		t.Fatalf("Ed25519PublicKey: %v", err)
	}
	if !gotPub.Equal(pub) {
		t.Fatal("round-tripped public key does not match original")
	}
}

func TestParseDIDKey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	s := FromEd25519(pub).String()
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	if d.Method() != "key" {
		t.Fatalf("Method() = %q, want key", d.Method())
	}
	k, ok := d.AsKey()
	if !ok {
		t.Fatal("AsKey() returned false for a did:key")
	}
	if _, ok := d.AsPkh(); ok {
		t.Fatal("AsPkh() returned true for a did:key")
	}
	if k.String() != s {
		t.Fatalf("re-rendered key %q != original %q", k.String(), s)
	}
	if d.String() != s {
		t.Fatalf("DID.String() %q != original %q", d.String(), s)
	}
}

func TestParseDIDPkh(t *testing.T) {
	s := "did:pkh:eip155:1:0xabc1230000000000000000000000000000dEaD"
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	p, ok := d.AsPkh()
	if !ok {
		t.Fatal("AsPkh() returned false for a did:pkh")
	}
	if p.ChainID() != "eip155:1" {
		t.Fatalf("ChainID() = %q, want eip155:1", p.ChainID())
	}
}

func TestPkhEqualCaseInsensitiveForEip155(t *testing.T) {
	a, _ := ParsePkh("did:pkh:eip155:1:0xABCDEF1230000000000000000000000000dEaD")
	b, _ := ParsePkh("did:pkh:eip155:1:0xabcdef1230000000000000000000000000dead")
	if !a.Equal(b) {
		t.Fatal("expected eip155 addresses to compare case-insensitively")
	}
}

func TestParseRejectsUnsupportedMethod(t *testing.T) {
	if _, err := Parse("did:web:example.com"); err == nil {
		t.Fatal("expected error for unsupported DID method")
	}
}

func TestParseRejectsNonDID(t *testing.T) {
	if _, err := Parse("https://example.com/users/alice"); err == nil {
		t.Fatal("expected error for a non-DID string")
	}
}

func TestFromRSAPublicKeyRoundTrip(t *testing.T) {
	pub, priv := generateTestRSAKey(t)
	_ = priv
	key, err := FromRSAPublicKey(pub)
	if err != nil {
		t.Fatalf("FromRSAPublicKey: %v", err)
	}
	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	gotPub, err := parsed.RSAPublicKey()
	if err != nil {
		t.Fatalf("RSAPublicKey: %v", err)
	}
	if gotPub.E != pub.E || gotPub.N.Cmp(pub.N) != 0 {
		t.Fatal("round-tripped RSA public key does not match original")
	}
}
