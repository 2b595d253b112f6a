package multicodec

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	encoded := Encode(Ed25519Pub, payload)
	code, decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if code != Ed25519Pub {
		t.Fatalf("code = %v, want %v", code, Ed25519Pub)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("payload = %v, want %v", decoded, payload)
	}
}

func TestDecodeExact(t *testing.T) {
	payload := make([]byte, 32)
	encoded := Encode(Sha2_256, payload)
	if _, _, err := DecodeExact(encoded, 32); err != nil {
		t.Fatalf("DecodeExact: %v", err)
	}
	if _, _, err := DecodeExact(encoded, 16); err == nil {
		t.Fatal("expected error for mismatched payload size")
	}
}

func TestCodeString(t *testing.T) {
	known := map[Code]string{
		Sha2_256:    "sha2-256",
		Ed25519Pub:  "ed25519-pub",
		Ed25519Priv: "ed25519-priv",
		RsaPub:      "rsa-pub",
		RsaPriv:     "rsa-priv",
	}
	for code, want := range known {
		if got := code.String(); got != want {
			t.Errorf("Code(%d).String() = %q, want %q", code, got, want)
		}
	}
	if got := Code(0xfffff).String(); got == "" {
		t.Error("expected non-empty fallback string for unknown code")
	}
}
