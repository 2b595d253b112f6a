package crypto

import "testing"

func TestContentDigestHeaderRoundTrip(t *testing.T) {
	body := []byte(`{"type":"Note"}`)
	header := ContentDigestHeader(body)
	if err := VerifyContentDigestHeader(header, body); err != nil {
		t.Fatalf("VerifyContentDigestHeader: %v", err)
	}
}

func TestVerifyContentDigestHeaderRejectsTamperedBody(t *testing.T) {
	header := ContentDigestHeader([]byte("original"))
	if err := VerifyContentDigestHeader(header, []byte("tampered")); err == nil {
		t.Fatal("expected digest mismatch for a tampered body")
	}
}

func TestContentDigestFieldRFC9530RoundTrip(t *testing.T) {
	body := []byte(`{"type":"Article"}`)
	header := ContentDigestFieldRFC9530(body)
	if err := VerifyContentDigestFieldRFC9530(header, body); err != nil {
		t.Fatalf("VerifyContentDigestFieldRFC9530: %v", err)
	}
}

func TestVerifyContentDigestFieldRFC9530RejectsTamperedBody(t *testing.T) {
	header := ContentDigestFieldRFC9530([]byte("original"))
	if err := VerifyContentDigestFieldRFC9530(header, []byte("tampered")); err == nil {
		t.Fatal("expected digest mismatch for a tampered body")
	}
}
