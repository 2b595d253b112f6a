package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func TestSignVerifyRSASHA256RoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	message := []byte("(request-target): post /inbox\nhost: example.com")
	sig, err := SignRSASHA256(priv, message)
	if err != nil {
		t.Fatalf("SignRSASHA256: %v", err)
	}
	if err := VerifyRSASHA256(&priv.PublicKey, message, sig); err != nil {
		t.Fatalf("VerifyRSASHA256: %v", err)
	}
}

func TestVerifyRSASHA256RejectsTamperedMessage(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sig, err := SignRSASHA256(priv, []byte("original"))
	if err != nil {
		t.Fatalf("SignRSASHA256: %v", err)
	}
	if err := VerifyRSASHA256(&priv.PublicKey, []byte("tampered"), sig); err == nil {
		t.Fatal("expected verification failure for a tampered message")
	}
}

func TestDecodePEMPublicKeyRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}))
	pub, err := DecodePEMPublicKey(pubPEM)
	if err != nil {
		t.Fatalf("DecodePEMPublicKey: %v", err)
	}
	if pub.E != priv.PublicKey.E || pub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatal("decoded public key does not match original")
	}
}
