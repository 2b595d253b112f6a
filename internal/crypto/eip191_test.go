package crypto

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

func TestRecoverEIP191AddressRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	message := []byte("sign this agreement")
	digest := EIP191PersonalSignHash(message)
	sig := ecdsa.SignCompact(priv, digest, false)

	wantAddr := AddressFromPublicKey(priv.PubKey())
	gotAddr, err := RecoverEIP191Address(message, sig)
	if err != nil {
		t.Fatalf("RecoverEIP191Address: %v", err)
	}
	if gotAddr != wantAddr {
		t.Fatalf("recovered address = %s, want %s", gotAddr, wantAddr)
	}
}

func TestRecoverEIP191AddressRejectsTamperedMessage(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	message := []byte("sign this agreement")
	digest := EIP191PersonalSignHash(message)
	sig := ecdsa.SignCompact(priv, digest, false)

	addr, err := RecoverEIP191Address([]byte("a different agreement"), sig)
	if err != nil {
		t.Fatalf("RecoverEIP191Address: %v", err)
	}
	if addr == AddressFromPublicKey(priv.PubKey()) {
		t.Fatal("recovered address should not match for a tampered message")
	}
}

func TestRecoverEIP191AddressRejectsWrongLength(t *testing.T) {
	if _, err := RecoverEIP191Address([]byte("x"), make([]byte, 64)); err == nil {
		t.Fatal("expected error for a non-65-byte signature")
	}
}
