package apurl

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func generateRSAKey(t *testing.T) (*rsa.PublicKey, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return &priv.PublicKey, priv
}
