package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
)

// Ed25519KeyPair holds an Ed25519 key pair used for eddsa-jcs-2022 data
// integrity proofs and hs2019 HTTP signatures.
type Ed25519KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// LoadOrGenerateEd25519KeyPair loads a PEM-encoded 32-byte seed from
// seedPath, generating and persisting a new key if it does not exist yet.
func LoadOrGenerateEd25519KeyPair(seedPath string) (*Ed25519KeyPair, error) {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read ed25519 seed: %w", err)
		}
		slog.Info("ed25519 key pair not found, generating new one", "path", seedPath)
		return generateAndSaveEd25519KeyPair(seedPath)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode ed25519 seed PEM")
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed has wrong length %d", len(block.Bytes))
	}
	priv := ed25519.NewKeyFromSeed(block.Bytes)
	return &Ed25519KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

func generateAndSaveEd25519KeyPair(seedPath string) (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	seed := priv.Seed()
	block := &pem.Block{Type: "ED25519 SEED", Bytes: seed}
	if err := os.WriteFile(seedPath, pem.EncodeToMemory(block), 0600); err != nil {
		return nil, fmt.Errorf("write ed25519 seed: %w", err)
	}
	slog.Info("generated ed25519 key pair", "path", seedPath)
	return &Ed25519KeyPair{Private: priv, Public: pub}, nil
}

// Sign produces an Ed25519 signature over message.
func (kp *Ed25519KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}

// VerifyEd25519 verifies an Ed25519 signature.
func VerifyEd25519(pub ed25519.PublicKey, message, signature []byte) error {
	if !ed25519.Verify(pub, message, signature) {
		return fmt.Errorf("ed25519 signature verification failed")
	}
	return nil
}
