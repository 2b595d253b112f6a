// Package crypto implements the signature primitives used across the
// federation core: RSA and Ed25519 keypair handling for HTTP Signatures and
// Data Integrity proofs, and secp256k1/EIP-191 recovery for FEP-c390
// chain-agnostic proofs.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
)

// RSAKeyPair holds an RSA key pair, PEM-encoded public form cached for reuse
// in actor documents.
type RSAKeyPair struct {
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	PublicPEM string
}

// LoadOrGenerateRSAKeyPair loads an RSA key pair from PEM files, generating
// and persisting a new 2048 bit key pair if the files do not exist yet.
func LoadOrGenerateRSAKeyPair(privatePath, publicPath string) (*RSAKeyPair, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		slog.Info("RSA key pair not found, generating new one", "private", privatePath, "public", publicPath)
		return generateAndSaveRSAKeyPair(privatePath, publicPath)
	}

	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return parseRSAKeyPair(privPEM, pubPEM)
}

func generateAndSaveRSAKeyPair(privatePath, publicPath string) (*RSAKeyPair, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	privBytes := x509.MarshalPKCS1PrivateKey(privKey)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	if err := os.WriteFile(privatePath, privPEM, 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, pubPEM, 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}

	slog.Info("generated RSA key pair", "private", privatePath, "public", publicPath)
	return parseRSAKeyPair(privPEM, pubPEM)
}

func parseRSAKeyPair(privPEM, pubPEM []byte) (*RSAKeyPair, error) {
	privBlock, _ := pem.Decode(privPEM)
	if privBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}
	privKey, err := x509.ParsePKCS1PrivateKey(privBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBlock, _ := pem.Decode(pubPEM)
	if pubBlock == nil {
		return nil, fmt.Errorf("failed to decode public key PEM")
	}
	pubInterface, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pubKey, ok := pubInterface.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}

	return &RSAKeyPair{Private: privKey, Public: pubKey, PublicPEM: string(pubPEM)}, nil
}

// DecodePEMPublicKey parses a PEM-encoded PKIX RSA public key, as found in a
// remote actor's publicKeyPem field.
func DecodePEMPublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM public key")
	}
	pubInterface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pubKey, ok := pubInterface.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return pubKey, nil
}

// SignRSASHA256 signs message with an RSA-SHA256 (PKCS#1 v1.5) signature,
// the algorithm draft-cavage HTTP Signatures and the legacy linked-data
// proof suite both use.
func SignRSASHA256(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("rsa-sha256 sign: %w", err)
	}
	return sig, nil
}

// VerifyRSASHA256 verifies an RSA-SHA256 signature produced by SignRSASHA256.
func VerifyRSASHA256(key *rsa.PublicKey, message, signature []byte) error {
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature); err != nil {
		return fmt.Errorf("rsa-sha256 verify: %w", err)
	}
	return nil
}
