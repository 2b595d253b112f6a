package jsonsig

import (
	"crypto/ed25519"
	"testing"

	"github.com/klppl/mitra/internal/crypto"
)

func testEd25519KeyPair(t *testing.T) *crypto.Ed25519KeyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return &crypto.Ed25519KeyPair{Private: priv, Public: pub}
}

func TestEddsaJcsSignatureVerifies(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "https://example.com/objects/1", "type": "Note", "content": "hello"}
	proof, err := CreateEddsaJcsSignature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	if err := VerifyEddsaJcsSignature(doc, proof, key.Public); err != nil {
		t.Fatalf("VerifyEddsaJcsSignature: %v", err)
	}
}

func TestEddsaJcsSignatureRejectsTamperedDocument(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "https://example.com/objects/1", "content": "hello"}
	proof, err := CreateEddsaJcsSignature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	tampered := map[string]interface{}{"id": "https://example.com/objects/1", "content": "goodbye"}
	if err := VerifyEddsaJcsSignature(tampered, proof, key.Public); err == nil {
		t.Fatal("expected verification failure for a tampered document")
	}
}

func TestEddsaJcsSignatureRejectsWrongKey(t *testing.T) {
	key := testEd25519KeyPair(t)
	other := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "https://example.com/objects/1"}
	proof, err := CreateEddsaJcsSignature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	if err := VerifyEddsaJcsSignature(doc, proof, other.Public); err == nil {
		t.Fatal("expected verification failure for the wrong public key")
	}
}

func TestBlake2Ed25519SignatureVerifies(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "https://example.com/objects/2", "type": "Article"}
	proof, err := CreateBlake2Ed25519Signature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateBlake2Ed25519Signature: %v", err)
	}
	if err := VerifyBlake2Ed25519Signature(doc, proof, key.Public); err != nil {
		t.Fatalf("VerifyBlake2Ed25519Signature: %v", err)
	}
}

func TestBlake2Ed25519SignatureRejectsTamperedDocument(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "https://example.com/objects/2"}
	proof, err := CreateBlake2Ed25519Signature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateBlake2Ed25519Signature: %v", err)
	}
	tampered := map[string]interface{}{"id": "https://example.com/objects/2-tampered"}
	if err := VerifyBlake2Ed25519Signature(tampered, proof, key.Public); err == nil {
		t.Fatal("expected verification failure for a tampered document")
	}
}

func TestVerifyRejectsWrongProofType(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "1"}
	proof, err := CreateEddsaJcsSignature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	if err := VerifyBlake2Ed25519Signature(doc, proof, key.Public); err == nil {
		t.Fatal("expected error verifying an eddsa-jcs proof as blake2-ed25519")
	}
}

func TestSplitRoundTrip(t *testing.T) {
	key := testEd25519KeyPair(t)
	doc := map[string]interface{}{"id": "1", "type": "Note"}
	proof, err := CreateEddsaJcsSignature(doc, "did:key:zExample#main", key)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	signed := map[string]interface{}{
		"id":   doc["id"],
		"type": doc["type"],
		"proof": map[string]interface{}{
			"type":               dataIntegrityProofType,
			"cryptosuite":        proof.Cryptosuite,
			"created":            proof.Created,
			"verificationMethod": proof.VerificationMethod,
			"proofPurpose":       proof.ProofPurpose,
			"proofValue":         proof.ProofValue,
		},
	}
	gotProof, unsigned, err := Split(signed)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if _, ok := unsigned["proof"]; ok {
		t.Fatal("Split did not remove the proof member")
	}
	if err := VerifyEddsaJcsSignature(unsigned, gotProof, key.Public); err != nil {
		t.Fatalf("VerifyEddsaJcsSignature on split document: %v", err)
	}
}

func TestSplitRejectsMissingProof(t *testing.T) {
	if _, _, err := Split(map[string]interface{}{"id": "1"}); err == nil {
		t.Fatal("expected error for an object with no proof member")
	}
}
