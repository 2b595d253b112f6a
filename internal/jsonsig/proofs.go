package jsonsig

import (
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/klppl/mitra/internal/crypto"
	"github.com/klppl/mitra/internal/multibase"
	"golang.org/x/crypto/blake2b"
)

// ProofType names one of the four proof suites this codebase understands.
type ProofType string

const (
	// EddsaJcsSignature is the primary portable-object proof suite:
	// Ed25519 over JCS-canonicalized data, keyed by a did:key
	// verification method.
	EddsaJcsSignature ProofType = "JcsEddsaSignature2022"
	// Blake2Ed25519Signature is FEP-8b32's variant, using a BLAKE2b-512
	// digest of the canonical form instead of signing it directly.
	Blake2Ed25519Signature ProofType = "JcsBlake2Ed25519Signature2022"
	// JcsEip191Signature is FEP-c390's variant for did:pkh (eip155)
	// signers: an EIP-191 personal_sign signature recoverable to an
	// Ethereum address.
	JcsEip191Signature ProofType = "JcsEip191Signature2022"
	// LegacyRsaSignature is the older RSA-SHA256 linked-data signature
	// suite, retained for verifying objects signed before Ed25519
	// portable identities were introduced.
	LegacyRsaSignature ProofType = "RsaSignature2017"

	// dataIntegrityProofType is the W3C Data Integrity wire type. A
	// portable object (spec.md §6, §8 scenario 2) carries
	// "type":"DataIntegrityProof" with the suite named by "cryptosuite"
	// instead of folding the suite name into "type" itself.
	dataIntegrityProofType = "DataIntegrityProof"
	// CryptosuiteEddsaJcs2022 is the "cryptosuite" value that selects
	// EddsaJcsSignature under the DataIntegrityProof wire form.
	CryptosuiteEddsaJcs2022 = "eddsa-jcs-2022"
)

// Proof is the "proof" member attached to a signed ActivityPub object.
type Proof struct {
	Type ProofType `json:"type"`
	// Cryptosuite is set when the wire proof used the DataIntegrityProof
	// wrapper; it names the suite instead of Type doing so directly.
	Cryptosuite        string `json:"cryptosuite,omitempty"`
	Created            string `json:"created,omitempty"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue,omitempty"`
	// SignatureValue is used only by LegacyRsaSignature, whose historical wire
	// form stores the base64 signature under "signatureValue" instead of
	// the multibase "proofValue".
	SignatureValue string `json:"signatureValue,omitempty"`

	// raw is the exact wire proof object Split parsed this Proof from. It
	// lets proofConfigBytes clone the real proof and strip only its
	// signature field, rather than rebuilding a config from a fixed set
	// of named fields and silently dropping members like cryptosuite.
	// Proofs built by the Create* functions in this package leave it nil.
	raw map[string]interface{}
}

// errNoProof is returned when Split can't find a "proof" member.
var errNoProof = fmt.Errorf("jsonsig: object has no proof")

// Split extracts the proof from a signed object and returns the proof plus
// the object with "proof" removed, ready for canonicalization.
func Split(object map[string]interface{}) (Proof, map[string]interface{}, error) {
	raw, ok := object["proof"]
	if !ok {
		return Proof{}, nil, errNoProof
	}
	proofMap, ok := raw.(map[string]interface{})
	if !ok {
		return Proof{}, nil, fmt.Errorf("jsonsig: proof member is not an object")
	}
	cryptosuite := stringField(proofMap, "cryptosuite")
	proof := Proof{
		ProofPurpose:       stringField(proofMap, "proofPurpose"),
		Created:            stringField(proofMap, "created"),
		VerificationMethod: stringField(proofMap, "verificationMethod"),
		ProofValue:         stringField(proofMap, "proofValue"),
		SignatureValue:     stringField(proofMap, "signatureValue"),
		Cryptosuite:        cryptosuite,
		Type:               resolveProofType(stringField(proofMap, "type"), cryptosuite),
		raw:                proofMap,
	}
	unsigned := make(map[string]interface{}, len(object)-1)
	for k, v := range object {
		if k != "proof" {
			unsigned[k] = v
		}
	}
	return proof, unsigned, nil
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

// resolveProofType maps a wire "type"/"cryptosuite" pair to the suite
// identifier Verify* functions dispatch on. spec.md §6's portable objects
// use the W3C Data Integrity wrapper ("type":"DataIntegrityProof",
// "cryptosuite":"eddsa-jcs-2022"); the other suites still name themselves
// directly in "type" and carry no cryptosuite member.
func resolveProofType(wireType, cryptosuite string) ProofType {
	if wireType == dataIntegrityProofType && cryptosuite == CryptosuiteEddsaJcs2022 {
		return EddsaJcsSignature
	}
	return ProofType(wireType)
}

// proofConfig returns the JCS bytes of the proof with its signature value
// fields stripped, the second half of the two-part signing input every
// suite here uses: sign(JCS(document) || JCS(proofConfig)).
//
// When p was produced by Split, this clones the exact wire proof object and
// deletes only the signature fields, so every member a real signer included
// (cryptosuite, nonce, domain, ...) survives into the signing input. When p
// was built directly by one of this package's Create* functions, there is
// no wire object to clone yet, so the config is assembled from the fields
// that function set.
func proofConfigBytes(p Proof) ([]byte, error) {
	if p.raw != nil {
		cfg := make(map[string]interface{}, len(p.raw))
		for k, v := range p.raw {
			if k == "proofValue" || k == "signatureValue" {
				continue
			}
			cfg[k] = v
		}
		return CanonicalizeMap(cfg)
	}
	cfg := map[string]interface{}{
		"type":               string(p.Type),
		"proofPurpose":       p.ProofPurpose,
		"verificationMethod": p.VerificationMethod,
	}
	if p.Cryptosuite != "" {
		cfg["type"] = dataIntegrityProofType
		cfg["cryptosuite"] = p.Cryptosuite
	}
	if p.Created != "" {
		cfg["created"] = p.Created
	}
	return CanonicalizeMap(cfg)
}

func signingInput(document map[string]interface{}, p Proof) ([]byte, error) {
	docBytes, err := CanonicalizeMap(document)
	if err != nil {
		return nil, fmt.Errorf("jsonsig: canonicalize document: %w", err)
	}
	cfgBytes, err := proofConfigBytes(p)
	if err != nil {
		return nil, fmt.Errorf("jsonsig: canonicalize proof config: %w", err)
	}
	return append(docBytes, cfgBytes...), nil
}

// CreateEddsaJcsSignature signs document with an Ed25519 key and returns a
// complete Proof, ready to attach as object["proof"].
func CreateEddsaJcsSignature(document map[string]interface{}, verificationMethod string, key *crypto.Ed25519KeyPair) (Proof, error) {
	proof := Proof{
		Type:               EddsaJcsSignature,
		Cryptosuite:        CryptosuiteEddsaJcs2022,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		ProofPurpose:       "assertionMethod",
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return Proof{}, err
	}
	sig := key.Sign(input)
	proof.ProofValue = multibase.Encode(sig)
	return proof, nil
}

// VerifyEddsaJcsSignature verifies a JcsEddsaSignature2022 proof.
func VerifyEddsaJcsSignature(document map[string]interface{}, proof Proof, pub ed25519.PublicKey) error {
	if proof.Type != EddsaJcsSignature {
		return fmt.Errorf("jsonsig: expected proof type %s, got %s", EddsaJcsSignature, proof.Type)
	}
	sig, err := multibase.Decode(proof.ProofValue)
	if err != nil {
		return fmt.Errorf("jsonsig: decode proofValue: %w", err)
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return err
	}
	return crypto.VerifyEd25519(pub, input, sig)
}

// CreateBlake2Ed25519Signature implements FEP-8b32: identical to
// EddsaJcsSignature except the signing input is hashed with BLAKE2b-512
// before signing, which lets very large objects be signed without an
// Ed25519 library that streams its input.
func CreateBlake2Ed25519Signature(document map[string]interface{}, verificationMethod string, key *crypto.Ed25519KeyPair) (Proof, error) {
	proof := Proof{
		Type:               Blake2Ed25519Signature,
		Created:            time.Now().UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		ProofPurpose:       "assertionMethod",
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return Proof{}, err
	}
	digest := blake2b.Sum512(input)
	sig := key.Sign(digest[:])
	proof.ProofValue = multibase.Encode(sig)
	return proof, nil
}

// VerifyBlake2Ed25519Signature verifies a JcsBlake2Ed25519Signature2022 proof.
func VerifyBlake2Ed25519Signature(document map[string]interface{}, proof Proof, pub ed25519.PublicKey) error {
	if proof.Type != Blake2Ed25519Signature {
		return fmt.Errorf("jsonsig: expected proof type %s, got %s", Blake2Ed25519Signature, proof.Type)
	}
	sig, err := multibase.Decode(proof.ProofValue)
	if err != nil {
		return fmt.Errorf("jsonsig: decode proofValue: %w", err)
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return err
	}
	digest := blake2b.Sum512(input)
	return crypto.VerifyEd25519(pub, digest[:], sig)
}

// VerifyJcsEip191Signature verifies a FEP-c390 proof: the signing input is
// hashed and signed per EIP-191 personal_sign, and the recovered Ethereum
// address must equal the did:pkh (eip155) signer's address.
func VerifyJcsEip191Signature(document map[string]interface{}, proof Proof, expectedAddress string) error {
	if proof.Type != JcsEip191Signature {
		return fmt.Errorf("jsonsig: expected proof type %s, got %s", JcsEip191Signature, proof.Type)
	}
	sig, err := multibase.Decode(proof.ProofValue)
	if err != nil {
		return fmt.Errorf("jsonsig: decode proofValue: %w", err)
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return err
	}
	recovered, err := crypto.RecoverEIP191Address(input, sig)
	if err != nil {
		return fmt.Errorf("jsonsig: recover signer: %w", err)
	}
	if !addressesEqual(recovered, expectedAddress) {
		return fmt.Errorf("jsonsig: recovered address %s does not match expected signer %s", recovered, expectedAddress)
	}
	return nil
}

func addressesEqual(a, b string) bool {
	return len(a) == len(b) && equalFold(a, b)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// VerifyLegacyRsaSignature verifies the older RSA-SHA256 linked-data proof
// suite kept for compatibility with objects signed before portable
// identities existed. Its signing input is built by the same signingInput
// as the other suites; unlike them, the signature travels in
// signatureValue as base64 rather than proofValue as multibase.
func VerifyLegacyRsaSignature(document map[string]interface{}, proof Proof, pub *rsa.PublicKey) error {
	if proof.Type != LegacyRsaSignature {
		return fmt.Errorf("jsonsig: expected proof type %s, got %s", LegacyRsaSignature, proof.Type)
	}
	sig, err := decodeBase64(proof.SignatureValue)
	if err != nil {
		return fmt.Errorf("jsonsig: decode signatureValue: %w", err)
	}
	input, err := signingInput(document, proof)
	if err != nil {
		return err
	}
	return crypto.VerifyRSASHA256(pub, input, sig)
}
