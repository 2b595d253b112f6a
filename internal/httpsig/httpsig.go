// Package httpsig implements the draft-cavage HTTP Signatures profile used
// to authenticate federation requests: RSA-SHA256 signing/verification via
// github.com/go-fed/httpsig (the same library and call shape the rest of
// this codebase's deliverer has always used), plus a from-scratch hs2019
// (Ed25519) signer/verifier for portable actors, since go-fed/httpsig's
// algorithm table does not cover Ed25519 request signing.
package httpsig

import (
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	gofedhttpsig "github.com/go-fed/httpsig"
	"github.com/klppl/mitra/internal/crypto"
)

// MaxDateSkew is the maximum allowed difference between a signed request's
// Date header and the verifier's clock, matching the window Mastodon-family
// servers use to bound replay of a captured signed request.
const MaxDateSkew = 30 * time.Second

// SignRSA signs req with an RSA private key using the draft-cavage profile
// (request-target, host, date, digest), identical to the deliverer's
// long-standing go-fed/httpsig call.
func SignRSA(req *http.Request, body []byte, keyID string, key *rsa.PrivateKey) error {
	signer, _, err := gofedhttpsig.NewSigner(
		[]gofedhttpsig.Algorithm{gofedhttpsig.RSA_SHA256},
		gofedhttpsig.DigestSha256,
		[]string{gofedhttpsig.RequestTarget, "host", "date", "digest"},
		gofedhttpsig.Signature,
		0,
	)
	if err != nil {
		return fmt.Errorf("httpsig: create RSA signer: %w", err)
	}
	if err := signer.SignRequest(key, keyID, req, body); err != nil {
		return fmt.Errorf("httpsig: sign request: %w", err)
	}
	return nil
}

// VerifyRSA verifies an inbound request signed with an RSA key, returning
// the keyId claimed by the Signature header for the caller to resolve.
func VerifyRSA(req *http.Request, key *rsa.PublicKey) (string, error) {
	if err := checkDateSkew(req); err != nil {
		return "", err
	}
	verifier, err := gofedhttpsig.NewVerifier(req)
	if err != nil {
		return "", fmt.Errorf("httpsig: create verifier: %w", err)
	}
	keyID := verifier.KeyId()
	if err := verifier.Verify(key, gofedhttpsig.RSA_SHA256); err != nil {
		return keyID, fmt.Errorf("httpsig: rsa-sha256 verification failed: %w", err)
	}
	return keyID, nil
}

// KeyID returns the keyId claimed by an inbound request's Signature header,
// without verifying it, so the caller can resolve the corresponding actor
// and choose the right verification path (RSA vs Ed25519).
func KeyID(req *http.Request) (string, error) {
	verifier, err := gofedhttpsig.NewVerifier(req)
	if err != nil {
		return "", fmt.Errorf("httpsig: parse Signature header: %w", err)
	}
	return verifier.KeyId(), nil
}

func checkDateSkew(req *http.Request) error {
	dateStr := req.Header.Get("Date")
	if dateStr == "" {
		return fmt.Errorf("httpsig: missing Date header")
	}
	reqTime, err := http.ParseTime(dateStr)
	if err != nil {
		return fmt.Errorf("httpsig: invalid Date header %q: %w", dateStr, err)
	}
	if skew := time.Since(reqTime); skew > MaxDateSkew || skew < -MaxDateSkew {
		return fmt.Errorf("httpsig: Date header too skewed (%v, allowed ±%v)", skew.Round(time.Second), MaxDateSkew)
	}
	return nil
}

// buildSigningString assembles the cavage signing string over a fixed
// ordered header set, mirroring create_http_signature_cavage's own fixed
// (request-target, host, date[, digest]) set, and returns it together with
// the space-separated header names.
func buildSigningString(method, path, host, date, digestHeader string) (message string, headerNames string) {
	type pair struct{ name, value string }
	pairs := []pair{
		{"(request-target)", strings.ToLower(method) + " " + path},
		{"host", host},
		{"date", date},
	}
	if digestHeader != "" {
		pairs = append(pairs, pair{"digest", digestHeader})
	}
	lines := make([]string, len(pairs))
	names := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = p.name + ": " + p.value
		names[i] = p.name
	}
	return strings.Join(lines, "\n"), strings.Join(names, " ")
}

// SignEd25519 builds a full draft-cavage hs2019 Signature header set for an
// Ed25519-signed request, since go-fed/httpsig has no Ed25519 algorithm.
// Returns the Host, Date, Digest (if body is non-empty) and Signature
// header values to set on the outgoing request.
func SignEd25519(method, requestURL string, body []byte, keyID string, key *crypto.Ed25519KeyPair) (host, date, digest, signature string, err error) {
	u, err := parseHostPath(requestURL)
	if err != nil {
		return "", "", "", "", err
	}
	date = time.Now().UTC().Format(http.TimeFormat)
	if len(body) > 0 {
		digest = crypto.ContentDigestHeader(body)
	}
	message, headerNames := buildSigningString(method, u.path, u.host, date, digest)
	sig := key.Sign([]byte(message))
	signature = fmt.Sprintf(
		`keyId="%s",algorithm="hs2019",headers="%s",signature="%s"`,
		keyID, headerNames, base64Encode(sig),
	)
	return u.host, date, digest, signature, nil
}

// VerifyEd25519 reconstructs and checks the cavage hs2019 signing string
// for an inbound request against a known public key.
func VerifyEd25519(req *http.Request, pub ed25519.PublicKey) error {
	if err := checkDateSkew(req); err != nil {
		return err
	}
	sigHeader := req.Header.Get("Signature")
	params, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}
	digest := req.Header.Get("Digest")
	message, _ := buildSigningString(req.Method, req.URL.RequestURI(), req.Host, req.Header.Get("Date"), digest)
	sig, err := base64Decode(params["signature"])
	if err != nil {
		return fmt.Errorf("httpsig: invalid signature encoding: %w", err)
	}
	if err := crypto.VerifyEd25519(pub, []byte(message), sig); err != nil {
		return fmt.Errorf("httpsig: hs2019 verification failed: %w", err)
	}
	return nil
}
