package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klppl/mitra/internal/config"
	"github.com/klppl/mitra/internal/crypto"
	"github.com/klppl/mitra/internal/did"
	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/handler"
	"github.com/klppl/mitra/internal/httpagent"
	"github.com/klppl/mitra/internal/jsonsig"
	"github.com/klppl/mitra/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "mitra.db")
	st, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rsaKey, err := crypto.LoadOrGenerateRSAKeyPair(
		filepath.Join(t.TempDir(), "private.pem"), filepath.Join(t.TempDir(), "public.pem"))
	if err != nil {
		t.Fatalf("LoadOrGenerateRSAKeyPair: %v", err)
	}

	cfg := &config.Config{
		InstanceURL:       "https://mitra.example",
		InboxMaxBodyBytes: 1 << 20,
	}
	f := fetcher.New(httpagent.Config{SSRFProtectionEnabled: true}, cfg.InstanceURL, "test")
	d := &handler.Dispatcher{Store: st, Fetcher: f, InstanceURL: cfg.InstanceURL}
	return New(cfg, st, f, d, rsaKey)
}

// buildSignedPortableNote implements spec.md §8 scenario 2's fixture: a
// standalone Note posted directly to the shared inbox, proven by its own
// eddsa-jcs-2022 Data Integrity proof rather than a transport signature.
func buildSignedPortableNote(t *testing.T, pub ed25519.PublicKey, priv *crypto.Ed25519KeyPair, content string) []byte {
	t.Helper()
	key := did.FromEd25519(pub)
	authority := "ap://" + key.String()
	doc := map[string]interface{}{
		"id":           authority + "/testobject",
		"type":         "Note",
		"attributedTo": authority + "/actor",
		"content":      content,
	}
	verificationMethod := "did:key:" + key.Multibase()
	proof, err := jsonsig.CreateEddsaJcsSignature(doc, verificationMethod, priv)
	if err != nil {
		t.Fatalf("CreateEddsaJcsSignature: %v", err)
	}
	doc["proof"] = map[string]interface{}{
		"type":               "DataIntegrityProof",
		"cryptosuite":        proof.Cryptosuite,
		"created":            proof.Created,
		"verificationMethod": proof.VerificationMethod,
		"proofPurpose":       proof.ProofPurpose,
		"proofValue":         proof.ProofValue,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal signed object: %v", err)
	}
	return body
}

func TestPortableObjectWithValidProofIsAccepted(t *testing.T) {
	s := newTestServer(t)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := &crypto.Ed25519KeyPair{Private: priv, Public: pub}
	body := buildSignedPortableNote(t, pub, key, "test")

	req := httptest.NewRequest(http.MethodPost, "https://mitra.example/inbox", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	s.handleInbox(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s, want 202", w.Code, w.Body.String())
	}

	didKey := did.FromEd25519(pub)
	canonicalID := "ap://" + didKey.String() + "/testobject"
	obj, ok := s.store.GetObject(canonicalID)
	if !ok {
		t.Fatalf("expected the object to be indexed under its canonical ap:// id %q", canonicalID)
	}
	if obj.ObjectType != "Note" {
		t.Fatalf("ObjectType = %q, want Note", obj.ObjectType)
	}
}

func TestPortableObjectWithTamperedContentIsRejected(t *testing.T) {
	s := newTestServer(t)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := &crypto.Ed25519KeyPair{Private: priv, Public: pub}
	body := buildSignedPortableNote(t, pub, key, "test")

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doc["content"] = "tampered"
	tampered, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal tampered object: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "https://mitra.example/inbox", strings.NewReader(string(tampered)))
	w := httptest.NewRecorder()
	s.handleInbox(w, req)

	if w.Code == http.StatusAccepted {
		t.Fatal("expected a tampered portable object to be rejected")
	}

	didKey := did.FromEd25519(pub)
	canonicalID := "ap://" + didKey.String() + "/testobject"
	if _, ok := s.store.GetObject(canonicalID); ok {
		t.Fatal("a rejected object must not be persisted")
	}
}
