package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"github.com/klppl/mitra/internal/apurl"
	"github.com/klppl/mitra/internal/crypto"
	"github.com/klppl/mitra/internal/did"
	"github.com/klppl/mitra/internal/handler"
	"github.com/klppl/mitra/internal/httpsig"
	"github.com/klppl/mitra/internal/jsonsig"
	"github.com/klppl/mitra/internal/store"
)

// objectTypes are the standalone object shapes a portable-identity POST to
// the inbox may carry directly (rather than wrapped in a Create), per
// spec.md §8 scenario 2 ("POST to the shared inbox of {Note...}").
var objectTypes = map[string]bool{
	"Note": true, "Article": true, "Question": true,
}

// handleInbox implements spec.md §6's inbox wire contract: both the
// per-actor and shared-inbox POST targets share this handler, since
// fanout is controlled by the activity's own to/cc rather than the path.
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	origin := actorOrigin(nil, r.RemoteAddr)
	if !s.inboxLimiter.acquire(origin) {
		http.Error(w, "too many concurrent activities from this origin", http.StatusTooManyRequests)
		return
	}
	defer s.inboxLimiter.release(origin)

	select {
	case s.inboxSem <- struct{}{}:
		defer func() { <-s.inboxSem }()
	default:
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.InboxMaxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.cfg.InboxMaxBodyBytes {
		slog.Warn("inbox request body too large", "origin", origin,
			"size", humanize.Bytes(uint64(len(body))), "limit", humanize.Bytes(uint64(s.cfg.InboxMaxBodyBytes)))
		http.Error(w, "request body too large", http.StatusBadRequest)
		return
	}

	if !gjson.ValidBytes(body) {
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}
	probeType := gjson.GetBytes(body, "type").String()

	if objectTypes[probeType] {
		s.handlePortableObjectPost(w, r, body)
		return
	}

	auth, err := s.verifyInboxSignature(r, body)
	isPulled := false // never true for an inbound POST: pulled fetches don't arrive here.
	var transportAuth *handler.TransportAuth
	if err == nil {
		transportAuth = auth
	} else {
		slog.Debug("inbox request carries no valid HTTP signature", "error", err, "origin", origin)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	desc, err := s.dispatcher.HandleActivity(ctx, json.RawMessage(body), transportAuth, isPulled)
	if err != nil {
		var herr *handler.HandlerError
		if errors.As(err, &herr) && herr.Kind == handler.KindAuth {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(errorStatus(err))
		return
	}
	if desc == nil {
		// Unrecognized or intentionally-ignored activity: still acknowledged.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// verifyInboxSignature resolves the keyId claimed by an inbound request's
// Signature header to an actor's RSA public key and verifies the
// draft-cavage signature over it, returning the actor id that controls the
// key (spec.md §4.3/§4.8).
func (s *Server) verifyInboxSignature(r *http.Request, body []byte) (*handler.TransportAuth, error) {
	if r.Header.Get("Signature") == "" {
		return nil, errors.New("no Signature header")
	}
	if digest := r.Header.Get("Digest"); digest != "" {
		if err := crypto.VerifyContentDigestHeader(digest, body); err != nil {
			return nil, err
		}
	}

	keyID, err := httpsig.KeyID(r)
	if err != nil {
		return nil, err
	}
	actorID := handler.ActorIDFromKeyID(keyID)

	actor, ok := s.store.GetActor(actorID)
	if !ok || actor.PublicKeyPEM == "" {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		fetched, ferr := s.fetcher.FetchActor(ctx, actorID)
		if ferr != nil || fetched.PublicKey == nil {
			return nil, errors.New("could not resolve signing actor's public key")
		}
		actor = store.ActorRecord{
			ID: fetched.ID, Username: fetched.PreferredUsername,
			Inbox: fetched.Inbox, PublicKeyPEM: fetched.PublicKey.PublicKeyPem,
			PublicKeyID: fetched.PublicKey.ID,
		}
		if fetched.Endpoints != nil {
			actor.SharedInbox = fetched.Endpoints.SharedInbox
		}
		_ = s.store.UpsertActor(actor)
	}

	pub, err := crypto.DecodePEMPublicKey(actor.PublicKeyPEM)
	if err != nil {
		return nil, err
	}
	if _, err := httpsig.VerifyRSA(r, pub); err != nil {
		return nil, err
	}
	return &handler.TransportAuth{ActorID: actor.ID}, nil
}

// handlePortableObjectPost implements spec.md §8 scenario 2: a standalone
// Note/Article/Question posted directly (not wrapped in a Create) to the
// inbox, authenticated entirely by its own Data Integrity proof rather
// than a transport signature, and indexed under its canonical ap:// id.
func (s *Server) handlePortableObjectPost(w http.ResponseWriter, r *http.Request, body []byte) {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}
	id, _ := obj["id"].(string)
	attributedTo, _ := obj["attributedTo"].(string)
	objType, _ := obj["type"].(string)
	if id == "" || attributedTo == "" {
		http.Error(w, "object missing id or attributedTo", http.StatusUnprocessableEntity)
		return
	}

	canonicalID, err := apurl.Parse(id)
	if err != nil {
		http.Error(w, "non-portable object ids must be wrapped in a Create activity", http.StatusUnprocessableEntity)
		return
	}

	proof, unsigned, err := jsonsig.Split(obj)
	if err != nil {
		http.Error(w, "portable object carries no proof", http.StatusUnprocessableEntity)
		return
	}
	methodDID, err := did.Parse(proof.VerificationMethod)
	if err != nil {
		http.Error(w, "invalid verificationMethod DID", http.StatusUnprocessableEntity)
		return
	}
	methodKey, ok := methodDID.AsKey()
	if !ok || methodKey.String() != canonicalID.Authority.String() {
		http.Error(w, "proof verificationMethod does not own the object's authority", http.StatusForbidden)
		return
	}
	pub, err := methodKey.Ed25519PublicKey()
	if err != nil {
		http.Error(w, "verificationMethod is not an Ed25519 did:key", http.StatusUnprocessableEntity)
		return
	}

	switch proof.Type {
	case jsonsig.EddsaJcsSignature:
		err = jsonsig.VerifyEddsaJcsSignature(unsigned, proof, pub)
	case jsonsig.Blake2Ed25519Signature:
		err = jsonsig.VerifyBlake2Ed25519Signature(unsigned, proof, pub)
	default:
		err = errors.New("unsupported proof suite for a portable object")
	}
	if err != nil {
		http.Error(w, "json signature verification failed", http.StatusUnprocessableEntity)
		return
	}

	if err := s.store.UpsertObject(store.ObjectRecord{
		ID:           canonicalID.String(),
		ObjectType:   objType,
		AttributedTo: attributedTo,
		ContentJSON:  string(body),
	}); err != nil {
		http.Error(w, "failed to persist object", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
