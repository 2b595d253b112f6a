package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/authority"
)

// collectionPageSize bounds how many items a single collection page
// returns, per spec.md §6 "page size bounded".
const collectionPageSize = 20

// handleActor serves a local actor document per spec.md §3/§6: id, inbox,
// outbox, followers/following, featured, and the RSA public key used to
// verify this actor's outbound HTTP Signatures.
func (s *Server) handleActor(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}

	doc := activitypub.Actor{
		Context:           activitypub.DefaultContext,
		ID:                a.ID,
		Type:              "Person",
		PreferredUsername: a.Username,
		Inbox:             a.ID + "/inbox",
		Outbox:            a.ID + "/outbox",
		Followers:         a.ID + "/followers",
		Following:         a.ID + "/following",
		Featured:          a.ID + "/collections/featured",
		Endpoints:         &activitypub.Endpoints{SharedInbox: s.cfg.InstanceURL + "/inbox"},
		PublicKey: &activitypub.PublicKey{
			ID:           a.PublicKeyID,
			Owner:        a.ID,
			PublicKeyPem: s.rsaKey.PublicPEM,
		},
	}
	if a.AlsoKnownAs != "" {
		doc.Also = []string{a.AlsoKnownAs}
	}
	if a.MovedTo != "" {
		doc.MovedTo = a.MovedTo
	}

	cacheHeaders(w, s.cfg.APCacheTTL)
	apResponse(w, doc, http.StatusOK)
}

// handleFollowers serves the followers OrderedCollection/CollectionPage
// for a local actor.
func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ids, err := s.store.Followers(a.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	serveCollection(w, r, a.ID+"/followers", ids)
}

// handleFollowing serves the following OrderedCollection/CollectionPage
// for a local actor.
func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ids, err := s.store.Following(a.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	serveCollection(w, r, a.ID+"/following", ids)
}

// handleFeatured serves a local actor's pinned-post collection (the target
// of Add/Remove{target: actor.featured} per spec.md §4.7).
func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ids, err := s.store.PinnedObjects(a.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	serveCollection(w, r, a.ID+"/collections/featured", ids)
}

// handleOutbox serves a local actor's outbox: the most recent objects they
// authored, each wrapped in a synthetic Create activity, per spec.md §6.
func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ids, err := s.store.ObjectsByAuthor(a.ID, collectionPageSize)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	outboxURL := a.ID + "/outbox"
	if !r.URL.Query().Has("page") {
		collection := activitypub.OrderedCollection{
			Context:    activitypub.DefaultContext,
			ID:         outboxURL,
			Type:       "OrderedCollection",
			TotalItems: len(ids),
			First:      outboxURL + "?page=true",
		}
		cacheHeaders(w, s.cfg.APCacheTTL)
		apResponse(w, collection, http.StatusOK)
		return
	}

	items := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		obj, ok := s.store.GetObject(id)
		if !ok {
			continue
		}
		var raw map[string]interface{}
		_ = json.Unmarshal([]byte(obj.ContentJSON), &raw)
		items = append(items, map[string]interface{}{
			"id":           authority.LocalActivityID(s.cfg.InstanceURL, "Create", id),
			"type":         "Create",
			"actor":        a.ID,
			"published":    raw["published"],
			"to":           raw["to"],
			"cc":           raw["cc"],
			"object":       raw,
		})
	}
	page := activitypub.OrderedCollectionPage{
		Context:      activitypub.DefaultContext,
		ID:           outboxURL + "?page=true",
		Type:         "OrderedCollectionPage",
		PartOf:       outboxURL,
		OrderedItems: items,
	}
	cacheHeaders(w, s.cfg.APCacheTTL)
	apResponse(w, page, http.StatusOK)
}

// handleObject serves a locally stored object by id, or 410 Gone for a
// tombstoned one (spec.md §3's Tombstone type).
func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.InstanceURL + "/objects/" + chi.URLParam(r, "id")
	obj, ok := s.store.GetObject(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if obj.Deleted {
		apResponse(w, map[string]string{"id": obj.ID, "type": "Tombstone"}, http.StatusGone)
		return
	}
	var raw map[string]interface{}
	_ = json.Unmarshal([]byte(obj.ContentJSON), &raw)
	cacheHeaders(w, s.cfg.APCacheTTL)
	apResponse(w, raw, http.StatusOK)
}

// serveCollection renders either the OrderedCollection summary (no ?page)
// or a single CollectionPage holding the first collectionPageSize items;
// items past that bound are not listed on any page. spec.md §6 only
// requires the page size be bounded.
func serveCollection(w http.ResponseWriter, r *http.Request, collectionURL string, ids []string) {
	if !r.URL.Query().Has("page") {
		collection := activitypub.OrderedCollection{
			Context:    activitypub.DefaultContext,
			ID:         collectionURL,
			Type:       "OrderedCollection",
			TotalItems: len(ids),
			First:      collectionURL + "?page=true",
		}
		apResponse(w, collection, http.StatusOK)
		return
	}
	if len(ids) > collectionPageSize {
		ids = ids[:collectionPageSize]
	}
	items := make([]interface{}, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	page := activitypub.OrderedCollectionPage{
		Context:      activitypub.DefaultContext,
		ID:           collectionURL + "?page=true",
		Type:         "OrderedCollectionPage",
		PartOf:       collectionURL,
		OrderedItems: items,
	}
	apResponse(w, page, http.StatusOK)
}
