package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/klppl/mitra/internal/activitypub"
)

// handleWebFinger implements spec.md §6's Webfinger wire contract:
// GET /.well-known/webfinger?resource=acct:<user>@<host> -> a JRD with a
// "self" link to the actor id. Reverse WebFinger (resource = actor URL) is
// accepted too.
func (s *Server) handleWebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		http.Error(w, "missing resource parameter", http.StatusBadRequest)
		return
	}

	username, ok := usernameFromResource(resource, s.cfg.InstanceURL)
	if !ok {
		http.Error(w, "unrecognized resource", http.StatusNotFound)
		return
	}

	a, ok := s.store.GetLocalActorByUsername(username)
	if !ok {
		http.NotFound(w, r)
		return
	}

	jrd := activitypub.WebFingerResponse{
		Subject: fmt.Sprintf("acct:%s@%s", a.Username, s.cfg.URL().Host),
		Aliases: []string{a.ID},
		Links: []activitypub.WebFingerLink{
			{Rel: "self", Type: activityJSONType, Href: a.ID},
			{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: a.ID},
		},
	}
	cacheHeaders(w, s.cfg.APCacheTTL)
	jsonResponse(w, jrd, http.StatusOK)
}

// usernameFromResource extracts a local username from a WebFinger
// "resource" parameter, accepting both "acct:user@host" and a bare local
// actor URL (reverse WebFinger).
func usernameFromResource(resource, instanceURL string) (string, bool) {
	if strings.HasPrefix(resource, "acct:") {
		rest := strings.TrimPrefix(resource, "acct:")
		user, _, ok := strings.Cut(rest, "@")
		if !ok || user == "" {
			return "", false
		}
		return user, true
	}
	prefix := instanceURL + "/users/"
	if strings.HasPrefix(resource, prefix) {
		rest := strings.TrimPrefix(resource, prefix)
		if rest != "" && !strings.Contains(rest, "/") {
			return rest, true
		}
	}
	return "", false
}

// handleHostMeta serves the legacy XRD host-meta document some WebFinger
// clients still probe before falling back to the JRD endpoint.
func (s *Server) handleHostMeta(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xrd+xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
  <Link rel="lrdd" type="application/xrd+xml" template="%s/.well-known/webfinger?resource={uri}"/>
</XRD>`, s.cfg.InstanceURL)
}
