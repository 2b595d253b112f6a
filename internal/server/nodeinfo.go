package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klppl/mitra/internal/activitypub"
)

// handleNodeInfo serves the NodeInfo discovery document at
// /.well-known/nodeinfo, pointing at the versioned schema endpoint.
func (s *Server) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	doc := map[string]interface{}{
		"links": []map[string]string{
			{"rel": "http://nodeinfo.diaspora.software/ns/schema/2.0", "href": s.cfg.InstanceURL + "/nodeinfo/2.0"},
			{"rel": "http://nodeinfo.diaspora.software/ns/schema/2.1", "href": s.cfg.InstanceURL + "/nodeinfo/2.1"},
		},
	}
	cacheHeaders(w, s.cfg.APCacheTTL)
	jsonResponse(w, doc, http.StatusOK)
}

// handleNodeInfoSchema serves the NodeInfo 2.0/2.1 document itself per
// spec.md §6: protocols is always ["activitypub"] and openRegistrations is
// always false.
func (s *Server) handleNodeInfoSchema(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	if version != "2.0" && version != "2.1" {
		http.NotFound(w, r)
		return
	}
	info := activitypub.NodeInfo{
		Version: version,
		Software: activitypub.NodeInfoSoftware{
			Name:    softwareName,
			Version: softwareVersion,
		},
		Protocols:         []string{"activitypub"},
		Usage:             activitypub.NodeInfoUsage{Users: activitypub.NodeInfoUsers{Total: 1}},
		OpenRegistrations: false,
	}
	cacheHeaders(w, s.cfg.APCacheTTL)
	jsonResponse(w, info, http.StatusOK)
}
