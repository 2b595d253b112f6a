// Package server implements the HTTP surface of spec.md §6: actor
// documents, inbox/outbox, collections, Webfinger, and NodeInfo. Inbound
// activities are authenticated and handed to internal/handler's dispatch
// table; everything else is read-only projection of internal/store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/klppl/mitra/internal/config"
	"github.com/klppl/mitra/internal/crypto"
	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/handler"
	"github.com/klppl/mitra/internal/store"
)

const (
	activityJSONType = `application/activity+json`
	softwareName      = "mitra"
	softwareVersion    = "1.0.0"
)

const (
	// maxConcurrentActivities is the total inbox concurrency cap (spec.md
	// §5's "bounded concurrency ... global cap").
	maxConcurrentActivities = 50

	// maxPerOriginConcurrency is the per-origin cap, so one noisy origin
	// cannot consume the whole global semaphore.
	maxPerOriginConcurrency = 5
)

// inboxLimiter is a per-origin concurrent-activity counter.
type inboxLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newInboxLimiter() *inboxLimiter {
	return &inboxLimiter{counts: make(map[string]int)}
}

func (l *inboxLimiter) acquire(origin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[origin] >= maxPerOriginConcurrency {
		return false
	}
	l.counts[origin]++
	return true
}

func (l *inboxLimiter) release(origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[origin] > 0 {
		l.counts[origin]--
	}
	if l.counts[origin] == 0 {
		delete(l.counts, origin)
	}
}

// Server is the main HTTP server.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	fetcher    *fetcher.Fetcher
	dispatcher *handler.Dispatcher
	rsaKey     *crypto.RSAKeyPair
	router     *chi.Mux
	startedAt  time.Time

	inboxSem     chan struct{}
	inboxLimiter *inboxLimiter
}

// New creates a new Server.
func New(cfg *config.Config, st *store.Store, f *fetcher.Fetcher, d *handler.Dispatcher, rsaKey *crypto.RSAKeyPair) *Server {
	s := &Server{
		cfg:          cfg,
		store:        st,
		fetcher:      f,
		dispatcher:   d,
		rsaKey:       rsaKey,
		startedAt:    time.Now(),
		inboxSem:     make(chan struct{}, maxConcurrentActivities),
		inboxLimiter: newInboxLimiter(),
	}
	s.router = s.buildRouter()
	return s
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	addr := ":" + s.cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting HTTP server", "addr", addr, "instance", s.cfg.InstanceURL)

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
	}
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/api/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	r.Get("/.well-known/webfinger", s.handleWebFinger)
	r.Get("/.well-known/host-meta", s.handleHostMeta)
	r.Get("/.well-known/nodeinfo", s.handleNodeInfo)
	r.Get("/nodeinfo/{version}", s.handleNodeInfoSchema)

	r.Get("/users/{username}", s.handleActor)
	r.Get("/users/{username}/followers", s.handleFollowers)
	r.Get("/users/{username}/following", s.handleFollowing)
	r.Get("/users/{username}/outbox", s.handleOutbox)
	r.Get("/users/{username}/collections/featured", s.handleFeatured)
	r.Post("/users/{username}/inbox", s.handleInbox)

	r.Get("/objects/{id}", s.handleObject)

	r.Post("/inbox", s.handleInbox)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "%s — a federated server implementing ActivityPub, FEP-ef61 portable identities, and FEP-0837 value-exchange agreements.\nRunning on %s\n", softwareName, s.cfg.InstanceURL)
	})

	return r
}

// actorOrigin extracts the hostname of the AP actor from the raw activity
// body, falling back to the remote IP for per-origin rate limiting.
func actorOrigin(body []byte, remoteAddr string) string {
	var a struct {
		Actor string `json:"actor"`
	}
	if jsonUnmarshal(body, &a) == nil && a.Actor != "" {
		if u, err := url.Parse(a.Actor); err == nil && u.Host != "" {
			return u.Host
		}
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
