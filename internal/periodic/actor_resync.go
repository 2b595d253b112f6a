// Package periodic implements the background ticker-driven workers of
// spec.md §2's "Job queue / periodic workers" component: tasks that run on
// a fixed interval rather than in response to an inbound or outbound
// activity.
//
// Grounded on internal/ap/resync.go's AccountResyncer: a ticker loop with
// an optional manual-trigger channel, cooperative shutdown via ctx, and a
// best-effort per-item loop that logs and continues past individual
// failures rather than aborting the whole sweep.
package periodic

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/store"
)

// ActorResyncStore is the subset of *store.Store the resyncer needs.
type ActorResyncStore interface {
	ListRemoteActorIDs() ([]string, error)
	GetActor(id string) (store.ActorRecord, bool)
	UpsertActor(store.ActorRecord) error
}

// ActorResyncer periodically re-fetches every known remote actor so that
// profile and key-rotation changes are picked up even absent an inbound
// Update(Person) (spec.md §4.7's Update row covers the push path; this
// covers the pull path for actors that never push one).
type ActorResyncer struct {
	Store   ActorResyncStore
	Fetcher *fetcher.Fetcher

	// Interval between automatic resyncs. Defaults to 24h if zero.
	Interval time.Duration
	// TriggerCh, if non-nil, causes an immediate resync when sent to.
	TriggerCh <-chan struct{}
}

// Start begins the periodic resync loop. Blocks until ctx is cancelled.
// Does NOT run an initial sync on startup — the first run is after one
// Interval (or when triggered manually via TriggerCh), matching the
// teacher's resyncer.
func (r *ActorResyncer) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	slog.Info("actor resyncer started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("actor resyncer stopped")
			return
		case <-ticker.C:
			r.resyncAll(ctx)
		case <-r.TriggerCh:
			slog.Info("actor resync triggered manually")
			r.resyncAll(ctx)
		}
	}
}

func (r *ActorResyncer) resyncAll(ctx context.Context) {
	ids, err := r.Store.ListRemoteActorIDs()
	if err != nil {
		slog.Warn("resync: failed to list remote actor ids", "error", err)
		return
	}
	if len(ids) == 0 {
		slog.Debug("resync: no remote actors to sync")
		return
	}

	slog.Info("resync: starting actor refresh", "count", len(ids))
	ok, failed := 0, 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			slog.Info("resync: interrupted", "ok", ok, "failed", failed)
			return
		default:
		}

		if err := r.resyncOne(ctx, id); err != nil {
			slog.Debug("resync: actor fetch failed", "actor", id, "error", err)
			failed++
		} else {
			ok++
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(300 * time.Millisecond):
		}
	}
	slog.Info("resync: complete", "ok", ok, "failed", failed, "total", ok+failed)
}

func (r *ActorResyncer) resyncOne(ctx context.Context, actorID string) error {
	r.Fetcher.InvalidateCache(actorID)
	actor, err := r.Fetcher.FetchActor(ctx, actorID)
	if err != nil {
		return err
	}

	profileJSON, err := json.Marshal(actor)
	if err != nil {
		return err
	}
	existing, _ := r.Store.GetActor(actorID)
	pubKeyPEM, pubKeyID := existing.PublicKeyPEM, existing.PublicKeyID
	if actor.PublicKey != nil {
		pubKeyPEM, pubKeyID = actor.PublicKey.PublicKeyPem, actor.PublicKey.ID
	}
	sharedInbox := ""
	if actor.Endpoints != nil {
		sharedInbox = actor.Endpoints.SharedInbox
	}
	alsoKnownAs, _ := json.Marshal(actor.Also)

	return r.Store.UpsertActor(store.ActorRecord{
		ID:           actor.ID,
		IsLocal:      existing.IsLocal,
		Username:     actor.PreferredUsername,
		Inbox:        actor.Inbox,
		SharedInbox:  sharedInbox,
		FollowersURL: actor.Followers,
		PublicKeyPEM: pubKeyPEM,
		PublicKeyID:  pubKeyID,
		AlsoKnownAs:  string(alsoKnownAs),
		MovedTo:      actor.MovedTo,
		ProfileJSON:  string(profileJSON),
	})
}
