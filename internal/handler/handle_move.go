package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/store"
)

// handleMove implements spec.md §4.7's Move row: the new actor must list
// the old actor in its alsoKnownAs before the move is honored, guarding
// against an attacker moving someone else's followers onto a hostile
// account. On success, records movedTo, notifies followers, and migrates
// any local follower's relationship onto the new actor by enqueuing
// Undo(Follow old) and Follow(new) on that follower's behalf.
func (d *Dispatcher) handleMove(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	newActorID, err := unwrapObjectID(a.Target)
	if err != nil {
		return nil, validationErr("move target: %w", err)
	}

	newActor, err := d.Fetcher.FetchActor(ctx, newActorID)
	if err != nil {
		return nil, retryableErr("fetch move target: %w", err)
	}
	if !containsString(newActor.Also, a.Actor) {
		return nil, authErr("move target %q does not list %q in alsoKnownAs", newActorID, a.Actor)
	}

	if err := d.Store.SetMovedTo(a.Actor, newActorID); err != nil {
		return nil, retryableErr("record move: %w", err)
	}

	followers, err := d.Store.Followers(a.Actor)
	if err != nil {
		return nil, retryableErr("list followers for move notification: %w", err)
	}
	for _, follower := range followers {
		payload, _ := json.Marshal(map[string]string{"from": a.Actor, "to": newActorID})
		_ = d.Store.CreateNotification(newULID(), follower, store.NotificationMove, string(payload))

		followerActor, ok := d.Store.GetActor(follower)
		if !ok || !followerActor.IsLocal || d.Deliverer == nil {
			continue
		}

		unfollowID := authority.LocalActivityID(d.InstanceURL, activitypub.Undo, newULID())
		undo := map[string]interface{}{
			"@context": activitypub.DefaultContext,
			"id":       unfollowID,
			"type":     activitypub.Undo,
			"actor":    follower,
			"object": map[string]interface{}{
				"type":   activitypub.Follow,
				"actor":  follower,
				"object": a.Actor,
			},
		}
		if err := d.Deliverer.Enqueue(ctx, a.Actor, undo, follower); err != nil {
			continue
		}
		if err := d.Store.SetFollowStatus(findMigratedFollowActivityID(d.Store, follower, a.Actor), store.FollowUndone); err != nil {
			continue
		}

		followID := authority.LocalActivityID(d.InstanceURL, activitypub.Follow, newULID())
		follow := map[string]interface{}{
			"@context": activitypub.DefaultContext,
			"id":       followID,
			"type":     activitypub.Follow,
			"actor":    follower,
			"object":   newActorID,
		}
		if err := d.Deliverer.Enqueue(ctx, newActorID, follow, follower); err != nil {
			continue
		}
		_ = d.Store.CreateOrUpdateFollowRequest(followID, follower, newActorID, store.FollowPending)
	}

	return &Descriptor{ObjectType: activitypub.Move, Target: newActorID}, nil
}

func findMigratedFollowActivityID(st *store.Store, follower, target string) string {
	fr, ok := st.GetFollowRequestByPair(follower, target)
	if !ok {
		return ""
	}
	return fr.ActivityID
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
