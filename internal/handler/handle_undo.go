package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleUndo implements spec.md §4.7's Undo row: reverses a previously
// recorded Follow/Like/Dislike/EmojiReact/Announce. An Undo(Follow) is
// matched by the (source, target) relationship rather than the original
// Follow activity id, since many implementations omit it (spec.md scenario 5).
func (d *Dispatcher) handleUndo(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	var embedded struct {
		Type   string          `json:"type"`
		Actor  string          `json:"actor"`
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(a.Object, &embedded); err != nil {
		return nil, validationErr("undo object: %w", err)
	}

	switch embedded.Type {
	case activitypub.Follow:
		targetID, err := unwrapObjectID(embedded.Object)
		if err != nil {
			return nil, validationErr("undo(follow) object: %w", err)
		}
		fr, ok := d.Store.GetFollowRequestByPair(a.Actor, targetID)
		if !ok {
			// Already gone: idempotent no-op.
			return &Descriptor{ObjectType: activitypub.Follow, Target: targetID}, nil
		}
		if fr.Source != a.Actor {
			return nil, authErr("undo actor %q does not own follow %q", a.Actor, fr.ActivityID)
		}
		if err := d.Store.SetFollowStatus(fr.ActivityID, store.FollowUndone); err != nil {
			return nil, retryableErr("undo follow: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Follow, Target: targetID}, nil

	case activitypub.Like, activitypub.Dislike, activitypub.EmojiReact:
		activityID, err := unwrapObjectID(embedded.Object)
		if err != nil {
			return nil, validationErr("undo(reaction) object: %w", err)
		}
		r, ok := d.Store.GetReactionByActivity(activityID)
		if ok && r.Author != a.Actor {
			return nil, authErr("undo actor %q does not own reaction %q", a.Actor, activityID)
		}
		if err := d.Store.DeleteReaction(activityID); err != nil {
			return nil, retryableErr("undo reaction: %w", err)
		}
		return &Descriptor{ObjectType: embedded.Type, Target: activityID}, nil

	case activitypub.Announce:
		activityID, err := unwrapObjectID(embedded.Object)
		if err != nil {
			return nil, validationErr("undo(announce) object: %w", err)
		}
		r, ok := d.Store.GetRepostByActivity(activityID)
		if ok && r.Announcer != a.Actor {
			return nil, authErr("undo actor %q does not own repost %q", a.Actor, activityID)
		}
		if err := d.Store.DeleteRepost(activityID); err != nil {
			return nil, retryableErr("undo announce: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Announce, Target: activityID}, nil

	default:
		return nil, validationErr("undo: unsupported embedded type %q", embedded.Type)
	}
}
