package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleReaction implements the Like/Dislike/EmojiReact row: record the
// reaction, ignoring a duplicate on either the activity id or the
// (author, post, content) triple per spec.md §7.
func (d *Dispatcher) handleReaction(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	postID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("reaction object: %w", err)
	}
	post, ok := d.Store.GetObject(postID)
	if !ok || post.Deleted {
		return nil, validationErr("reaction target %q not found", postID)
	}

	emojiName := ""
	if a.Type == activitypub.EmojiReact {
		emojiName = a.Content
	}

	created, err := d.Store.CreateReaction(store.Reaction{
		ActivityID: a.ID,
		Author:     a.Actor,
		PostID:     postID,
		Content:    a.Type,
		EmojiName:  emojiName,
	})
	if err != nil {
		return nil, retryableErr("persist reaction: %w", err)
	}
	if !created {
		return &Descriptor{ObjectType: a.Type, Target: postID}, nil
	}

	payload, _ := json.Marshal(map[string]string{"post_id": postID, "author": a.Actor, "type": a.Type})
	_ = d.Store.CreateNotification(newULID(), post.AttributedTo, store.NotificationReaction, string(payload))

	return &Descriptor{ObjectType: a.Type, Target: postID}, nil
}

// handleAnnounce implements the Announce row: a boost of a post, tracked so
// an Undo(Announce) or Announce(Delete) (FEP-1b12) can remove only this
// announcer's repost without touching others.
func (d *Dispatcher) handleAnnounce(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	objectID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("announce object: %w", err)
	}

	// FEP-1b12: an Announce whose embedded object is itself a Delete
	// removes only this announcer's repost; the boosted post is left as is.
	var maybeDelete struct {
		Type   string          `json:"type"`
		Object json.RawMessage `json:"object"`
	}
	if json.Unmarshal(a.Object, &maybeDelete) == nil && maybeDelete.Type == activitypub.Delete {
		deletedID, err := unwrapObjectID(maybeDelete.Object)
		if err != nil {
			return nil, validationErr("announce(delete) object: %w", err)
		}
		if err := d.Store.DeleteRepostsByObjectAndAnnouncer(deletedID, a.Actor); err != nil {
			return nil, retryableErr("remove repost: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Delete, Target: deletedID}, nil
	}

	post, ok := d.Store.GetObject(objectID)
	if !ok {
		fetched, ferr := d.Fetcher.FetchObject(ctx, objectID)
		if ferr != nil {
			return nil, retryableErr("fetch announced object %q: %w", objectID, ferr)
		}
		objType, _ := fetched["type"].(string)
		attributedTo, _ := fetched["attributedTo"].(string)
		body, _ := json.Marshal(fetched)
		post = store.ObjectRecord{ID: objectID, ObjectType: objType, AttributedTo: attributedTo, ContentJSON: string(body)}
		if err := d.Store.UpsertObject(post); err != nil {
			return nil, retryableErr("persist fetched announced object: %w", err)
		}
	}
	if post.Deleted {
		return nil, validationErr("announce target %q not found", objectID)
	}

	created, err := d.Store.CreateRepost(store.Repost{ActivityID: a.ID, Announcer: a.Actor, ObjectID: objectID})
	if err != nil {
		return nil, retryableErr("persist repost: %w", err)
	}
	if created {
		payload, _ := json.Marshal(map[string]string{"post_id": objectID, "announcer": a.Actor})
		_ = d.Store.CreateNotification(newULID(), post.AttributedTo, store.NotificationReaction, string(payload))
	}
	return &Descriptor{ObjectType: activitypub.Announce, Target: objectID}, nil
}
