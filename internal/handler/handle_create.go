package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleCreate implements spec.md §4.7's Create row: persist the embedded
// object, enforcing that its attributedTo matches the activity's actor.
func (d *Dispatcher) handleCreate(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	var obj activitypub.Object
	if err := json.Unmarshal(a.Object, &obj); err != nil {
		return nil, validationErr("create object: %w", err)
	}
	if obj.ID == "" || obj.Type == "" {
		return nil, validationErr("create object missing id or type")
	}
	if obj.AttributedTo != a.Actor {
		return nil, authErr("object attributedTo %q does not match activity actor %q", obj.AttributedTo, a.Actor)
	}

	switch obj.Type {
	case activitypub.Note, activitypub.Article, activitypub.Question:
		contentJSON, err := json.Marshal(obj)
		if err != nil {
			return nil, fatalErr("marshal object: %w", err)
		}
		if err := d.Store.UpsertObject(store.ObjectRecord{
			ID:           obj.ID,
			ObjectType:   obj.Type,
			AttributedTo: obj.AttributedTo,
			InReplyTo:    obj.InReplyTo,
			ContentJSON:  string(contentJSON),
		}); err != nil {
			return nil, retryableErr("persist object: %w", err)
		}
		if obj.InReplyTo != "" {
			if parent, ok := d.Store.GetObject(obj.InReplyTo); ok && !parent.Deleted {
				payload, _ := json.Marshal(map[string]string{"reply_id": obj.ID, "author": obj.AttributedTo})
				_ = d.Store.CreateNotification(newULID(), parent.AttributedTo, store.NotificationReply, string(payload))
			} else if obj.Context2 != "" {
				// Parent is unresolvable locally: the reply arrived before
				// (or without) the rest of the thread. Backfill what we can
				// from the conversation collection instead of leaving a gap.
				d.syncConversation(ctx, obj.Context2)
			}
		}
		for _, mention := range extractMentionedActors(obj.Tag) {
			payload, _ := json.Marshal(map[string]string{"post_id": obj.ID, "author": obj.AttributedTo})
			_ = d.Store.CreateNotification(newULID(), mention, store.NotificationMention, string(payload))
		}
		return &Descriptor{ObjectType: obj.Type, Target: obj.ID}, nil
	default:
		return nil, validationErr("create: unsupported object type %q", obj.Type)
	}
}

// extractMentionedActors pulls Mention-typed tag hrefs out of an object's
// tag array, the set of actors to notify per spec.md's mention handling.
func extractMentionedActors(tags []interface{}) []string {
	var out []string
	for _, t := range tags {
		m, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		if typ, _ := m["type"].(string); typ != "Mention" {
			continue
		}
		if href, ok := m["href"].(string); ok && href != "" {
			out = append(out, href)
		}
	}
	return out
}
