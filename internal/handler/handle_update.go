package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleUpdate implements spec.md §4.7's Update row: for an actor object,
// refresh the cached profile; for a Note/Article/Question, refresh its
// stored content. Authenticated is required since an Update carries no
// separate proof of freshness beyond the transport signature.
func (d *Dispatcher) handleUpdate(ctx context.Context, a activitypub.IncomingActivity, authenticated bool) (*Descriptor, error) {
	if !authenticated {
		return nil, authErr("update requires a verified transport signature")
	}

	var probe struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(a.Object, &probe); err != nil {
		return nil, validationErr("update object: %w", err)
	}

	switch probe.Type {
	case activitypub.Person, activitypub.Service, activitypub.Application, activitypub.Group, activitypub.Organization:
		var actor activitypub.Actor
		if err := json.Unmarshal(a.Object, &actor); err != nil {
			return nil, validationErr("update actor: %w", err)
		}
		if actor.ID != a.Actor {
			return nil, authErr("update actor id %q does not match activity actor %q", actor.ID, a.Actor)
		}
		d.Fetcher.InvalidateCache(actor.ID)
		profileJSON, err := json.Marshal(actor)
		if err != nil {
			return nil, fatalErr("marshal actor: %w", err)
		}
		existing, _ := d.Store.GetActor(actor.ID)
		pubKeyPEM, pubKeyID := existing.PublicKeyPEM, existing.PublicKeyID
		if actor.PublicKey != nil {
			pubKeyPEM, pubKeyID = actor.PublicKey.PublicKeyPem, actor.PublicKey.ID
		}
		sharedInbox := ""
		if actor.Endpoints != nil {
			sharedInbox = actor.Endpoints.SharedInbox
		}
		if err := d.Store.UpsertActor(store.ActorRecord{
			ID:           actor.ID,
			IsLocal:      existing.IsLocal,
			Username:     actor.PreferredUsername,
			Inbox:        actor.Inbox,
			SharedInbox:  sharedInbox,
			FollowersURL: actor.Followers,
			PublicKeyPEM: pubKeyPEM,
			PublicKeyID:  pubKeyID,
			AlsoKnownAs:  joinStrings(actor.Also),
			MovedTo:      actor.MovedTo,
			ProfileJSON:  string(profileJSON),
		}); err != nil {
			return nil, retryableErr("persist updated actor: %w", err)
		}
		return &Descriptor{ObjectType: probe.Type, Target: actor.ID}, nil

	case activitypub.Note, activitypub.Article, activitypub.Question:
		var obj activitypub.Object
		if err := json.Unmarshal(a.Object, &obj); err != nil {
			return nil, validationErr("update object: %w", err)
		}
		if !CheckEmbeddedOwnership(a.Actor, obj.AttributedTo) {
			return nil, authErr("update object attributedTo %q does not match actor %q", obj.AttributedTo, a.Actor)
		}
		existing, found := d.Store.GetObject(obj.ID)
		if !found {
			return nil, conflictErr("update target %q not found", obj.ID)
		}
		contentJSON, err := json.Marshal(obj)
		if err != nil {
			return nil, fatalErr("marshal object: %w", err)
		}
		if err := d.Store.UpsertObject(store.ObjectRecord{
			ID:           obj.ID,
			ObjectType:   obj.Type,
			AttributedTo: obj.AttributedTo,
			InReplyTo:    existing.InReplyTo,
			ContentJSON:  string(contentJSON),
		}); err != nil {
			return nil, retryableErr("persist updated object: %w", err)
		}
		return &Descriptor{ObjectType: obj.Type, Target: obj.ID}, nil

	default:
		return nil, validationErr("update: unsupported object type %q", probe.Type)
	}
}

func joinStrings(ss []string) string {
	out, _ := json.Marshal(ss)
	return string(out)
}
