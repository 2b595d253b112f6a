package handler

import (
	"context"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleDelete implements spec.md §4.7's Delete row: tombstone a local
// projection of the targeted object, idempotent on a repeated Delete.
func (d *Dispatcher) handleDelete(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	objectID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("delete object: %w", err)
	}

	existing, found := d.Store.GetObject(objectID)
	if found {
		if !CheckEmbeddedOwnership(a.Actor, existing.AttributedTo) {
			return nil, authErr("delete actor %q does not own object %q", a.Actor, objectID)
		}
		if existing.Deleted {
			return &Descriptor{ObjectType: activitypub.Tombstone, Target: objectID}, nil
		}
		if err := d.Store.TombstoneObject(objectID); err != nil {
			return nil, retryableErr("tombstone object: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Tombstone, Target: objectID}, nil
	}

	// We have no record of the object; only accept the delete when the
	// actor and object share an authority, so a stranger cannot tombstone
	// an id we never fetched.
	if !sameAuthority(a.Actor, objectID) {
		return nil, authErr("delete actor %q does not own unknown object %q", a.Actor, objectID)
	}
	if err := d.Store.UpsertObject(store.ObjectRecord{
		ID:           objectID,
		ObjectType:   activitypub.Tombstone,
		AttributedTo: a.Actor,
		Deleted:      true,
	}); err != nil {
		return nil, retryableErr("persist tombstone: %w", err)
	}
	return &Descriptor{ObjectType: activitypub.Tombstone, Target: objectID}, nil
}
