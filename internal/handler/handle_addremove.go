package handler

import (
	"context"
	"strings"
	"time"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// handleAdd implements spec.md §4.7's Add row: target = actor.featured pins
// an object; target = actor.subscribers completes the linked invoice and
// creates or extends the subscription.
func (d *Dispatcher) handleAdd(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	targetID, err := unwrapObjectID(a.Target)
	if err != nil {
		return nil, validationErr("add target: %w", err)
	}
	objectID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("add object: %w", err)
	}

	owner, ok := d.Store.GetActor(a.Actor)
	if !ok {
		return nil, retryableErr("unknown actor %q", a.Actor)
	}

	switch {
	case strings.HasSuffix(targetID, "/featured") || targetID == owner.ID+"/collections/featured":
		post, found := d.Store.GetObject(objectID)
		if !found || post.Deleted {
			return nil, validationErr("pin target %q not found", objectID)
		}
		if !CheckEmbeddedOwnership(a.Actor, post.AttributedTo) {
			return nil, authErr("actor %q cannot pin object %q it does not own", a.Actor, objectID)
		}
		if err := d.Store.PinObject(a.Actor, objectID); err != nil {
			return nil, retryableErr("pin object: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Add, Target: objectID}, nil

	case strings.HasSuffix(targetID, "/subscribers"):
		invoiceID := objectID
		invoice, found := d.Store.GetInvoice(invoiceID)
		if !found {
			return nil, validationErr("subscription invoice %q not found", invoiceID)
		}
		if invoice.Recipient != a.Actor {
			return nil, authErr("actor %q does not own invoice %q", a.Actor, invoiceID)
		}
		if invoice.Status == store.InvoicePaid {
			if err := d.Store.SetInvoiceStatus(invoiceID, store.InvoiceForwarded); err != nil {
				return nil, retryableErr("complete invoice: %w", err)
			}
			invoice.Status = store.InvoiceForwarded
		}
		if invoice.Status == store.InvoiceForwarded {
			if err := d.Store.SetInvoiceStatus(invoiceID, store.InvoiceCompleted); err != nil {
				return nil, retryableErr("complete invoice: %w", err)
			}
		}
		expiresAt := time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339)
		if err := d.Store.CreateSubscription(invoice.Sender, invoice.Recipient, invoice.ID, expiresAt); err != nil {
			return nil, retryableErr("create subscription: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Add, Target: invoiceID}, nil

	default:
		return nil, validationErr("add: unrecognized target %q", targetID)
	}
}

// handleRemove implements spec.md §4.7's Remove row: the inverse of Add.
func (d *Dispatcher) handleRemove(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	targetID, err := unwrapObjectID(a.Target)
	if err != nil {
		return nil, validationErr("remove target: %w", err)
	}
	objectID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("remove object: %w", err)
	}

	switch {
	case strings.HasSuffix(targetID, "/featured"):
		if err := d.Store.UnpinObject(a.Actor, objectID); err != nil {
			return nil, retryableErr("unpin object: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Remove, Target: objectID}, nil

	case strings.HasSuffix(targetID, "/subscribers"):
		if err := d.Store.RemoveSubscription(objectID, a.Actor); err != nil {
			return nil, retryableErr("remove subscription: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Remove, Target: objectID}, nil

	default:
		return nil, validationErr("remove: unrecognized target %q", targetID)
	}
}
