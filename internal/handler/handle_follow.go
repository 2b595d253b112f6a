package handler

import (
	"context"
	"encoding/json"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/store"
)

// handleFollow implements spec.md §4.7's Follow row: on an incoming follow
// request targeting a local actor, create/update a FollowRequest. If the
// target auto-approves, it transitions straight to Accepted and an
// Accept(Follow) is enqueued for delivery back to the requester; otherwise
// it stays Pending behind a "follow request" notification.
func (d *Dispatcher) handleFollow(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	targetID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("follow object: %w", err)
	}
	target, ok := d.Store.GetActor(targetID)
	if !ok || !target.IsLocal {
		return nil, validationErr("follow target %q is not a local actor", targetID)
	}

	status := store.FollowPending
	if d.AutoApproveFollows {
		status = store.FollowAccepted
	}
	if err := d.Store.CreateOrUpdateFollowRequest(a.ID, a.Actor, targetID, status); err != nil {
		return nil, retryableErr("persist follow request: %w", err)
	}

	if !d.AutoApproveFollows {
		payload, _ := json.Marshal(map[string]string{"follow_id": a.ID, "follower": a.Actor})
		if err := d.Store.CreateNotification(newULID(), targetID, store.NotificationFollowRequest, string(payload)); err != nil {
			return nil, retryableErr("create follow notification: %w", err)
		}
		return &Descriptor{ObjectType: activitypub.Follow, Target: targetID}, nil
	}

	if d.Deliverer != nil {
		accept := map[string]interface{}{
			"@context": activitypub.DefaultContext,
			"id":       authority.LocalActivityID(d.InstanceURL, activitypub.Accept, newULID()),
			"type":     activitypub.Accept,
			"actor":    targetID,
			"object":   a.ID,
			"to":       []string{a.Actor},
		}
		if err := d.Deliverer.Enqueue(ctx, a.Actor, accept, targetID); err != nil {
			return nil, retryableErr("enqueue accept(follow): %w", err)
		}
	}

	return &Descriptor{ObjectType: activitypub.Follow, Target: targetID}, nil
}

// handleAccept implements the Accept row: either a Follow acceptance or,
// when result carries an Agreement, a FEP-0837 Accept(Offer).
func (d *Dispatcher) handleAccept(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	if len(a.Result) > 0 {
		return d.handleAcceptOffer(ctx, a)
	}

	followID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("accept object: %w", err)
	}
	fr, ok := d.Store.GetFollowRequest(followID)
	if !ok {
		return nil, conflictErr("no follow request %q to accept", followID)
	}
	if fr.Target != a.Actor {
		return nil, authErr("accept actor %q does not own follow target %q", a.Actor, fr.Target)
	}
	if err := d.Store.SetFollowStatus(fr.ActivityID, store.FollowAccepted); err != nil {
		return nil, retryableErr("accept follow: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"accepted_by": a.Actor})
	_ = d.Store.CreateNotification(newULID(), fr.Source, store.NotificationFollowAccept, string(payload))

	return &Descriptor{ObjectType: activitypub.Accept, Target: fr.Source}, nil
}

// handleReject implements the Reject row: transition the follow to
// Undone and notify the requester it was turned down.
func (d *Dispatcher) handleReject(ctx context.Context, a activitypub.IncomingActivity) (*Descriptor, error) {
	followID, err := unwrapObjectID(a.Object)
	if err != nil {
		return nil, validationErr("reject object: %w", err)
	}
	fr, ok := d.Store.GetFollowRequest(followID)
	if !ok {
		return nil, conflictErr("no follow request %q to reject", followID)
	}
	if fr.Target != a.Actor {
		return nil, authErr("reject actor %q does not own follow target %q", a.Actor, fr.Target)
	}
	if err := d.Store.SetFollowStatus(fr.ActivityID, store.FollowUndone); err != nil {
		return nil, retryableErr("reject follow: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"rejected_by": a.Actor})
	_ = d.Store.CreateNotification(newULID(), fr.Source, store.NotificationFollowReject, string(payload))

	return &Descriptor{ObjectType: activitypub.Reject, Target: fr.Source}, nil
}
