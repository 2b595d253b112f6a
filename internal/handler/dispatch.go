package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/agreements"
	"github.com/klppl/mitra/internal/authority"
	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/store"
)

// Deliverer enqueues an outbound activity for delivery, decoupling the
// handler dispatch table from the concrete job-queue implementation.
type Deliverer interface {
	Enqueue(ctx context.Context, recipientActorID string, activity map[string]interface{}, senderActorID string) error
}

// Dispatcher implements handle_activity from spec.md §4.7: preconditions,
// the per-verb table, and the supplemented notification side effects from
// SPEC_FULL.md. Filter rules are not consulted by the dispatcher.
type Dispatcher struct {
	Store       *store.Store
	Fetcher     *fetcher.Fetcher
	Deliverer   Deliverer
	Agreements  *agreements.Reconciler
	InstanceURL string

	// AutoApproveFollows mirrors config.Config.AutoApproveFollows: when
	// true, handleFollow immediately transitions a Pending follow request
	// to Accepted and enqueues the Accept(Follow) response instead of
	// waiting for manual approval.
	AutoApproveFollows bool
}

// recognizedTypes is the ingest vocabulary from spec.md §6.
var recognizedTypes = map[string]bool{
	"Accept": true, "Add": true, "Announce": true, "Create": true, "Delete": true,
	"Dislike": true, "EmojiReact": true, "Follow": true, "Like": true, "Listen": true,
	"Move": true, "Offer": true, "Reject": true, "Remove": true, "Undo": true, "Update": true,
}

// HandleActivity is the single entry point: handle_activity(activity_json,
// is_authenticated, is_pulled). auth is nil when the request carried no
// verified HTTP signature.
func (d *Dispatcher) HandleActivity(ctx context.Context, raw json.RawMessage, auth *TransportAuth, isPulled bool) (*Descriptor, error) {
	var activity activitypub.IncomingActivity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, validationErr("unmarshal activity: %w", err)
	}

	if !recognizedTypes[activity.Type] {
		slog.Warn("unhandled activity type", "type", activity.Type)
		return nil, nil
	}

	if activity.Actor == "" {
		return nil, validationErr("activity has no actor")
	}

	// Precondition 2: ownership. When authenticated via transport, the
	// signing key's actor must equal the activity's actor. When not
	// authenticated, the activity must either carry a verifiable JSON
	// signature (checked per-handler against the embedded object, since only
	// the handler knows which field holds the proof) or have been pulled by
	// us rather than pushed.
	if auth != nil {
		if !CheckTransportOwnership(*auth, activity.Actor) {
			return nil, authErr("transport auth actor %q does not match activity actor %q", auth.ActorID, activity.Actor)
		}
	} else if !isPulled {
		// No transport auth and not a fetch we initiated: only activities
		// whose object carries its own verifiable JSON signature may proceed;
		// each handler that accepts embedded objects performs that check
		// itself since only it parses the object shape.
		slog.Debug("activity has neither transport auth nor pull provenance", "id", activity.ID, "type", activity.Type)
	}

	var (
		desc *Descriptor
		err  error
	)
	switch activity.Type {
	case "Follow":
		desc, err = d.handleFollow(ctx, activity)
	case "Accept":
		desc, err = d.handleAccept(ctx, activity)
	case "Reject":
		desc, err = d.handleReject(ctx, activity)
	case "Announce":
		desc, err = d.handleAnnounce(ctx, activity)
	case "Create":
		desc, err = d.handleCreate(ctx, activity)
	case "Delete":
		desc, err = d.handleDelete(ctx, activity)
	case "Like", "Dislike", "EmojiReact":
		desc, err = d.handleReaction(ctx, activity)
	case "Undo":
		desc, err = d.handleUndo(ctx, activity)
	case "Update":
		desc, err = d.handleUpdate(ctx, activity, auth != nil)
	case "Move":
		desc, err = d.handleMove(ctx, activity)
	case "Add":
		desc, err = d.handleAdd(ctx, activity)
	case "Remove":
		desc, err = d.handleRemove(ctx, activity)
	case "Offer":
		desc, err = d.handleOffer(ctx, activity)
	case "Listen":
		return nil, nil
	default:
		slog.Warn("unhandled activity type", "type", activity.Type)
		return nil, nil
	}

	if err != nil {
		slog.Debug("activity handler error", "id", activity.ID, "type", activity.Type, "error", err)
		return nil, err
	}
	return desc, nil
}

func newULID() string {
	return uuid.New().String()
}

func localActivityID(instanceURL, activityType string) string {
	return authority.LocalActivityID(instanceURL, activityType, newULID())
}

func wrapActivityMap(instanceURL string, v map[string]interface{}) map[string]interface{} {
	if _, ok := v["@context"]; !ok {
		v["@context"] = activitypub.DefaultContext
	}
	return v
}

func unwrapObjectID(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	var embedded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &embedded); err != nil || embedded.ID == "" {
		return "", fmt.Errorf("object field is neither a string id nor an embedded object with an id")
	}
	return embedded.ID, nil
}
