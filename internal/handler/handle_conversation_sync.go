package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/store"
)

// maxConversationBackfill bounds how many missing replies a single sync
// will persist, independent of the fetcher's own page/item caps, so one
// pathological thread cannot block the handler goroutine indefinitely.
const maxConversationBackfill = 200

// syncConversation implements the conversation-sync supplement to spec.md
// §4.7's Create row: when an incoming reply's parent is not in the local
// store (we never saw the intermediate posts), walk the thread's context
// collection and backfill whichever replies are still missing so the
// conversation can be displayed and threaded correctly. Best-effort: a
// failed fetch or store of any item is skipped without being reported. It
// runs synchronously inside handleCreate.
func (d *Dispatcher) syncConversation(ctx context.Context, conversationURL string) {
	if conversationURL == "" || d.Fetcher == nil {
		return
	}
	backfilled := 0
	err := d.Fetcher.FetchCollection(ctx, conversationURL, func(item json.RawMessage) error {
		if backfilled >= maxConversationBackfill {
			return nil
		}
		var probe struct {
			ID     string          `json:"id"`
			Type   string          `json:"type"`
			Object json.RawMessage `json:"object"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil
		}
		raw := item
		// A conversation collection may list bare objects or Create
		// activities wrapping them; unwrap the latter.
		if probe.Type == activitypub.Create && len(probe.Object) > 0 {
			raw = probe.Object
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil
			}
		}
		if probe.ID == "" {
			return nil
		}
		if _, found := d.Store.GetObject(probe.ID); found {
			return nil
		}
		var obj activitypub.Object
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		if obj.ID == "" || obj.AttributedTo == "" {
			return nil
		}
		if err := d.Store.UpsertObject(store.ObjectRecord{
			ID:           obj.ID,
			ObjectType:   obj.Type,
			AttributedTo: obj.AttributedTo,
			InReplyTo:    obj.InReplyTo,
			ContentJSON:  string(raw),
		}); err != nil {
			return nil
		}
		backfilled++
		return nil
	})
	if err != nil {
		slog.Debug("conversation sync failed", "conversation", conversationURL, "error", err)
		return
	}
	if backfilled > 0 {
		slog.Info("conversation sync backfilled replies", "conversation", conversationURL, "count", backfilled)
	}
}
