package handler

import (
	"context"
	"testing"

	"github.com/klppl/mitra/internal/store"
)

func TestHandleAddPinsFeaturedObject(t *testing.T) {
	d, _ := newTestDispatcher(t)
	actor := "https://mitra.example/users/alice"
	seedLocalActor(t, d, actor)
	if err := d.Store.UpsertObject(store.ObjectRecord{ID: "https://mitra.example/objects/1", ObjectType: "Note", AttributedTo: actor}); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	add := mustRaw(t, map[string]interface{}{
		"id": "https://mitra.example/activities/add-1", "type": "Add", "actor": actor,
		"target": actor + "/collections/featured",
		"object": "https://mitra.example/objects/1",
	})
	desc, err := d.HandleActivity(context.Background(), add, nil, true)
	if err != nil {
		t.Fatalf("HandleActivity(Add): %v", err)
	}
	if desc == nil || desc.Target != "https://mitra.example/objects/1" {
		t.Fatalf("descriptor = %+v", desc)
	}
	pinned, err := d.Store.PinnedObjects(actor)
	if err != nil {
		t.Fatalf("PinnedObjects: %v", err)
	}
	if len(pinned) != 1 {
		t.Fatalf("PinnedObjects = %v, want one entry", pinned)
	}
}

func TestHandleAddRejectsPinningUnownedObject(t *testing.T) {
	d, _ := newTestDispatcher(t)
	actor := "https://mitra.example/users/alice"
	seedLocalActor(t, d, actor)
	if err := d.Store.UpsertObject(store.ObjectRecord{ID: "https://mitra.example/objects/1", ObjectType: "Note", AttributedTo: "https://mitra.example/users/bob"}); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	add := mustRaw(t, map[string]interface{}{
		"id": "https://mitra.example/activities/add-2", "type": "Add", "actor": actor,
		"target": actor + "/collections/featured",
		"object": "https://mitra.example/objects/1",
	})
	if _, err := d.HandleActivity(context.Background(), add, nil, true); err == nil {
		t.Fatal("expected an ownership error pinning someone else's object")
	}
}

func TestHandleAddThenRemoveUnpinsObject(t *testing.T) {
	d, _ := newTestDispatcher(t)
	actor := "https://mitra.example/users/alice"
	seedLocalActor(t, d, actor)
	if err := d.Store.UpsertObject(store.ObjectRecord{ID: "https://mitra.example/objects/1", ObjectType: "Note", AttributedTo: actor}); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	add := mustRaw(t, map[string]interface{}{
		"id": "https://mitra.example/activities/add-3", "type": "Add", "actor": actor,
		"target": actor + "/collections/featured", "object": "https://mitra.example/objects/1",
	})
	if _, err := d.HandleActivity(context.Background(), add, nil, true); err != nil {
		t.Fatalf("Add: %v", err)
	}

	remove := mustRaw(t, map[string]interface{}{
		"id": "https://mitra.example/activities/remove-1", "type": "Remove", "actor": actor,
		"target": actor + "/featured", "object": "https://mitra.example/objects/1",
	})
	if _, err := d.HandleActivity(context.Background(), remove, nil, true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	pinned, err := d.Store.PinnedObjects(actor)
	if err != nil {
		t.Fatalf("PinnedObjects: %v", err)
	}
	if len(pinned) != 0 {
		t.Fatalf("PinnedObjects after Remove = %v, want empty", pinned)
	}
}

func TestHandleAddSubscribersCompletesInvoiceAndCreatesSubscription(t *testing.T) {
	d, _ := newTestDispatcher(t)
	recipient := "https://mitra.example/users/alice"
	seedLocalActor(t, d, recipient)

	inv, err := d.Store.CreateLocalInvoice("inv-1", "https://remote.example/users/bob", recipient, "eip155:1", "0xabc", 1000)
	if err != nil {
		t.Fatalf("CreateLocalInvoice: %v", err)
	}
	if err := d.Store.SetInvoiceStatus(inv.ID, store.InvoiceOpen); err != nil {
		t.Fatalf("SetInvoiceStatus(Open): %v", err)
	}
	if err := d.Store.SetInvoiceStatus(inv.ID, store.InvoicePaid); err != nil {
		t.Fatalf("SetInvoiceStatus(Paid): %v", err)
	}

	add := mustRaw(t, map[string]interface{}{
		"id": "https://mitra.example/activities/add-4", "type": "Add", "actor": recipient,
		"target": recipient + "/subscribers", "object": inv.ID,
	})
	if _, err := d.HandleActivity(context.Background(), add, nil, true); err != nil {
		t.Fatalf("HandleActivity(Add subscribers): %v", err)
	}
	got, ok := d.Store.GetInvoice(inv.ID)
	if !ok || got.Status != store.InvoiceCompleted {
		t.Fatalf("invoice status = %+v, want completed", got)
	}
}
