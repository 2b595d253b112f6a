package handler

import (
	"context"
	"testing"

	"github.com/klppl/mitra/internal/store"
)

func TestHandleUpdateRequiresAuthentication(t *testing.T) {
	d, _ := newTestDispatcher(t)
	update := mustRaw(t, map[string]interface{}{
		"id": "https://remote.example/activities/update-1", "type": "Update", "actor": "https://remote.example/users/bob",
		"object": map[string]interface{}{"id": "https://remote.example/objects/1", "type": "Note", "attributedTo": "https://remote.example/users/bob"},
	})
	if _, err := d.HandleActivity(context.Background(), update, nil, true); err == nil {
		t.Fatal("expected Update without a transport signature to be rejected")
	}
}

func TestHandleUpdateRefreshesExistingNote(t *testing.T) {
	d, _ := newTestDispatcher(t)
	author := "https://remote.example/users/bob"
	if err := d.Store.UpsertObject(store.ObjectRecord{ID: "https://remote.example/objects/1", ObjectType: "Note", AttributedTo: author, ContentJSON: `{"content":"old"}`}); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	update := mustRaw(t, map[string]interface{}{
		"id": "https://remote.example/activities/update-2", "type": "Update", "actor": author,
		"object": map[string]interface{}{"id": "https://remote.example/objects/1", "type": "Note", "attributedTo": author, "content": "new"},
	})
	auth := &TransportAuth{ActorID: author}
	desc, err := d.HandleActivity(context.Background(), update, auth, true)
	if err != nil {
		t.Fatalf("HandleActivity(Update): %v", err)
	}
	if desc == nil || desc.Target != "https://remote.example/objects/1" {
		t.Fatalf("descriptor = %+v", desc)
	}
	got, ok := d.Store.GetObject("https://remote.example/objects/1")
	if !ok {
		t.Fatal("expected the object to still exist")
	}
	if got.ContentJSON == `{"content":"old"}` {
		t.Fatal("expected the object content to be refreshed")
	}
}

func TestHandleUpdateRejectsUnknownObject(t *testing.T) {
	d, _ := newTestDispatcher(t)
	author := "https://remote.example/users/bob"
	update := mustRaw(t, map[string]interface{}{
		"id": "https://remote.example/activities/update-3", "type": "Update", "actor": author,
		"object": map[string]interface{}{"id": "https://remote.example/objects/unknown", "type": "Note", "attributedTo": author},
	})
	auth := &TransportAuth{ActorID: author}
	if _, err := d.HandleActivity(context.Background(), update, auth, true); err == nil {
		t.Fatal("expected Update of an object we never stored to fail")
	}
}
