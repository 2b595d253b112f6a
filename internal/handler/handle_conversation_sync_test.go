package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/klppl/mitra/internal/fetcher"
	"github.com/klppl/mitra/internal/httpagent"
	"github.com/klppl/mitra/internal/store"
)

func TestSyncConversationBackfillsMissingReplies(t *testing.T) {
	var conversationURL, firstID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		switch r.URL.Path {
		case "/conversations/thread-1":
			fmt.Fprintf(w, `{"id":%q,"type":"OrderedCollection","orderedItems":[
				{"id":%q,"type":"Note","attributedTo":"https://remote.example/users/carol","content":"root post"},
				{"id":"https://remote.example/objects/reply-2","type":"Note","attributedTo":"https://remote.example/users/dave","content":"a reply","inReplyTo":%q}
			]}`, conversationURL, firstID, firstID)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	conversationURL = srv.URL + "/conversations/thread-1"
	firstID = "https://remote.example/objects/root-1"

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "mitra.db")
	st, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	f := fetcher.New(httpagent.Config{SSRFProtectionEnabled: false}, srv.URL, "test")
	d := &Dispatcher{Store: st, Fetcher: f, InstanceURL: srv.URL}

	d.syncConversation(context.Background(), conversationURL)

	if _, ok := st.GetObject(firstID); !ok {
		t.Fatalf("expected root post %q to be backfilled", firstID)
	}
	if _, ok := st.GetObject("https://remote.example/objects/reply-2"); !ok {
		t.Fatal("expected reply-2 to be backfilled")
	}
}

func TestSyncConversationSkipsAlreadyKnownObjects(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "mitra.db")
	st, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	existingID := "https://remote.example/objects/known-1"
	if err := st.UpsertObject(store.ObjectRecord{ID: existingID, ObjectType: "Note", AttributedTo: "https://remote.example/users/carol", ContentJSON: "{}"}); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		fmt.Fprintf(w, `{"id":"%s/conversations/thread-2","type":"OrderedCollection","orderedItems":[
			{"id":%q,"type":"Note","attributedTo":"https://remote.example/users/carol","content":"stale content that must not overwrite"}
		]}`, r.Host, existingID)
	}))
	defer srv.Close()

	f := fetcher.New(httpagent.Config{SSRFProtectionEnabled: false}, srv.URL, "test")
	d := &Dispatcher{Store: st, Fetcher: f, InstanceURL: srv.URL}

	d.syncConversation(context.Background(), srv.URL+"/conversations/thread-2")

	got, ok := st.GetObject(existingID)
	if !ok {
		t.Fatal("expected existing object to remain")
	}
	if got.ContentJSON != "{}" {
		t.Fatalf("expected existing object to be left untouched, got %q", got.ContentJSON)
	}
}
