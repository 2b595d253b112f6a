package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "mitra.db")
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetObject(t *testing.T) {
	s := newTestStore(t)
	obj := ObjectRecord{ID: "https://mitra.example/objects/1", ObjectType: "Note", AttributedTo: "https://mitra.example/users/alice", ContentJSON: `{"content":"hi"}`}
	if err := s.UpsertObject(obj); err != nil {
		t.Fatalf("UpsertObject: %v", err)
	}
	got, ok := s.GetObject(obj.ID)
	if !ok {
		t.Fatal("GetObject: not found")
	}
	if got.ObjectType != "Note" || got.AttributedTo != obj.AttributedTo {
		t.Fatalf("GetObject = %+v, want matching fields of %+v", got, obj)
	}
	if got.Deleted {
		t.Fatal("newly inserted object should not be deleted")
	}
}

func TestTombstoneObjectIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	obj := ObjectRecord{ID: "https://mitra.example/objects/2", ObjectType: "Note", AttributedTo: "https://mitra.example/users/alice"}
	if err := s.UpsertObject(obj); err != nil {
		t.Fatalf("UpsertObject: %v", err)
	}
	if err := s.TombstoneObject(obj.ID); err != nil {
		t.Fatalf("TombstoneObject: %v", err)
	}
	if err := s.TombstoneObject(obj.ID); err != nil {
		t.Fatalf("TombstoneObject (second call): %v", err)
	}
	got, ok := s.GetObject(obj.ID)
	if !ok || !got.Deleted {
		t.Fatalf("expected object to be tombstoned, got %+v, ok=%v", got, ok)
	}
}

func TestObjectsByAuthorOrdersMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	author := "https://mitra.example/users/alice"
	for _, id := range []string{"o1", "o2", "o3"} {
		if err := s.UpsertObject(ObjectRecord{ID: id, ObjectType: "Note", AttributedTo: author}); err != nil {
			t.Fatalf("UpsertObject(%s): %v", id, err)
		}
	}
	ids, err := s.ObjectsByAuthor(author, 10)
	if err != nil {
		t.Fatalf("ObjectsByAuthor: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ObjectsByAuthor returned %d ids, want 3", len(ids))
	}
	if ids[0] != "o3" || ids[2] != "o1" {
		t.Fatalf("ObjectsByAuthor = %v, want most recent (o3) first", ids)
	}
}

func TestCreateReactionIgnoresDuplicateActivityID(t *testing.T) {
	s := newTestStore(t)
	r := Reaction{ActivityID: "act-1", Author: "alice", PostID: "post-1", Content: "Like"}
	created, err := s.CreateReaction(r)
	if err != nil {
		t.Fatalf("CreateReaction: %v", err)
	}
	if !created {
		t.Fatal("expected first CreateReaction to report created=true")
	}
	created, err = s.CreateReaction(r)
	if err != nil {
		t.Fatalf("CreateReaction (duplicate): %v", err)
	}
	if created {
		t.Fatal("expected duplicate CreateReaction to report created=false")
	}
}

func TestDeleteRepostsByObjectAndAnnouncerLeavesOthersIntact(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateRepost(Repost{ActivityID: "a1", Announcer: "alice", ObjectID: "post-1"}); err != nil {
		t.Fatalf("CreateRepost: %v", err)
	}
	if _, err := s.CreateRepost(Repost{ActivityID: "a2", Announcer: "bob", ObjectID: "post-1"}); err != nil {
		t.Fatalf("CreateRepost: %v", err)
	}
	if err := s.DeleteRepostsByObjectAndAnnouncer("post-1", "alice"); err != nil {
		t.Fatalf("DeleteRepostsByObjectAndAnnouncer: %v", err)
	}
	if _, ok := s.GetRepostByActivity("a1"); ok {
		t.Fatal("alice's repost should have been removed")
	}
	if _, ok := s.GetRepostByActivity("a2"); !ok {
		t.Fatal("bob's repost should still exist")
	}
}

func TestFollowRequestLifecycle(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateOrUpdateFollowRequest("follow-1", "alice", "bob", FollowPending); err != nil {
		t.Fatalf("CreateOrUpdateFollowRequest: %v", err)
	}
	if s.IsFollowing("alice", "bob") {
		t.Fatal("a pending follow should not report as following")
	}
	if err := s.SetFollowStatus("follow-1", FollowAccepted); err != nil {
		t.Fatalf("SetFollowStatus: %v", err)
	}
	if !s.IsFollowing("alice", "bob") {
		t.Fatal("an accepted follow should report as following")
	}
	followers, err := s.Followers("bob")
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if len(followers) != 1 || followers[0] != "alice" {
		t.Fatalf("Followers(bob) = %v, want [alice]", followers)
	}
}

func TestPinUnpinObject(t *testing.T) {
	s := newTestStore(t)
	if err := s.PinObject("alice", "post-1"); err != nil {
		t.Fatalf("PinObject: %v", err)
	}
	if err := s.PinObject("alice", "post-1"); err != nil {
		t.Fatalf("PinObject (duplicate): %v", err)
	}
	pinned, err := s.PinnedObjects("alice")
	if err != nil {
		t.Fatalf("PinnedObjects: %v", err)
	}
	if len(pinned) != 1 {
		t.Fatalf("PinnedObjects = %v, want exactly one entry", pinned)
	}
	if err := s.UnpinObject("alice", "post-1"); err != nil {
		t.Fatalf("UnpinObject: %v", err)
	}
	pinned, err = s.PinnedObjects("alice")
	if err != nil {
		t.Fatalf("PinnedObjects: %v", err)
	}
	if len(pinned) != 0 {
		t.Fatalf("PinnedObjects after unpin = %v, want empty", pinned)
	}
}
