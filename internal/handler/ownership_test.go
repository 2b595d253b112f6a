package handler

import "testing"

func TestActorIDFromKeyIDStripsFragment(t *testing.T) {
	got := ActorIDFromKeyID("https://remote.example/users/bob#main-key")
	want := "https://remote.example/users/bob"
	if got != want {
		t.Fatalf("ActorIDFromKeyID = %q, want %q", got, want)
	}
}

func TestActorIDFromKeyIDHandlesQueryForm(t *testing.T) {
	got := ActorIDFromKeyID("https://remote.example/main-key?id=https://remote.example/users/bob")
	want := "https://remote.example/users/bob"
	if got != want {
		t.Fatalf("ActorIDFromKeyID = %q, want %q", got, want)
	}
}

func TestActorIDFromKeyIDStripsMainKeyPathSuffix(t *testing.T) {
	got := ActorIDFromKeyID("https://remote.example/users/bob/main-key")
	want := "https://remote.example/users/bob"
	if got != want {
		t.Fatalf("ActorIDFromKeyID = %q, want %q", got, want)
	}
}

func TestCheckEmbeddedOwnershipAcceptsSameHTTPHost(t *testing.T) {
	if !CheckEmbeddedOwnership("https://remote.example/users/bob", "https://remote.example/users/bob") {
		t.Fatal("expected same actor id to be co-owned")
	}
	if !CheckEmbeddedOwnership("https://remote.example/users/bob", "https://Remote.Example/objects/1") {
		t.Fatal("expected host comparison to be case-insensitive")
	}
}

func TestCheckEmbeddedOwnershipRejectsDifferentHTTPHost(t *testing.T) {
	if CheckEmbeddedOwnership("https://remote.example/users/bob", "https://attacker.example/objects/1") {
		t.Fatal("expected different hosts to not be co-owned")
	}
}

func TestCheckEmbeddedOwnershipAcceptsSameDIDAuthority(t *testing.T) {
	actor := "ap://did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK/users/bob"
	object := "ap://did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK/objects/1"
	if !CheckEmbeddedOwnership(actor, object) {
		t.Fatal("expected matching did:key authorities to be co-owned")
	}
}

func TestCheckEmbeddedOwnershipRejectsMixedPortableAndHTTP(t *testing.T) {
	actor := "ap://did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK/users/bob"
	object := "https://remote.example/objects/1"
	if CheckEmbeddedOwnership(actor, object) {
		t.Fatal("expected a portable id and an HTTP id to never be co-owned")
	}
}

func TestCheckTransportOwnershipAcceptsResolvedActorOnSameHost(t *testing.T) {
	auth := TransportAuth{ActorID: ActorIDFromKeyID("https://remote.example/users/bob#main-key")}
	if !CheckTransportOwnership(auth, "https://remote.example/users/bob") {
		t.Fatal("expected a resolved actor id on the same host to be accepted")
	}
}

func TestCheckTransportOwnershipRejectsDifferentHost(t *testing.T) {
	auth := TransportAuth{ActorID: "https://remote.example/users/bob#main-key"}
	if CheckTransportOwnership(auth, "https://attacker.example/users/mallory") {
		t.Fatal("expected a signing key controlled by a different host to be rejected")
	}
}
