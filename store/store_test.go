package store

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

func event(id string, kind int, createdAt int64, tags nostr.Tags) nostr.Event {
	return nostr.Event{
		ID:        id,
		PubKey:    "pk",
		Kind:      kind,
		CreatedAt: time.Unix(createdAt, 0),
		Tags:      tags,
	}
}

func TestAddDeduplicatesByID(t *testing.T) {
	s := New()
	if !s.Add(event("a", protocol.KindIssue, 100, nil)) {
		t.Fatal("first add rejected")
	}
	if s.Add(event("a", protocol.KindIssue, 100, nil)) {
		t.Fatal("duplicate add accepted")
	}
	if s.Add(nostr.Event{}) {
		t.Fatal("event without id accepted")
	}
	if s.Len() != 1 {
		t.Fatalf("store holds %d events, want 1", s.Len())
	}
}

func TestSubscribeFiresOnNewEventsOnly(t *testing.T) {
	s := New()
	fired := 0
	cancel := s.Subscribe(func() { fired++ })

	s.Add(event("a", protocol.KindIssue, 100, nil))
	s.Add(event("a", protocol.KindIssue, 100, nil)) // duplicate, no fire
	s.Add(event("b", protocol.KindPatch, 200, nil))
	if fired != 2 {
		t.Fatalf("listener fired %d times, want 2", fired)
	}

	cancel()
	s.Add(event("c", protocol.KindIssue, 300, nil))
	if fired != 2 {
		t.Fatalf("cancelled listener fired: %d", fired)
	}
}

func TestByKindAndOrdering(t *testing.T) {
	s := New()
	s.Add(event("b", protocol.KindIssue, 200, nil))
	s.Add(event("a", protocol.KindIssue, 100, nil))
	s.Add(event("c", protocol.KindPatch, 150, nil))

	issues := s.ByKind(protocol.KindIssue)
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}
	if issues[0].ID != "a" || issues[1].ID != "b" {
		t.Fatalf("issues out of order: %s, %s", issues[0].ID, issues[1].ID)
	}

	both := s.ByKind(protocol.KindIssue, protocol.KindPatch)
	if len(both) != 3 {
		t.Fatalf("got %d events for two kinds, want 3", len(both))
	}
}

func TestReferencing(t *testing.T) {
	s := New()
	s.Add(event("root", protocol.KindIssue, 100, nil))
	s.Add(event("reply", protocol.KindComment, 200, nostr.Tags{{"e", "root"}}))
	s.Add(event("upper", protocol.KindComment, 300, nostr.Tags{{"E", "root"}}))
	s.Add(event("other", protocol.KindComment, 400, nostr.Tags{{"e", "elsewhere"}}))

	refs := s.Referencing("root")
	if len(refs) != 2 {
		t.Fatalf("got %d referencing events, want 2", len(refs))
	}
}

func TestReferencingAddress(t *testing.T) {
	addr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: "pk", Identifier: "repo"}
	s := New()
	s.Add(event("in", protocol.KindIssue, 100, nostr.Tags{{"a", addr.String()}}))
	s.Add(event("out", protocol.KindIssue, 200, nostr.Tags{{"a", "30617:other:repo"}}))

	got := s.ReferencingAddress(addr)
	if len(got) != 1 || got[0].ID != "in" {
		t.Fatalf("address query returned %v", got)
	}
}

func TestByID(t *testing.T) {
	s := New()
	s.Add(event("a", protocol.KindIssue, 100, nil))
	if _, ok := s.ByID("a"); !ok {
		t.Fatal("held event not found by id")
	}
	if _, ok := s.ByID("missing"); ok {
		t.Fatal("missing id reported as held")
	}
}
