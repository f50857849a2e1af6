package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/notify"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/store"
	"github.com/Pleb5/flotilla-budabit-sub002/transport"
	"github.com/Pleb5/flotilla-budabit-sub002/watch"
)

const (
	userKey   = "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"
	ownerKey  = "b1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6b1b2"
	mirrorKey = "c1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6c1b2"
)

// plainCipher passes payloads through untouched; the daemon never looks
// inside ciphertext, so tests do not need real nip04.
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (plainCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

type fakeTransport struct {
	loaded   []nostr.Event
	requests []nostr.Filters
	handlers []func(nostr.Event)
}

func (f *fakeTransport) Load(ctx context.Context, filters nostr.Filters) ([]nostr.Event, error) {
	return f.loaded, nil
}

func (f *fakeTransport) Request(filters nostr.Filters, onEvent func(nostr.Event)) (transport.CancelFunc, error) {
	f.requests = append(f.requests, filters)
	f.handlers = append(f.handlers, onEvent)
	return func() {}, nil
}

// watchedCoordinates collects the "#a" values of every live request issued.
func (f *fakeTransport) watchedCoordinates() map[string]bool {
	coords := make(map[string]bool)
	for _, filters := range f.requests {
		for _, filter := range filters {
			for _, coord := range filter.Tags["a"] {
				coords[coord] = true
			}
		}
	}
	return coords
}

func testAnnouncement(id, pubkey, identifier, euc string, createdAt int64, extra ...nostr.Tag) nostr.Event {
	tags := nostr.Tags{{"d", identifier}}
	if euc != "" {
		tags = append(tags, nostr.Tag{"r", euc, "euc"})
	}
	tags = append(tags, extra...)
	return nostr.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      protocol.KindRepoAnnouncement,
		CreatedAt: time.Unix(createdAt, 0),
		Tags:      tags,
	}
}

func prefsEvent(t *testing.T, id string, createdAt int64, addrs ...protocol.Address) nostr.Event {
	t.Helper()
	prefs := watch.Prefs{Version: watch.PayloadVersion, Repos: make(map[string]watch.Options)}
	for _, addr := range addrs {
		prefs.Repos[addr.String()] = watch.DefaultOptions()
	}
	event, err := watch.BuildPrefsEvent(prefs, plainCipher{})
	if err != nil {
		t.Fatal(err)
	}
	event.ID = id
	event.PubKey = userKey
	event.CreatedAt = time.Unix(createdAt, 0)
	return event
}

func newTestContext(t *testing.T, ft *fakeTransport) *Context {
	t.Helper()
	db, err := store.OpenDb(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New()
	return &Context{
		Cfg:       Config{PubKey: userKey},
		DB:        db,
		Store:     st,
		Transport: ft,
		Subs:      &notify.SubManager{Transport: ft, Store: st},
		Cipher:    plainCipher{},
	}
}

func TestEarliestSince(t *testing.T) {
	older := time.Unix(100, 0)
	newer := time.Unix(200, 0)

	since := map[int]*time.Time{
		protocol.KindRepoAnnouncement: &newer,
		protocol.KindRepoState:        &older,
	}
	got := earliestSince(since, protocol.KindRepoAnnouncement, protocol.KindRepoState)
	if got == nil || !got.Equal(older) {
		t.Fatalf("cursor = %v, want %v", got, older)
	}

	// A kind that has never been seen forces a full load.
	delete(since, protocol.KindRepoState)
	if got := earliestSince(since, protocol.KindRepoAnnouncement, protocol.KindRepoState); got != nil {
		t.Fatalf("cursor = %v, want nil for an unseen kind", got)
	}
	if got := earliestSince(map[int]*time.Time{}, protocol.KindRepoAnnouncement); got != nil {
		t.Fatalf("cursor = %v, want nil for empty bookkeeping", got)
	}
}

func TestBootstrapKeepsMetaKindsFlowing(t *testing.T) {
	ownerAddr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: ownerKey, Identifier: "repo"}
	ft := &fakeTransport{loaded: []nostr.Event{
		testAnnouncement("ann-owner", ownerKey, "repo", "euc1", 100),
		prefsEvent(t, "prefs-1", 150, ownerAddr),
	}}
	c := newTestContext(t, ft)

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ft.handlers) == 0 {
		t.Fatal("no live subscription opened by bootstrap")
	}
	meta := ft.requests[0][0]
	if len(meta.Kinds) != 2 || meta.Kinds[0] != protocol.KindRepoAnnouncement {
		t.Fatalf("live feed kinds = %v", meta.Kinds)
	}
	if !ft.watchedCoordinates()[ownerAddr.String()] {
		t.Fatal("watched repo got no activity subscription")
	}

	// An announcement arriving on the live feed is ingested, not dropped.
	ft.handlers[0](testAnnouncement("ann-late", ownerKey, "other", "", 500))
	if _, ok := c.Store.ByID("ann-late"); !ok {
		t.Fatal("live announcement not ingested")
	}
	cached, err := store.LoadEvents(c.DB)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, event := range cached {
		if event.ID == "ann-late" {
			found = true
		}
	}
	if !found {
		t.Fatal("live announcement not persisted")
	}
}

func TestRefreshPrefsPicksUpNewerEvent(t *testing.T) {
	ownerAddr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: ownerKey, Identifier: "repo"}
	otherAddr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: ownerKey, Identifier: "second"}
	ft := &fakeTransport{loaded: []nostr.Event{
		testAnnouncement("ann-owner", ownerKey, "repo", "", 100),
		prefsEvent(t, "prefs-1", 150, ownerAddr),
	}}
	c := newTestContext(t, ft)

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, watched := c.Prefs().Repos[ownerAddr.String()]; !watched {
		t.Fatal("bootstrap prefs not installed")
	}

	// A newer prefs event written by another client arrives on the live feed.
	ft.handlers[0](prefsEvent(t, "prefs-2", 300, otherAddr))
	if err := c.RefreshPrefs(); err != nil {
		t.Fatal(err)
	}
	prefs := c.Prefs()
	if _, watched := prefs.Repos[otherAddr.String()]; !watched {
		t.Fatal("newer prefs event not applied")
	}
	if _, watched := prefs.Repos[ownerAddr.String()]; watched {
		t.Fatal("superseded prefs entry survived")
	}
	if !ft.watchedCoordinates()[otherAddr.String()] {
		t.Fatal("no activity subscription for the newly watched repo")
	}
}

func TestRefreshPrefsFansOutLateMirror(t *testing.T) {
	ownerAddr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: ownerKey, Identifier: "repo"}
	mirrorAddr := protocol.Address{Kind: protocol.KindRepoAnnouncement, PubKey: mirrorKey, Identifier: "repo"}
	ft := &fakeTransport{loaded: []nostr.Event{
		testAnnouncement("ann-owner", ownerKey, "repo", "euc1", 100, nostr.Tag{"maintainers", mirrorKey}),
		prefsEvent(t, "prefs-1", 150, ownerAddr),
	}}
	c := newTestContext(t, ft)

	if err := c.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ft.watchedCoordinates()[mirrorAddr.String()] {
		t.Fatal("unconfirmed mirror watched too early")
	}

	// The mirror confirms after startup; the next refresh fans out to it.
	ft.handlers[0](testAnnouncement("ann-mirror", mirrorKey, "repo", "euc1", 400))
	if err := c.RefreshPrefs(); err != nil {
		t.Fatal(err)
	}
	if !ft.watchedCoordinates()[mirrorAddr.String()] {
		t.Fatal("confirmed mirror not fanned out after refresh")
	}
}
