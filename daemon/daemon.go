// Package daemon assembles the reconciliation core into a running process:
// config, event cache, relay transport, derivation engine and subscription
// manager, built explicitly and passed around instead of living in globals.
package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/groups"
	"github.com/Pleb5/flotilla-budabit-sub002/notify"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/store"
	"github.com/Pleb5/flotilla-budabit-sub002/transport"
	"github.com/Pleb5/flotilla-budabit-sub002/watch"
)

// Context owns every collaborator the core needs. Build one with Init, tear
// it down with Close.
type Context struct {
	Cfg       Config
	DB        *sql.DB
	Store     *store.Store
	Pool      *transport.Pool
	Transport transport.Transport
	Engine    *notify.Engine
	Subs      *notify.SubManager
	Cipher    watch.Cipher

	mu         sync.Mutex
	prefs      watch.Prefs
	metaCancel transport.CancelFunc   // live announcement/state/prefs feed
	optimistic map[string]nostr.Event // in-flight state publishes by coordinate
}

// Init opens the event cache, replays it into the in-memory store, connects
// the relay pool and wires the derivation engine.
func Init(cfg Config) (*Context, error) {
	db, err := store.OpenDb(cfg.DbFile)
	if err != nil {
		return nil, err
	}

	st := store.New()
	cached, err := store.LoadEvents(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if n := st.AddAll(cached); n > 0 {
		log.Printf("[Daemon] replayed %d cached events\n", n)
	}

	var secretKey *string
	if cfg.SecretKey != "" {
		secretKey = &cfg.SecretKey
	}
	pool, err := transport.Connect(cfg.Relays, secretKey)
	if err != nil {
		db.Close()
		return nil, err
	}

	daemonCtx := &Context{
		Cfg:       cfg,
		DB:        db,
		Store:     st,
		Pool:      pool,
		Transport: pool,
		Engine: &notify.Engine{
			Store:         st,
			Routes:        notify.NewPathBuilder(cfg.RoutePrefix),
			DefaultRelays: cfg.DefaultRelays,
			UserPubKey:    cfg.PubKey,
		},
		Subs:  &notify.SubManager{Transport: pool, Store: st},
		prefs: watch.Prefs{Version: watch.PayloadVersion, Repos: map[string]watch.Options{}},
	}

	if cfg.SecretKey != "" {
		cipher, err := NewSelfCipher(cfg.SecretKey)
		if err != nil {
			daemonCtx.Close()
			return nil, err
		}
		daemonCtx.Cipher = cipher
	}

	return daemonCtx, nil
}

// Close cancels live subscriptions and closes the event cache.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.metaCancel != nil {
		c.metaCancel()
		c.metaCancel = nil
	}
	c.mu.Unlock()
	if c.Subs != nil {
		c.Subs.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Ingest materializes one observed event: into the in-memory store, the
// sqlite cache, and the per-kind resume bookkeeping.
func (c *Context) Ingest(event nostr.Event) {
	if !c.Store.Add(event) {
		return
	}
	if err := store.SaveEvent(c.DB, event); err != nil {
		log.Printf("[Daemon] cache event %s: %v\n", event.ID, err)
	}
	if err := store.UpdateSince(c.DB, event.Kind, event.CreatedAt.Unix()); err != nil {
		log.Printf("[Daemon] update since for kind %d: %v\n", event.Kind, err)
	}
}

// Bootstrap loads announcements (and the user's persisted watch preferences
// when a key is configured) from the relays, resuming from the cached Since
// timestamps, then keeps those kinds flowing on a live subscription so
// announcements, states and preference updates keep arriving without a
// restart. Per-repo activity kinds are the sub manager's job.
func (c *Context) Bootstrap(ctx context.Context) error {
	since, err := store.GetSince(c.DB)
	if err != nil {
		return err
	}

	filters := nostr.Filters{{
		Kinds: []int{protocol.KindRepoAnnouncement, protocol.KindRepoState},
		Since: earliestSince(since, protocol.KindRepoAnnouncement, protocol.KindRepoState),
	}}
	if c.Cfg.PubKey != "" {
		filters = append(filters, nostr.Filter{
			Kinds:   []int{protocol.KindAppData},
			Authors: []string{c.Cfg.PubKey},
			Since:   since[protocol.KindAppData],
		})
	}

	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	events, err := c.Transport.Load(loadCtx, filters)
	if err != nil {
		return err
	}
	for _, event := range events {
		c.Ingest(event)
	}
	log.Printf("[Daemon] bootstrap loaded %d events\n", len(events))

	liveSince := time.Now()
	live := nostr.Filters{{
		Kinds: []int{protocol.KindRepoAnnouncement, protocol.KindRepoState},
		Since: &liveSince,
	}}
	if c.Cfg.PubKey != "" {
		live = append(live, nostr.Filter{
			Kinds:   []int{protocol.KindAppData},
			Authors: []string{c.Cfg.PubKey},
			Since:   &liveSince,
		})
	}
	metaCancel, err := c.Transport.Request(live, c.Ingest)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.metaCancel != nil {
		c.metaCancel()
	}
	c.metaCancel = metaCancel
	c.mu.Unlock()

	return c.RefreshPrefs()
}

// earliestSince returns the earliest resume cursor across kinds sharing one
// filter. A kind with no cursor yet forces a full load.
func earliestSince(since map[int]*time.Time, kinds ...int) *time.Time {
	var earliest *time.Time
	for _, kind := range kinds {
		t := since[kind]
		if t == nil {
			return nil
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
	}
	return earliest
}

// RefreshPrefs decrypts the latest persisted preference event, installs it
// and reconciles live subscriptions. With no newer persisted event the
// installed map is re-reconciled anyway, so a mirror confirmed after startup
// still gets watched. Decryption failure is surfaced, not silently
// defaulted: losing preferences on a bad key is a different condition from
// "no preferences set yet".
func (c *Context) RefreshPrefs() error {
	if c.Cipher == nil || c.Cfg.PubKey == "" {
		return c.SetPrefs(c.Prefs())
	}
	var latest *nostr.Event
	for _, event := range c.Store.ByKind(protocol.KindAppData) {
		event := event
		if event.PubKey != c.Cfg.PubKey {
			continue
		}
		if protocol.TagValue(event, "d") != protocol.WatchPrefsIdentifier {
			continue
		}
		if latest == nil || event.CreatedAt.Unix() >= latest.CreatedAt.Unix() {
			latest = &event
		}
	}
	if latest == nil {
		return c.SetPrefs(c.Prefs())
	}
	prefs, err := watch.ParsePrefsEvent(*latest, c.Cipher)
	if err != nil {
		return fmt.Errorf("load watch preferences: %w", err)
	}
	return c.SetPrefs(prefs)
}

// SetPrefs installs a new preference map and reconciles live subscriptions:
// every watched address fans out to its effective address set so mirror
// activity is watched too.
func (c *Context) SetPrefs(prefs watch.Prefs) error {
	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()

	index := groups.NewIndex(c.Store.ByKind(protocol.KindRepoAnnouncement))
	var addrs []protocol.Address
	seen := make(map[string]bool)
	for watched := range prefs.Repos {
		addr, ok := protocol.ParseAddress(watched)
		if !ok {
			continue
		}
		effective := index.EffectiveAddresses(addr)
		if len(effective) == 0 {
			effective = []protocol.Address{addr}
		}
		for _, eff := range effective {
			if !seen[eff.String()] {
				seen[eff.String()] = true
				addrs = append(addrs, eff)
			}
		}
	}
	return c.Subs.Sync(addrs)
}

// Prefs returns the currently installed preference map.
func (c *Context) Prefs() watch.Prefs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// Candidates recomputes the notification candidate set.
func (c *Context) Candidates() []notify.Candidate {
	return c.Engine.Derive(c.Prefs())
}
