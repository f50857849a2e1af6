// Package store holds the in-memory event set every derivation projects
// over, plus the sqlite cache that lets the daemon resume where it left off.
package store

import (
	"sort"
	"sync"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Store is an append-only (by event id) in-memory event collection with
// change notification. Derivations are read-only projections over it; all
// "updates" happen by re-running a projection after a change fires.
type Store struct {
	mu        sync.RWMutex
	events    map[string]nostr.Event
	listeners map[int]func()
	nextID    int
}

func New() *Store {
	return &Store{
		events:    make(map[string]nostr.Event),
		listeners: make(map[int]func()),
	}
}

// Add inserts an event, keyed by id. Duplicates are dropped and reported via
// the false return; listeners only fire when the set actually grew.
func (s *Store) Add(event nostr.Event) bool {
	if event.ID == "" {
		return false
	}
	s.mu.Lock()
	if _, seen := s.events[event.ID]; seen {
		s.mu.Unlock()
		return false
	}
	s.events[event.ID] = event
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// AddAll inserts a batch and reports how many were new.
func (s *Store) AddAll(events []nostr.Event) int {
	added := 0
	for _, event := range events {
		if s.Add(event) {
			added++
		}
	}
	return added
}

// Subscribe registers a change listener, invoked after every new event.
// The returned cancel removes it.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Len returns the number of distinct events held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// ByID returns the event with the given id, if held.
func (s *Store) ByID(id string) (nostr.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	return event, ok
}

// All returns every event, ordered by created_at then id for determinism.
func (s *Store) All() []nostr.Event {
	s.mu.RLock()
	events := make([]nostr.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	s.mu.RUnlock()
	sortEvents(events)
	return events
}

// ByKind returns every event of the given kinds.
func (s *Store) ByKind(kinds ...int) []nostr.Event {
	wanted := make(map[int]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}
	s.mu.RLock()
	var events []nostr.Event
	for _, event := range s.events {
		if wanted[event.Kind] {
			events = append(events, event)
		}
	}
	s.mu.RUnlock()
	sortEvents(events)
	return events
}

// Referencing returns every event carrying an "e"/"E" reference to rootID.
func (s *Store) Referencing(rootID string) []nostr.Event {
	s.mu.RLock()
	var events []nostr.Event
	for _, event := range s.events {
		for _, ref := range protocol.RootReferences(event) {
			if ref == rootID {
				events = append(events, event)
				break
			}
		}
	}
	s.mu.RUnlock()
	sortEvents(events)
	return events
}

// ReferencingAddress returns every event carrying an "a" reference to addr.
func (s *Store) ReferencingAddress(addr protocol.Address) []nostr.Event {
	coordinate := addr.String()
	s.mu.RLock()
	var events []nostr.Event
	for _, event := range s.events {
		for _, ref := range protocol.AddressReferences(event) {
			if ref == coordinate {
				events = append(events, event)
				break
			}
		}
	}
	s.mu.RUnlock()
	sortEvents(events)
	return events
}

func sortEvents(events []nostr.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Unix() != events[j].CreatedAt.Unix() {
			return events[i].CreatedAt.Unix() < events[j].CreatedAt.Unix()
		}
		return events[i].ID < events[j].ID
	})
}
