// Package refstate merges the redundant repository state events published by
// a repository's maintainers into one authoritative ref map.
package refstate

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Merged is the authoritative view over a repository's refs. Sources records
// which state event contributed each ref, for audit display.
type Merged struct {
	Refs    map[string]string
	HEAD    string
	Sources map[string]nostr.Event
}

// MergeByMaintainers merges state events into one ref map. Events published
// by anyone outside maintainers are discarded outright, not merged. When
// several maintainers publish the same ref, the value from the event with the
// greatest created_at wins; equal timestamps break on lexicographic event id
// so the merge is deterministic under replay.
func MergeByMaintainers(maintainers []string, states []nostr.Event) Merged {
	authorized := make(map[string]bool, len(maintainers))
	for _, pk := range maintainers {
		authorized[pk] = true
	}

	merged := Merged{
		Refs:    make(map[string]string),
		Sources: make(map[string]nostr.Event),
	}
	var headSource nostr.Event
	for _, event := range states {
		if !authorized[event.PubKey] {
			continue
		}
		snap, ok := protocol.ParseRefSnapshot(event)
		if !ok {
			continue
		}
		for ref, oid := range snap.Refs {
			existing, taken := merged.Sources[ref]
			if taken && !wins(event, existing) {
				continue
			}
			merged.Refs[ref] = oid
			merged.Sources[ref] = event
		}
		if snap.HEAD != "" {
			if merged.HEAD == "" || wins(event, headSource) {
				merged.HEAD = snap.HEAD
				headSource = event
			}
		}
	}
	return merged
}

func wins(a, b nostr.Event) bool {
	if a.CreatedAt.Unix() != b.CreatedAt.Unix() {
		return a.CreatedAt.Unix() > b.CreatedAt.Unix()
	}
	return a.ID > b.ID
}
