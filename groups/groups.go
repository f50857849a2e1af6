// Package groups derives repository groups and effective maintainer sets from
// the live set of repository announcements. Everything here is rebuilt from
// scratch on every announcement change; nothing is incrementally mutated.
package groups

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/maps"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Group aggregates the announcements that describe the same upstream git
// history, as declared by a shared non-empty euc fingerprint. Announcements
// without an euc form singleton groups. Root is the address of the earliest
// announcement in the group, taken as the canonical upstream.
type Group struct {
	EUC           string
	Root          protocol.Address
	Announcements []protocol.RepoAnnouncement
}

// Index is a fully derived view over a set of announcement events: latest
// event per address, tombstones dropped, grouped by euc. Build a fresh Index
// whenever the underlying announcement set changes.
type Index struct {
	byAddress map[string]protocol.RepoAnnouncement
	groups    []Group
}

// NewIndex parses and reconciles raw announcement events. Non-30617 events
// and events without a "d" tag are ignored. For each (pubkey, identifier)
// address the latest event by created_at wins, ties broken by lexicographic
// event id so replays reconcile identically regardless of arrival order.
func NewIndex(events []nostr.Event) *Index {
	byAddress := make(map[string]protocol.RepoAnnouncement)
	for _, event := range events {
		ann, ok := protocol.ParseRepoAnnouncement(event)
		if !ok {
			continue
		}
		key := ann.Address.String()
		existing, seen := byAddress[key]
		if seen && !newerThan(ann.Event, existing.Event) {
			continue
		}
		byAddress[key] = ann
	}

	// Tombstoned announcements drop out of every derived view.
	for key, ann := range byAddress {
		if ann.Deleted {
			delete(byAddress, key)
		}
	}

	return &Index{
		byAddress: byAddress,
		groups:    buildGroups(byAddress),
	}
}

func newerThan(a, b nostr.Event) bool {
	if a.CreatedAt.Unix() != b.CreatedAt.Unix() {
		return a.CreatedAt.Unix() > b.CreatedAt.Unix()
	}
	return a.ID > b.ID
}

func buildGroups(byAddress map[string]protocol.RepoAnnouncement) []Group {
	byEUC := make(map[string][]protocol.RepoAnnouncement)
	var singletons []protocol.RepoAnnouncement
	for _, ann := range byAddress {
		if ann.EUC == "" {
			singletons = append(singletons, ann)
		} else {
			byEUC[ann.EUC] = append(byEUC[ann.EUC], ann)
		}
	}

	groups := make([]Group, 0, len(byEUC)+len(singletons))
	for euc, anns := range byEUC {
		groups = append(groups, newGroup(euc, anns))
	}
	for _, ann := range singletons {
		groups = append(groups, newGroup("", []protocol.RepoAnnouncement{ann}))
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Root.String() < groups[j].Root.String()
	})
	return groups
}

func newGroup(euc string, anns []protocol.RepoAnnouncement) Group {
	sort.Slice(anns, func(i, j int) bool {
		if anns[i].Event.CreatedAt.Unix() != anns[j].Event.CreatedAt.Unix() {
			return anns[i].Event.CreatedAt.Unix() < anns[j].Event.CreatedAt.Unix()
		}
		return anns[i].Event.ID < anns[j].Event.ID
	})
	return Group{EUC: euc, Root: anns[0].Address, Announcements: anns}
}

// Announcements returns the reconciled live announcements in address order.
func (ix *Index) Announcements() []protocol.RepoAnnouncement {
	anns := maps.Values(ix.byAddress)
	sort.Slice(anns, func(i, j int) bool {
		return anns[i].Address.String() < anns[j].Address.String()
	})
	return anns
}

// Announcement returns the live announcement at addr, if any.
func (ix *Index) Announcement(addr protocol.Address) (protocol.RepoAnnouncement, bool) {
	ann, ok := ix.byAddress[addr.String()]
	return ann, ok
}

// Groups returns all derived repository groups.
func (ix *Index) Groups() []Group {
	return ix.groups
}

// GroupsByEUC returns every group sharing euc. Independent forks tracked as
// separate groups under one euc all come back; callers that need one group
// should key by the full group identity (euc plus root address).
func (ix *Index) GroupsByEUC(euc string) []Group {
	if euc == "" {
		return nil
	}
	var matched []Group
	for _, g := range ix.groups {
		if g.EUC == euc {
			matched = append(matched, g)
		}
	}
	return matched
}

// GroupByEUC is the legacy first-found-wins lookup, kept for call sites that
// predate GroupsByEUC. When several groups share an euc it returns the one
// with the lowest root address and loses the rest.
func (ix *Index) GroupByEUC(euc string) (Group, bool) {
	matched := ix.GroupsByEUC(euc)
	if len(matched) == 0 {
		return Group{}, false
	}
	return matched[0], true
}

// EffectiveMaintainers resolves the maintainer set for one owner's
// announcement address. Candidates are the owner plus its declared
// maintainers; a candidate other than the owner is accepted only when it has
// published its own announcement under the same identifier and the two
// announcements agree on the euc (including both leaving it undeclared).
// The result is sorted and never empty while the announcement is live.
func (ix *Index) EffectiveMaintainers(addr protocol.Address) []string {
	ann, ok := ix.byAddress[addr.String()]
	if !ok {
		return nil
	}

	accepted := map[string]bool{ann.Address.PubKey: true}
	for _, candidate := range ann.Maintainers {
		if candidate == "" || accepted[candidate] {
			continue
		}
		candidateAddr := protocol.Address{
			Kind:       protocol.KindRepoAnnouncement,
			PubKey:     candidate,
			Identifier: ann.Identifier,
		}
		reciprocal, published := ix.byAddress[candidateAddr.String()]
		if published && reciprocal.EUC == ann.EUC {
			accepted[candidate] = true
		}
	}

	pubkeys := maps.Keys(accepted)
	sort.Strings(pubkeys)
	return pubkeys
}

// EffectiveAddresses expands one announcement address into the set of
// addresses that should be treated as the same logical repository: one
// announcement coordinate per effective maintainer, under the same
// identifier. Sorted, deterministic.
func (ix *Index) EffectiveAddresses(addr protocol.Address) []protocol.Address {
	ann, ok := ix.byAddress[addr.String()]
	if !ok {
		return nil
	}
	maintainers := ix.EffectiveMaintainers(addr)
	addrs := make([]protocol.Address, 0, len(maintainers))
	for _, pk := range maintainers {
		addrs = append(addrs, protocol.Address{
			Kind:       protocol.KindRepoAnnouncement,
			PubKey:     pk,
			Identifier: ann.Identifier,
		})
	}
	return addrs
}
