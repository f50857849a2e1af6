// Package refdiff computes minimal changesets between two ref snapshots and
// the bookkeeping keys used when reviewing and publishing branch updates.
package refdiff

import (
	"sort"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// BranchChange is one line of a diff between two ref snapshots. Name carries
// no refs/heads/ prefix; OldOid/NewOid are empty when the side is absent.
type BranchChange struct {
	Name   string
	OldOid string
	NewOid string
	Change ChangeKind
}

// RepoUpdate batches the branch changes of one repository for review before a
// new state event is published.
type RepoUpdate struct {
	RepoID  string
	Updates []BranchChange
}

// DiffBranchHeads compares the currently known ref heads against a freshly
// fetched remote snapshot. Refs present in both with equal oids are omitted.
// The returned order is unspecified; callers sort when they need stability.
func DiffBranchHeads(current, remote map[string]string) []BranchChange {
	var changes []BranchChange
	for ref, newOid := range remote {
		oldOid, known := current[ref]
		switch {
		case !known:
			changes = append(changes, BranchChange{
				Name:   protocol.ShortRefName(ref),
				NewOid: newOid,
				Change: ChangeAdded,
			})
		case oldOid != newOid:
			changes = append(changes, BranchChange{
				Name:   protocol.ShortRefName(ref),
				OldOid: oldOid,
				NewOid: newOid,
				Change: ChangeUpdated,
			})
		}
	}
	for ref, oldOid := range current {
		if _, still := remote[ref]; !still {
			changes = append(changes, BranchChange{
				Name:   protocol.ShortRefName(ref),
				OldOid: oldOid,
				Change: ChangeRemoved,
			})
		}
	}
	return changes
}

// BuildUpdateDedupeKey builds a key that is identical for two batches holding
// the same set of (repo, change) pairs, regardless of the order of repos or
// of each repo's updates. Used to drop a concurrent duplicate update attempt.
func BuildUpdateDedupeKey(repos []RepoUpdate) string {
	perRepo := make([]string, 0, len(repos))
	for _, repo := range repos {
		updates := make([]BranchChange, len(repo.Updates))
		copy(updates, repo.Updates)
		sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })

		parts := make([]string, 0, len(updates))
		for _, u := range updates {
			parts = append(parts, u.Name+":"+string(u.Change)+":"+u.OldOid+":"+u.NewOid)
		}
		perRepo = append(perRepo, repo.RepoID+":"+strings.Join(parts, "|"))
	}
	sort.Strings(perRepo)
	return strings.Join(perRepo, "||")
}

// OverlayLatestRepoStates lays locally-published state events over the
// subscribed baseline so an in-flight publish shows up immediately. The
// optimistic entry wins on equal timestamps; a genuinely newer subscribed
// state still displaces it.
func OverlayLatestRepoStates(base map[string]nostr.Event, optimistic map[string]nostr.Event) map[string]nostr.Event {
	merged := make(map[string]nostr.Event, len(base)+len(optimistic))
	for repoID, event := range base {
		merged[repoID] = event
	}
	for repoID, event := range optimistic {
		existing, known := merged[repoID]
		if !known || event.CreatedAt.Unix() >= existing.CreatedAt.Unix() {
			merged[repoID] = event
		}
	}
	return merged
}
