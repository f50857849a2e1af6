// Package status resolves the final status of an issue or patch from a
// stream of possibly-conflicting status events.
package status

import (
	"fmt"
	"sort"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Thread bundles a root issue/patch event with the comments and status
// events that reference it.
type Thread struct {
	Root     nostr.Event
	Comments []nostr.Event
	Statuses []nostr.Event
}

// Resolved is the outcome of status resolution: the winning status event, if
// any, and a human-readable account of how it won.
type Resolved struct {
	Final  *nostr.Event
	Reason string
}

// Resolve picks the single final status for a thread. Only status events
// published by the root author or a maintainer count; everything else is
// excluded, not merged. Among the authorized candidates the most recent
// created_at wins, equal timestamps breaking on lexicographic event id.
//
// Authority here is point-in-time: a status published while its author was a
// maintainer stays authorized even if the maintainer set later shrinks,
// because resolution only ever sees the maintainer set it is handed.
//
// Pure projection: identical input always produces identical output, so a
// late-arriving newer status is picked up by simply resolving again.
func Resolve(thread Thread, rootAuthor string, maintainers map[string]bool) Resolved {
	var candidates []nostr.Event
	unauthorized := 0
	for _, event := range thread.Statuses {
		if !protocol.IsStatusKind(event.Kind) {
			continue
		}
		if event.PubKey == rootAuthor || maintainers[event.PubKey] {
			candidates = append(candidates, event)
		} else {
			unauthorized++
		}
	}

	if len(candidates) == 0 {
		if unauthorized > 0 {
			return Resolved{
				Reason: fmt.Sprintf("no authorized status events (%d unauthorized excluded)", unauthorized),
			}
		}
		return Resolved{Reason: "no authorized status events"}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Unix() != candidates[j].CreatedAt.Unix() {
			return candidates[i].CreatedAt.Unix() > candidates[j].CreatedAt.Unix()
		}
		return candidates[i].ID > candidates[j].ID
	})

	final := candidates[0]
	by := "maintainer"
	if final.PubKey == rootAuthor {
		by = "author"
	}
	return Resolved{
		Final: &final,
		Reason: fmt.Sprintf("most recent authorized status %q published by %s at %d",
			protocol.StatusName(final.Kind), by, final.CreatedAt.Unix()),
	}
}
