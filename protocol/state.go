package protocol

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// RefSnapshot is the parsed view of a kind 30618 repository state event: the
// refs a publishing maintainer claims, as ref name -> commit id, plus the
// symbolic HEAD target if declared.
type RefSnapshot struct {
	Event      nostr.Event
	Identifier string
	Refs       map[string]string
	HEAD       string // e.g. "refs/heads/main", "" when absent
}

// ParseRefSnapshot extracts refs from a state event's tags. Ref tags are
// ["refs/heads/main", <commit-id>]; HEAD is ["HEAD", "ref: refs/heads/main"].
// Returns ok=false when the event is not a 30618 or is missing its "d" tag.
func ParseRefSnapshot(event nostr.Event) (RefSnapshot, bool) {
	if event.Kind != KindRepoState {
		return RefSnapshot{}, false
	}
	identifier := TagValue(event, "d")
	if identifier == "" {
		return RefSnapshot{}, false
	}

	snap := RefSnapshot{
		Event:      event,
		Identifier: identifier,
		Refs:       make(map[string]string),
	}
	for _, tag := range event.Tags {
		if len(tag) < 2 {
			continue
		}
		switch {
		case tag[0] == "HEAD" && strings.HasPrefix(tag[1], "ref: "):
			snap.HEAD = strings.TrimPrefix(tag[1], "ref: ")
		case strings.HasPrefix(tag[0], "refs/") && tag[1] != "":
			snap.Refs[tag[0]] = tag[1]
		}
	}
	return snap, true
}

// ShortRefName strips the refs/heads/ prefix for display.
func ShortRefName(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
