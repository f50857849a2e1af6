package protocol

import (
	"github.com/nbd-wtf/go-nostr"
)

// RepoAnnouncement is the parsed view of a kind 30617 repository announcement.
// All metadata lives in tags; content is empty per NIP-34.
type RepoAnnouncement struct {
	Event       nostr.Event
	Address     Address
	Identifier  string
	Name        string
	Description string
	Relays      []string
	CloneURLs   []string
	Web         []string
	Maintainers []string // declared maintainer pubkeys, owner not implied
	EUC         string   // earliest-unique-commit fingerprint, "" when undeclared
	Deleted     bool
}

// ParseRepoAnnouncement extracts a RepoAnnouncement from an event. Returns
// ok=false when the event is not a 30617 or is missing its "d" tag.
func ParseRepoAnnouncement(event nostr.Event) (RepoAnnouncement, bool) {
	if event.Kind != KindRepoAnnouncement {
		return RepoAnnouncement{}, false
	}
	addr, ok := EventAddress(event)
	if !ok {
		return RepoAnnouncement{}, false
	}

	ann := RepoAnnouncement{
		Event:       event,
		Address:     addr,
		Identifier:  addr.Identifier,
		Name:        TagValue(event, "name"),
		Description: TagValue(event, "description"),
		Relays:      TagRest(event, "relays"),
		CloneURLs:   TagValues(event, "clone"),
		Web:         TagValues(event, "web"),
		Maintainers: TagRest(event, "maintainers"),
	}

	// NIP-34 marks the fork fingerprint as ["r", <commit-id>, "euc"].
	for _, tag := range event.Tags {
		if len(tag) >= 3 && tag[0] == "r" && tag[2] == "euc" {
			ann.EUC = tag[1]
			break
		}
	}

	// Tombstone: bare ["deleted"] or ["deleted", "true"].
	for _, tag := range event.Tags {
		if len(tag) >= 1 && tag[0] == "deleted" && (len(tag) == 1 || tag[1] == "" || tag[1] == "true") {
			ann.Deleted = true
			break
		}
	}

	return ann, true
}
