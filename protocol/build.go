package protocol

import (
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Builders for the unsigned events this client publishes. Signing is the
// relay pool's job; callers hand these straight to the publish collaborator.

// BuildAnnouncementEvent constructs a kind 30617 repository announcement.
// Content is empty per NIP-34; all metadata goes in tags.
func BuildAnnouncementEvent(identifier, name, description string, relays, cloneURLs, maintainers []string, euc string) nostr.Event {
	tags := nostr.Tags{
		{"d", identifier},
	}
	if name == "" {
		name = identifier
	}
	tags = append(tags, []string{"name", name})
	if description != "" {
		tags = append(tags, []string{"description", description})
	}
	if len(relays) > 0 {
		tags = append(tags, append([]string{"relays"}, relays...))
	}
	for _, url := range cloneURLs {
		if url != "" {
			tags = append(tags, []string{"clone", url})
		}
	}
	if len(maintainers) > 0 {
		tags = append(tags, append([]string{"maintainers"}, maintainers...))
	}
	if euc != "" {
		tags = append(tags, []string{"r", euc, "euc"})
	}
	return nostr.Event{
		CreatedAt: time.Now(),
		Kind:      KindRepoAnnouncement,
		Tags:      tags,
		Content:   "",
	}
}

// BuildStateEvent constructs a kind 30618 repository state event from a ref
// map and an optional symbolic HEAD target. Refs are emitted in sorted order
// so two builds from the same map produce identical tags.
func BuildStateEvent(identifier string, refs map[string]string, head string) nostr.Event {
	tags := nostr.Tags{
		{"d", identifier},
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if refs[name] != "" {
			tags = append(tags, []string{name, refs[name]})
		}
	}
	if head != "" {
		tags = append(tags, []string{"HEAD", "ref: " + head})
	}
	return nostr.Event{
		CreatedAt: time.Now(),
		Kind:      KindRepoState,
		Tags:      tags,
		Content:   "",
	}
}

// BuildStatusEvent constructs one of the four status events for a root
// issue/patch. repoAddr scopes the status to the repository coordinate and
// relayHint, when non-empty, rides along on the "e" tag.
func BuildStatusEvent(statusKind int, rootID string, repoAddr Address, relayHint, content string) nostr.Event {
	eTag := []string{"e", rootID}
	if relayHint != "" {
		eTag = append(eTag, relayHint)
	}
	eTag = append(eTag, "root")
	return nostr.Event{
		CreatedAt: time.Now(),
		Kind:      statusKind,
		Tags: nostr.Tags{
			eTag,
			{"a", repoAddr.String()},
		},
		Content: content,
	}
}

// BuildRoleLabelEvent constructs a kind 1985 label event granting roles on a
// root event to the given pubkeys. roles must be RoleAssignee/RoleReviewer;
// one event may grant both at once.
func BuildRoleLabelEvent(rootID string, repoAddr Address, roles []string, pubkeys []string) nostr.Event {
	tags := nostr.Tags{
		{"L", RoleNamespace},
	}
	for _, role := range roles {
		tags = append(tags, []string{"l", role, RoleNamespace})
	}
	tags = append(tags, []string{"e", rootID})
	tags = append(tags, []string{"a", repoAddr.String()})
	for _, pk := range pubkeys {
		if pk != "" {
			tags = append(tags, []string{"p", pk})
		}
	}
	return nostr.Event{
		CreatedAt: time.Now(),
		Kind:      KindLabel,
		Tags:      tags,
		Content:   "",
	}
}
