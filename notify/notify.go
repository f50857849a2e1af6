// Package notify derives the set of routes the current user should see a
// notification badge on, from the event store and the user's per-repository
// watch preferences.
package notify

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/maps"

	"github.com/Pleb5/flotilla-budabit-sub002/groups"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/store"
	"github.com/Pleb5/flotilla-budabit-sub002/watch"
)

// Category names one notification bucket per (repo, event class).
type Category string

const (
	CategoryNewIssue     Category = "new-issue"
	CategoryIssueComment Category = "issue-comment"
	CategoryNewPatch     Category = "new-patch"
	CategoryPatchUpdate  Category = "patch-update"
	CategoryPatchComment Category = "patch-comment"
	CategoryStatus       Category = "status"
	CategoryAssignment   Category = "assignment"
	CategoryReview       Category = "review"
)

// Section is the repo sub-route a category's badge belongs under when the
// category fixes it. Status, assignment and review events follow the kind of
// the thread root instead; see Engine.section.
func (c Category) Section() string {
	switch c {
	case CategoryNewIssue, CategoryIssueComment:
		return "issues"
	default:
		return "patches"
	}
}

// Candidate is one badge-worthy route plus the most recent event justifying it.
type Candidate struct {
	Path     string
	Category Category
	Repo     protocol.Address
	Latest   nostr.Event
}

// RouteBuilder turns a relay hint (possibly empty), a repo address and a
// section into a UI path. The engine treats the result as opaque.
type RouteBuilder func(relayHint string, addr protocol.Address, section string) string

// Engine recomputes notification candidates from scratch on every call.
// It holds no derived state of its own, so out-of-order or duplicated event
// arrival self-heals on the next Derive.
type Engine struct {
	Store         *store.Store
	Routes        RouteBuilder
	DefaultRelays []string
	UserPubKey    string
}

// Derive computes the current candidate set for prefs. An empty preference
// map short-circuits to nothing.
func (e *Engine) Derive(prefs watch.Prefs) []Candidate {
	if len(prefs.Repos) == 0 {
		return nil
	}

	index := groups.NewIndex(e.Store.ByKind(protocol.KindRepoAnnouncement))

	watched := maps.Keys(prefs.Repos)
	sort.Strings(watched)

	var candidates []Candidate
	for _, watchedAddr := range watched {
		addr, ok := protocol.ParseAddress(watchedAddr)
		if !ok {
			continue
		}
		opts := prefs.Repos[watchedAddr]
		latest := e.deriveRepo(index, addr, opts)
		if len(latest) == 0 {
			continue
		}
		routes := e.displayRoutes(index, addr)

		cats := maps.Keys(latest)
		sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
		for _, cat := range cats {
			for _, route := range routes {
				candidates = append(candidates, Candidate{
					Path:     e.Routes(route, addr, e.section(cat, latest[cat])),
					Category: cat,
					Repo:     addr,
					Latest:   latest[cat],
				})
			}
		}
	}
	return candidates
}

// deriveRepo keeps the latest qualifying event per category for one watched
// repo, fanning out over its effective addresses so activity on a recognized
// co-maintainer's mirror counts too. Events authored by the user are skipped.
func (e *Engine) deriveRepo(index *groups.Index, addr protocol.Address, opts watch.Options) map[Category]nostr.Event {
	effective := index.EffectiveAddresses(addr)
	if len(effective) == 0 {
		// Announcement not (yet) known; still watch the literal address.
		effective = []protocol.Address{addr}
	}
	maintainers := make(map[string]bool)
	for _, pk := range index.EffectiveMaintainers(addr) {
		maintainers[pk] = true
	}
	if len(maintainers) == 0 {
		maintainers[addr.PubKey] = true
	}

	latest := make(map[Category]nostr.Event)
	keep := func(cat Category, event nostr.Event) {
		if event.PubKey == e.UserPubKey {
			return
		}
		existing, seen := latest[cat]
		if !seen || newerThan(event, existing) {
			latest[cat] = event
		}
	}

	for _, effAddr := range effective {
		for _, event := range e.Store.ReferencingAddress(effAddr) {
			switch {
			case event.Kind == protocol.KindIssue:
				if opts.NewIssues {
					keep(CategoryNewIssue, event)
				}
			case event.Kind == protocol.KindPatch:
				// A patch referencing an earlier patch is a revision of it;
				// a patch with no patch parent opens a new proposal.
				if e.isPatchUpdate(event) {
					if opts.PatchUpdates {
						keep(CategoryPatchUpdate, event)
					}
				} else if opts.NewPatches {
					keep(CategoryNewPatch, event)
				}
			case event.Kind == protocol.KindComment:
				if cat, ok := e.commentCategory(event); ok {
					if (cat == CategoryIssueComment && opts.IssueComments) ||
						(cat == CategoryPatchComment && opts.PatchComments) {
						keep(cat, event)
					}
				}
			case protocol.IsStatusKind(event.Kind):
				if opts.WantsStatusKind(event.Kind) && e.statusAuthorized(event, maintainers) {
					keep(CategoryStatus, event)
				}
			case event.Kind == protocol.KindLabel:
				view, ok := protocol.ParseLabelView(event)
				if !ok {
					continue
				}
				if opts.Assignments && view.HasValue(protocol.RoleNamespace, protocol.RoleAssignee) {
					keep(CategoryAssignment, event)
				}
				if opts.Reviews && view.HasValue(protocol.RoleNamespace, protocol.RoleReviewer) {
					keep(CategoryReview, event)
				}
			}
		}
	}
	return latest
}

// section routes a badge under issues or patches. Categories that can sit on
// either thread type classify by the root's kind, same as commentCategory.
func (e *Engine) section(cat Category, event nostr.Event) string {
	switch cat {
	case CategoryStatus, CategoryAssignment, CategoryReview:
		for _, rootID := range protocol.RootReferences(event) {
			root, ok := e.Store.ByID(rootID)
			if !ok {
				continue
			}
			switch root.Kind {
			case protocol.KindIssue:
				return "issues"
			case protocol.KindPatch:
				return "patches"
			}
		}
	}
	return cat.Section()
}

// commentCategory classifies a comment by the kind of the root it replies to.
// Comments whose root is not materialized yet are excluded rather than
// guessed at; they qualify on a later recompute once the root arrives.
func (e *Engine) commentCategory(event nostr.Event) (Category, bool) {
	for _, rootID := range protocol.RootReferences(event) {
		root, ok := e.Store.ByID(rootID)
		if !ok {
			continue
		}
		switch root.Kind {
		case protocol.KindIssue:
			return CategoryIssueComment, true
		case protocol.KindPatch:
			return CategoryPatchComment, true
		}
	}
	return "", false
}

func (e *Engine) isPatchUpdate(event nostr.Event) bool {
	for _, rootID := range protocol.RootReferences(event) {
		if root, ok := e.Store.ByID(rootID); ok && root.Kind == protocol.KindPatch {
			return true
		}
	}
	return false
}

// statusAuthorized keeps status badges limited to events a status resolution
// would actually consider: published by a maintainer or by the root author.
func (e *Engine) statusAuthorized(event nostr.Event, maintainers map[string]bool) bool {
	if maintainers[event.PubKey] {
		return true
	}
	for _, rootID := range protocol.RootReferences(event) {
		if root, ok := e.Store.ByID(rootID); ok && root.PubKey == event.PubKey {
			return true
		}
	}
	return false
}

// displayRoutes resolves the relay hints a repo's routes are encoded with:
// the announcement's own declared relays first, then the unhinted form, then
// the platform default relays when the announcement declares none.
func (e *Engine) displayRoutes(index *groups.Index, addr protocol.Address) []string {
	var hints []string
	if ann, ok := index.Announcement(addr); ok && len(ann.Relays) > 0 {
		hints = append(hints, ann.Relays...)
	}
	hints = append(hints, "")
	if len(hints) == 1 {
		hints = append(hints, e.DefaultRelays...)
	}

	seen := make(map[string]bool, len(hints))
	routes := hints[:0]
	for _, hint := range hints {
		if !seen[hint] {
			seen[hint] = true
			routes = append(routes, hint)
		}
	}
	return routes
}

func newerThan(a, b nostr.Event) bool {
	if a.CreatedAt.Unix() != b.CreatedAt.Unix() {
		return a.CreatedAt.Unix() > b.CreatedAt.Unix()
	}
	return a.ID > b.ID
}
