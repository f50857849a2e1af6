package labels

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// RoleAssignments holds the pubkeys granted each role on one root event.
type RoleAssignments struct {
	Assignees map[string]bool
	Reviewers map[string]bool
}

func newRoleAssignments() RoleAssignments {
	return RoleAssignments{
		Assignees: make(map[string]bool),
		Reviewers: make(map[string]bool),
	}
}

// ExtractRoleAssignments collects role grants from label events carrying the
// reserved role namespace. When rootID is non-empty only events referencing
// that root contribute. A single event may grant both roles at once, to every
// pubkey it "p"-tags.
func ExtractRoleAssignments(events []nostr.Event, rootID string) RoleAssignments {
	roles := newRoleAssignments()
	for _, event := range events {
		view, ok := roleView(event)
		if !ok {
			continue
		}
		if rootID != "" && !references(view, rootID) {
			continue
		}
		apply(&roles, view)
	}
	return roles
}

// ExtractRoleAssignmentsByRoot is the batch variant: contributions are
// grouped per distinct root reference, so one event assigning roles on
// several roots counts against each of them.
func ExtractRoleAssignmentsByRoot(events []nostr.Event) map[string]RoleAssignments {
	byRoot := make(map[string]RoleAssignments)
	for _, event := range events {
		view, ok := roleView(event)
		if !ok {
			continue
		}
		for _, rootID := range view.Roots {
			roles, seen := byRoot[rootID]
			if !seen {
				roles = newRoleAssignments()
				byRoot[rootID] = roles
			}
			apply(&roles, view)
		}
	}
	return byRoot
}

func roleView(event nostr.Event) (protocol.LabelView, bool) {
	view, ok := protocol.ParseLabelView(event)
	if !ok {
		return protocol.LabelView{}, false
	}
	for _, namespace := range view.Namespaces {
		if namespace == protocol.RoleNamespace {
			return view, true
		}
	}
	return protocol.LabelView{}, false
}

func references(view protocol.LabelView, rootID string) bool {
	for _, id := range view.Roots {
		if id == rootID {
			return true
		}
	}
	return false
}

func apply(roles *RoleAssignments, view protocol.LabelView) {
	grantAssignee := view.HasValue(protocol.RoleNamespace, protocol.RoleAssignee)
	grantReviewer := view.HasValue(protocol.RoleNamespace, protocol.RoleReviewer)
	for _, pk := range view.PubKeys {
		if grantAssignee {
			roles.Assignees[pk] = true
		}
		if grantReviewer {
			roles.Reviewers[pk] = true
		}
	}
}
