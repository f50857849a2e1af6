package protocol

const (
	KindRepoAnnouncement int = 30617 // NIP-34: Repository announcement (addressable by "d" tag)
	KindRepoState        int = 30618 // NIP-34: Repository state event with refs/commits
	KindPatch            int = 1617  // NIP-34: Patch
	KindIssue            int = 1621  // NIP-34: Issue
	KindComment          int = 1111  // NIP-22: Comment on issues/patches
	KindStatusOpen       int = 1630  // NIP-34: Status - open
	KindStatusApplied    int = 1631  // NIP-34: Status - applied/merged/resolved
	KindStatusClosed     int = 1632  // NIP-34: Status - closed
	KindStatusDraft      int = 1633  // NIP-34: Status - draft
	KindLabel            int = 1985  // NIP-32: Label
	KindAppData          int = 30078 // NIP-78: Application-specific data (watch preferences)
)

// RoleNamespace is the reserved label namespace carrying issue/patch role grants.
const RoleNamespace = "org.nostr.git.role"

const (
	RoleAssignee = "assignee"
	RoleReviewer = "reviewer"
)

// WatchPrefsIdentifier is the fixed "d" tag of the per-user watch preferences event.
const WatchPrefsIdentifier = "budabit/watch"

// IsStatusKind reports whether kind is one of the four NIP-34 status kinds.
func IsStatusKind(kind int) bool {
	return kind >= KindStatusOpen && kind <= KindStatusDraft
}

// StatusName returns a short human-readable name for a status kind.
func StatusName(kind int) string {
	switch kind {
	case KindStatusOpen:
		return "open"
	case KindStatusApplied:
		return "applied"
	case KindStatusClosed:
		return "closed"
	case KindStatusDraft:
		return "draft"
	}
	return "unknown"
}
