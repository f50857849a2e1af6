package notify

import (
	"log"
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/maps"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/store"
	"github.com/Pleb5/flotilla-budabit-sub002/transport"
)

// activityKinds are the event kinds a live repo watch subscribes to.
var activityKinds = []int{
	protocol.KindIssue,
	protocol.KindPatch,
	protocol.KindComment,
	protocol.KindStatusOpen,
	protocol.KindStatusApplied,
	protocol.KindStatusClosed,
	protocol.KindStatusDraft,
	protocol.KindLabel,
}

type liveSub struct {
	token  string
	cancel transport.CancelFunc
}

// SubManager keeps one live subscription per watched repository address.
// When the watched set changes, subscriptions for dropped repos are
// cancelled before any new ones are issued, so the live set never grows
// beyond the watched set.
type SubManager struct {
	Transport transport.Transport
	Store     *store.Store

	active map[string]liveSub // keyed by address coordinate
}

// Sync reconciles the live subscriptions against the wanted address set.
func (m *SubManager) Sync(addrs []protocol.Address) error {
	if m.active == nil {
		m.active = make(map[string]liveSub)
	}

	wanted := make(map[string]protocol.Address, len(addrs))
	for _, addr := range addrs {
		wanted[addr.String()] = addr
	}

	// Cancel first: stale tokens must be gone before new ones are issued.
	for coordinate, sub := range m.active {
		if _, still := wanted[coordinate]; !still {
			sub.cancel()
			delete(m.active, coordinate)
			log.Printf("[Notify] cancelled watch %s on %s\n", sub.token, coordinate)
		}
	}

	coordinates := maps.Keys(wanted)
	sort.Strings(coordinates)
	for _, coordinate := range coordinates {
		if _, running := m.active[coordinate]; running {
			continue
		}
		since := time.Now()
		filters := nostr.Filters{{
			Kinds: activityKinds,
			Since: &since,
			Tags:  nostr.TagMap{"a": []string{coordinate}},
		}}
		cancel, err := m.Transport.Request(filters, func(event nostr.Event) {
			m.Store.Add(event)
		})
		if err != nil {
			return err
		}
		token := ulid.Make().String()
		m.active[coordinate] = liveSub{token: token, cancel: cancel}
		log.Printf("[Notify] watching %s as %s\n", coordinate, token)
	}
	return nil
}

// Close cancels every live subscription.
func (m *SubManager) Close() {
	for coordinate, sub := range m.active {
		sub.cancel()
		delete(m.active, coordinate)
	}
}
