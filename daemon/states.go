package daemon

import (
	"context"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/groups"
	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
	"github.com/Pleb5/flotilla-budabit-sub002/refdiff"
	"github.com/Pleb5/flotilla-budabit-sub002/refstate"
)

// PublishState publishes a repo state event and records it as an optimistic
// overlay entry, so derived views reflect the publish immediately instead of
// waiting for the relay echo.
func (c *Context) PublishState(ctx context.Context, addr protocol.Address, event nostr.Event) error {
	if err := c.Pool.Publish(ctx, event); err != nil {
		return err
	}
	c.mu.Lock()
	if c.optimistic == nil {
		c.optimistic = make(map[string]nostr.Event)
	}
	c.optimistic[addr.String()] = event
	c.mu.Unlock()
	return nil
}

// LatestStates returns the newest known state event per repository
// coordinate: the subscribed baseline with in-flight publishes laid over it.
// An optimistic entry holds its spot on equal timestamps but yields to a
// genuinely newer subscribed state.
func (c *Context) LatestStates() map[string]nostr.Event {
	base := make(map[string]nostr.Event)
	for _, event := range c.Store.ByKind(protocol.KindRepoState) {
		identifier := protocol.TagValue(event, "d")
		if identifier == "" {
			continue
		}
		coordinate := protocol.Address{
			Kind:       protocol.KindRepoState,
			PubKey:     event.PubKey,
			Identifier: identifier,
		}.String()
		existing, seen := base[coordinate]
		if !seen || event.CreatedAt.Unix() > existing.CreatedAt.Unix() ||
			(event.CreatedAt.Unix() == existing.CreatedAt.Unix() && event.ID > existing.ID) {
			base[coordinate] = event
		}
	}

	c.mu.Lock()
	optimistic := make(map[string]nostr.Event, len(c.optimistic))
	for coordinate, event := range c.optimistic {
		optimistic[coordinate] = event
	}
	c.mu.Unlock()

	return refdiff.OverlayLatestRepoStates(base, optimistic)
}

// MergedRefs resolves the authoritative ref map for one announcement
// address: effective maintainers first, then their state events merged with
// authority-then-recency precedence.
func (c *Context) MergedRefs(addr protocol.Address) (refstate.Merged, []string) {
	index := groups.NewIndex(c.Store.ByKind(protocol.KindRepoAnnouncement))
	maintainers := index.EffectiveMaintainers(addr)
	if len(maintainers) == 0 {
		maintainers = []string{addr.PubKey}
	}

	var states []nostr.Event
	for _, event := range c.LatestStates() {
		if protocol.TagValue(event, "d") == addr.Identifier {
			states = append(states, event)
		}
	}
	return refstate.MergeByMaintainers(maintainers, states), maintainers
}
