// Package transport is the boundary to relay networking: one-shot loads,
// live subscriptions and publishing. The reconciliation core never talks to
// relays directly; it only sees events a Transport has already delivered.
package transport

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// CancelFunc stops a live subscription. Safe to call more than once.
type CancelFunc func()

// Transport is implemented by the relay pool and by test fakes.
type Transport interface {
	// Load fetches everything currently matching filters and returns when
	// ctx expires. "Fetch failed" and "nothing there yet" are the same
	// outcome for callers: an empty slice.
	Load(ctx context.Context, filters nostr.Filters) ([]nostr.Event, error)

	// Request opens a live subscription, invoking onEvent for every
	// matching event until the returned CancelFunc is called.
	Request(filters nostr.Filters, onEvent func(nostr.Event)) (CancelFunc, error)
}

// Publisher sends signed-or-signable events out. The core only builds
// unsigned payloads; signing lives behind this boundary.
type Publisher interface {
	Publish(ctx context.Context, event nostr.Event) error
}
