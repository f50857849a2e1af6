package transport

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// Pool is a Transport/Publisher backed by a go-nostr relay pool.
type Pool struct {
	mu     sync.Mutex
	pool   *nostr.RelayPool
	relays []string
}

// Connect brings up a relay pool. Individual relay failures are logged and
// tolerated; at least one relay must connect.
func Connect(relays []string, secretKey *string) (*Pool, error) {
	pool := nostr.NewRelayPool()
	pool.SecretKey = secretKey

	connected := 0
	for _, relay := range relays {
		cherr := pool.Add(relay, nostr.SimplePolicy{Read: true, Write: true})
		if err := <-cherr; err != nil {
			log.Printf("[Transport] relay connect failed: %s: %v\n", relay, err)
		} else {
			connected++
			log.Printf("[Transport] relay connected: %s\n", relay)
		}
	}
	if connected == 0 {
		return nil, fmt.Errorf("no relays connected")
	}

	go func() {
		for notice := range pool.Notices {
			log.Printf("[Transport] notice: %s '%s'\n", notice.Relay, notice.Message)
		}
	}()

	return &Pool{pool: pool, relays: relays}, nil
}

// Load subscribes, collects unique events until ctx is done, and returns
// whatever arrived. Relay hiccups surface as fewer events, not as errors.
func (p *Pool) Load(ctx context.Context, filters nostr.Filters) ([]nostr.Event, error) {
	p.mu.Lock()
	_, sub := p.pool.Sub(filters)
	p.mu.Unlock()

	events := nostr.Unique(sub)
	var collected []nostr.Event
	for {
		select {
		case <-ctx.Done():
			return collected, nil
		case event, ok := <-events:
			if !ok {
				return collected, nil
			}
			collected = append(collected, event)
		}
	}
}

// Request opens a live subscription. The pool API offers no per-subscription
// teardown, so cancel only stops delivery to onEvent; the underlying relay
// subscription is shed on the next Reconnect.
func (p *Pool) Request(filters nostr.Filters, onEvent func(nostr.Event)) (CancelFunc, error) {
	p.mu.Lock()
	_, sub := p.pool.Sub(filters)
	p.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	go func() {
		events := nostr.Unique(sub)
		for {
			select {
			case <-done:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				onEvent(event)
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }, nil
}

// Publish sends the event to every write relay, collecting acceptance
// statuses until ctx expires. Errors only when no relay accepted the event
// within the ctx window.
func (p *Pool) Publish(ctx context.Context, event nostr.Event) error {
	p.mu.Lock()
	_, statuses, err := p.pool.PublishEvent(&event)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	published := false
	for {
		select {
		case <-ctx.Done():
			if published {
				return nil
			}
			return fmt.Errorf("event was not accepted by any relay")
		case status := <-statuses:
			switch status.Status {
			case nostr.PublishStatusSent, nostr.PublishStatusSucceeded:
				published = true
				log.Printf("[Transport] published to '%s'\n", status.Relay)
			case nostr.PublishStatusFailed:
				log.Printf("[Transport] publish failed on '%s'\n", status.Relay)
			}
		}
	}
}

// Reconnect tears down every relay connection and dials again. The pool API
// has no per-subscription cancel, so this is how stale live subscriptions
// are actually shed when the watched set changes.
func (p *Pool) Reconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pool.Relays.Range(func(key string, relay *nostr.Relay) bool {
		p.pool.Remove(key)
		relay.Close()
		return true
	})

	connected := 0
	for _, relay := range p.relays {
		cherr := p.pool.Add(relay, nostr.SimplePolicy{Read: true, Write: true})
		if err := <-cherr; err != nil {
			log.Printf("[Transport] relay reconnect failed: %s: %v\n", relay, err)
		} else {
			connected++
		}
	}
	if connected == 0 {
		return fmt.Errorf("no relays reconnected")
	}
	return nil
}
