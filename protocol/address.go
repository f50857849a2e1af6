package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// Address identifies an addressable event by (kind, pubkey, "d" tag), the
// NIP-33 "kind:pubkey:identifier" coordinate.
type Address struct {
	Kind       int
	PubKey     string
	Identifier string
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%s:%s", a.Kind, a.PubKey, a.Identifier)
}

// ParseAddress parses "kind:pubkey:identifier". The identifier may itself
// contain colons. Returns ok=false on anything malformed.
func ParseAddress(s string) (Address, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Address{}, false
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil || kind < 0 {
		return Address{}, false
	}
	if len(parts[1]) != 64 {
		return Address{}, false
	}
	return Address{Kind: kind, PubKey: parts[1], Identifier: parts[2]}, true
}

// EventAddress returns the address of an addressable event, or ok=false when
// the event carries no "d" tag.
func EventAddress(event nostr.Event) (Address, bool) {
	identifier := TagValue(event, "d")
	if identifier == "" {
		return Address{}, false
	}
	return Address{Kind: event.Kind, PubKey: event.PubKey, Identifier: identifier}, true
}
