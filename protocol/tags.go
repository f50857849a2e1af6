package protocol

import (
	"github.com/nbd-wtf/go-nostr"
)

// TagValue returns the first value of the first tag named name, or "".
func TagValue(event nostr.Event, name string) string {
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns the first value of every tag named name.
func TagValues(event nostr.Event, name string) []string {
	var values []string
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == name && tag[1] != "" {
			values = append(values, tag[1])
		}
	}
	return values
}

// TagRest returns all values of the first tag named name. Used for tags that
// carry a variadic payload, e.g. ["maintainers", pk1, pk2] or ["relays", url1, url2].
func TagRest(event nostr.Event, name string) []string {
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == name {
			var values []string
			for _, v := range tag[1:] {
				if v != "" {
					values = append(values, v)
				}
			}
			return values
		}
	}
	return nil
}

// HasTag reports whether a tag named name is present, regardless of value.
func HasTag(event nostr.Event, name string) bool {
	for _, tag := range event.Tags {
		if len(tag) >= 1 && tag[0] == name {
			return true
		}
	}
	return false
}

// RootReferences returns the event ids this event points at as roots, from
// uppercase "E" tags first (NIP-22 root markers), falling back to "e" tags.
func RootReferences(event nostr.Event) []string {
	if refs := TagValues(event, "E"); len(refs) > 0 {
		return refs
	}
	return TagValues(event, "e")
}

// AddressReferences returns the "a" tag values on the event.
func AddressReferences(event nostr.Event) []string {
	return TagValues(event, "a")
}
