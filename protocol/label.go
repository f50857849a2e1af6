package protocol

import (
	"github.com/nbd-wtf/go-nostr"
)

// LabelView is the parsed view of a kind 1985 NIP-32 label event: the declared
// namespaces ("L" tags), values bucketed per namespace ("l" tags), and the
// roots and pubkeys the label applies to.
type LabelView struct {
	Event      nostr.Event
	Namespaces []string
	Values     map[string][]string // namespace -> label values
	Roots      []string            // referenced root event ids ("e"/"E")
	Addresses  []string            // referenced addressable coordinates ("a")
	PubKeys    []string            // subject pubkeys ("p")
}

// ParseLabelView extracts a LabelView from a label event. An "l" tag without
// an explicit namespace falls into the unnamespaced "" bucket. Returns
// ok=false for non-1985 events.
func ParseLabelView(event nostr.Event) (LabelView, bool) {
	if event.Kind != KindLabel {
		return LabelView{}, false
	}
	view := LabelView{
		Event:      event,
		Namespaces: TagValues(event, "L"),
		Values:     make(map[string][]string),
		Roots:      RootReferences(event),
		Addresses:  AddressReferences(event),
		PubKeys:    TagValues(event, "p"),
	}
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == "l" && tag[1] != "" {
			namespace := ""
			if len(tag) >= 3 {
				namespace = tag[2]
			}
			view.Values[namespace] = append(view.Values[namespace], tag[1])
		}
	}
	return view, true
}

// HasValue reports whether the label event carries value under namespace.
func (v LabelView) HasValue(namespace, value string) bool {
	for _, got := range v.Values[namespace] {
		if got == value {
			return true
		}
	}
	return false
}

// SelfLabels returns the label values an event declares inline on itself,
// bucketed by namespace the same way ParseLabelView buckets external labels.
func SelfLabels(event nostr.Event) map[string][]string {
	values := make(map[string][]string)
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == "l" && tag[1] != "" {
			namespace := ""
			if len(tag) >= 3 {
				namespace = tag[2]
			}
			values[namespace] = append(values[namespace], tag[1])
		}
	}
	return values
}

// LegacyTags returns the free-form hashtag-style "t" tag values on an event.
func LegacyTags(event nostr.Event) []string {
	return TagValues(event, "t")
}
