// Package labels merges the three label sources of an issue/patch (inline
// self labels, external NIP-32 label events, legacy "t" tags) into one
// canonical view, and extracts role grants from the reserved role namespace.
package labels

import (
	"strings"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Effective is the merged label view of one root event. Flat collapses every
// value from every source into one set; ByNamespace keeps values bucketed
// under their declared namespace, legacy "t" tags landing in the "" bucket.
type Effective struct {
	Flat        map[string]bool
	ByNamespace map[string]map[string]bool
}

// MergeEffective unions self-declared labels, external label events and
// legacy free-text tags. Duplicates collapse; merging the same inputs twice
// yields an identical result.
func MergeEffective(self map[string][]string, external []protocol.LabelView, legacy []string) Effective {
	merged := Effective{
		Flat:        make(map[string]bool),
		ByNamespace: make(map[string]map[string]bool),
	}
	add := func(namespace, value string) {
		if value == "" {
			return
		}
		merged.Flat[value] = true
		bucket := merged.ByNamespace[namespace]
		if bucket == nil {
			bucket = make(map[string]bool)
			merged.ByNamespace[namespace] = bucket
		}
		bucket[value] = true
	}

	for namespace, values := range self {
		for _, value := range values {
			add(namespace, value)
		}
	}
	for _, view := range external {
		for namespace, values := range view.Values {
			for _, value := range values {
				add(namespace, value)
			}
		}
	}
	for _, value := range legacy {
		add("", value)
	}
	return merged
}

// ToNaturalLabel strips a value down to its display form: everything up to
// and including the last "/" goes, else a single leading "#". Presentation
// only; filtering keeps working on the namespaced value.
func ToNaturalLabel(value string) string {
	if i := strings.LastIndex(value, "/"); i >= 0 {
		return value[i+1:]
	}
	return strings.TrimPrefix(value, "#")
}
