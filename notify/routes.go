package notify

import (
	"net/url"
	"strings"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// NewPathBuilder returns the default RouteBuilder, producing paths like
//
//	<prefix>/30617:<pubkey>:<identifier>/issues?relay=wss%3A%2F%2F...
//
// The real front-end swaps in its own naddr-encoding builder; the engine
// never looks inside the produced string.
func NewPathBuilder(prefix string) RouteBuilder {
	prefix = strings.TrimSuffix(prefix, "/")
	return func(relayHint string, addr protocol.Address, section string) string {
		path := prefix + "/" + addr.String()
		if section != "" {
			path += "/" + section
		}
		if relayHint != "" {
			path += "?relay=" + url.QueryEscape(relayHint)
		}
		return path
	}
}
