// Package watch models per-user, per-repository subscription preferences and
// their encrypted persisted form.
package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

// Options are the notification categories a user has opted into for one
// repository address. The zero value is NOT the default; use DefaultOptions
// or Normalize.
type Options struct {
	NewIssues     bool
	IssueComments bool
	NewPatches    bool
	PatchComments bool
	PatchUpdates  bool
	StatusOpen    bool
	StatusApplied bool
	StatusClosed  bool
	StatusDraft   bool
	Assignments   bool
	Reviews       bool
}

// DefaultOptions returns the documented defaults: everything on except
// comments, which are noisy enough to be opt-in.
func DefaultOptions() Options {
	return Options{
		NewIssues:     true,
		IssueComments: false,
		NewPatches:    true,
		PatchComments: false,
		PatchUpdates:  true,
		StatusOpen:    true,
		StatusApplied: true,
		StatusClosed:  true,
		StatusDraft:   true,
		Assignments:   true,
		Reviews:       true,
	}
}

// RawOptions is the wire form of Options: every field optional, so payloads
// written by older clients keep decoding. Missing fields take the default.
type RawOptions struct {
	NewIssues     *bool `json:"newIssues,omitempty"`
	IssueComments *bool `json:"issueComments,omitempty"`
	NewPatches    *bool `json:"newPatches,omitempty"`
	PatchComments *bool `json:"patchComments,omitempty"`
	PatchUpdates  *bool `json:"patchUpdates,omitempty"`
	StatusOpen    *bool `json:"statusOpen,omitempty"`
	StatusApplied *bool `json:"statusApplied,omitempty"`
	StatusClosed  *bool `json:"statusClosed,omitempty"`
	StatusDraft   *bool `json:"statusDraft,omitempty"`
	Assignments   *bool `json:"assignments,omitempty"`
	Reviews       *bool `json:"reviews,omitempty"`
}

// Normalize fills a possibly-partial RawOptions into a fully-populated
// Options. Never fails: Normalize(nil) is DefaultOptions().
func Normalize(raw *RawOptions) Options {
	opts := DefaultOptions()
	if raw == nil {
		return opts
	}
	pick := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	pick(&opts.NewIssues, raw.NewIssues)
	pick(&opts.IssueComments, raw.IssueComments)
	pick(&opts.NewPatches, raw.NewPatches)
	pick(&opts.PatchComments, raw.PatchComments)
	pick(&opts.PatchUpdates, raw.PatchUpdates)
	pick(&opts.StatusOpen, raw.StatusOpen)
	pick(&opts.StatusApplied, raw.StatusApplied)
	pick(&opts.StatusClosed, raw.StatusClosed)
	pick(&opts.StatusDraft, raw.StatusDraft)
	pick(&opts.Assignments, raw.Assignments)
	pick(&opts.Reviews, raw.Reviews)
	return opts
}

// Raw converts Options back into the fully-explicit wire form.
func (o Options) Raw() RawOptions {
	b := func(v bool) *bool { return &v }
	return RawOptions{
		NewIssues:     b(o.NewIssues),
		IssueComments: b(o.IssueComments),
		NewPatches:    b(o.NewPatches),
		PatchComments: b(o.PatchComments),
		PatchUpdates:  b(o.PatchUpdates),
		StatusOpen:    b(o.StatusOpen),
		StatusApplied: b(o.StatusApplied),
		StatusClosed:  b(o.StatusClosed),
		StatusDraft:   b(o.StatusDraft),
		Assignments:   b(o.Assignments),
		Reviews:       b(o.Reviews),
	}
}

// WantsStatusKind maps a status event kind to the matching preference.
func (o Options) WantsStatusKind(kind int) bool {
	switch kind {
	case protocol.KindStatusOpen:
		return o.StatusOpen
	case protocol.KindStatusApplied:
		return o.StatusApplied
	case protocol.KindStatusClosed:
		return o.StatusClosed
	case protocol.KindStatusDraft:
		return o.StatusDraft
	}
	return false
}

// Prefs is the full per-user preference map, keyed by repository address
// coordinate ("30617:pubkey:identifier").
type Prefs struct {
	Version int
	Repos   map[string]Options
}

type rawPrefs struct {
	Version int                   `json:"version"`
	Repos   map[string]RawOptions `json:"repos"`
}

// PayloadVersion is the current persisted payload version.
const PayloadVersion = 1

// Cipher is the signer-owned encryption boundary for the persisted payload.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ErrDecrypt marks a preference payload that could not be decrypted. Callers
// must surface this instead of silently falling back to defaults: dropping
// preferences on a bad key is data loss, not "no preferences yet".
var ErrDecrypt = errors.New("watch preferences decrypt failed")

// Encode serializes prefs into the plaintext JSON payload.
func Encode(prefs Prefs) ([]byte, error) {
	raw := rawPrefs{
		Version: PayloadVersion,
		Repos:   make(map[string]RawOptions, len(prefs.Repos)),
	}
	for addr, opts := range prefs.Repos {
		raw.Repos[addr] = opts.Raw()
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal watch prefs: %w", err)
	}
	return payload, nil
}

// Decode parses a plaintext payload, normalizing every per-repo entry so
// partial payloads from older clients come back fully populated.
func Decode(payload []byte) (Prefs, error) {
	var raw rawPrefs
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Prefs{}, fmt.Errorf("unmarshal watch prefs: %w", err)
	}
	prefs := Prefs{
		Version: raw.Version,
		Repos:   make(map[string]Options, len(raw.Repos)),
	}
	for addr, rawOpts := range raw.Repos {
		opts := rawOpts
		prefs.Repos[addr] = Normalize(&opts)
	}
	return prefs, nil
}

// BuildPrefsEvent constructs the unsigned replaceable event persisting
// prefs, content encrypted by the caller's cipher.
func BuildPrefsEvent(prefs Prefs, cipher Cipher) (nostr.Event, error) {
	payload, err := Encode(prefs)
	if err != nil {
		return nostr.Event{}, err
	}
	content, err := cipher.Encrypt(string(payload))
	if err != nil {
		return nostr.Event{}, fmt.Errorf("encrypt watch prefs: %w", err)
	}
	return nostr.Event{
		CreatedAt: time.Now(),
		Kind:      protocol.KindAppData,
		Tags: nostr.Tags{
			{"d", protocol.WatchPrefsIdentifier},
		},
		Content: content,
	}, nil
}

// ParsePrefsEvent decrypts and decodes a persisted preference event.
// Decryption failures come back wrapping ErrDecrypt.
func ParsePrefsEvent(event nostr.Event, cipher Cipher) (Prefs, error) {
	plaintext, err := cipher.Decrypt(event.Content)
	if err != nil {
		return Prefs{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return Decode([]byte(plaintext))
}
