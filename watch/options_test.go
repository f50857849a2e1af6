package watch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Pleb5/flotilla-budabit-sub002/protocol"
)

func TestNormalizeTotality(t *testing.T) {
	no := false
	yes := true

	cases := []struct {
		name string
		raw  *RawOptions
		want Options
	}{
		{
			name: "nil is the defaults",
			raw:  nil,
			want: DefaultOptions(),
		},
		{
			name: "empty is the defaults",
			raw:  &RawOptions{},
			want: DefaultOptions(),
		},
		{
			name: "partial override keeps other defaults",
			raw:  &RawOptions{NewIssues: &no, IssueComments: &yes},
			want: func() Options {
				o := DefaultOptions()
				o.NewIssues = false
				o.IssueComments = true
				return o
			}(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Normalize(tc.raw)); diff != "" {
				t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultsCommentsOff(t *testing.T) {
	defaults := DefaultOptions()
	if defaults.IssueComments || defaults.PatchComments {
		t.Fatal("comment categories must default off")
	}
	if !defaults.NewIssues || !defaults.NewPatches || !defaults.PatchUpdates ||
		!defaults.StatusOpen || !defaults.StatusApplied || !defaults.StatusClosed ||
		!defaults.StatusDraft || !defaults.Assignments || !defaults.Reviews {
		t.Fatal("every non-comment category must default on")
	}
}

func TestDecodeForwardCompatible(t *testing.T) {
	// An older client wrote a payload missing most fields.
	payload := []byte(`{"version":1,"repos":{"30617:pk:repo":{"newIssues":false}}}`)
	prefs, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	opts, ok := prefs.Repos["30617:pk:repo"]
	if !ok {
		t.Fatal("repo entry missing after decode")
	}
	if opts.NewIssues {
		t.Fatal("explicit false was lost")
	}
	if !opts.NewPatches {
		t.Fatal("missing field did not take its default")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Prefs{
		Version: PayloadVersion,
		Repos: map[string]Options{
			"30617:pk:repo": func() Options {
				o := DefaultOptions()
				o.StatusDraft = false
				return o
			}(),
		},
	}
	payload, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("malformed payload decoded without error")
	}
}

func TestWantsStatusKind(t *testing.T) {
	opts := DefaultOptions()
	opts.StatusClosed = false
	if !opts.WantsStatusKind(protocol.KindStatusOpen) {
		t.Fatal("open should be wanted")
	}
	if opts.WantsStatusKind(protocol.KindStatusClosed) {
		t.Fatal("closed should not be wanted")
	}
	if opts.WantsStatusKind(protocol.KindIssue) {
		t.Fatal("non-status kind should never be wanted")
	}
}

// reverseCipher is a trivial reversible cipher for round-trip tests.
type reverseCipher struct{}

func (reverseCipher) Encrypt(plaintext string) (string, error) {
	return reverse(plaintext), nil
}

func (reverseCipher) Decrypt(ciphertext string) (string, error) {
	return reverse(ciphertext), nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

type failingCipher struct{}

func (failingCipher) Encrypt(string) (string, error) { return "", errors.New("nope") }
func (failingCipher) Decrypt(string) (string, error) { return "", errors.New("nope") }

func TestPrefsEventRoundTrip(t *testing.T) {
	prefs := Prefs{
		Version: PayloadVersion,
		Repos:   map[string]Options{"30617:pk:repo": DefaultOptions()},
	}
	event, err := BuildPrefsEvent(prefs, reverseCipher{})
	if err != nil {
		t.Fatal(err)
	}
	if event.Kind != protocol.KindAppData {
		t.Fatalf("event kind = %d, want %d", event.Kind, protocol.KindAppData)
	}
	if got := protocol.TagValue(event, "d"); got != protocol.WatchPrefsIdentifier {
		t.Fatalf("d tag = %q, want %q", got, protocol.WatchPrefsIdentifier)
	}
	if json.Valid([]byte(event.Content)) {
		t.Fatal("event content is plaintext JSON; expected ciphertext")
	}

	out, err := ParsePrefsEvent(event, reverseCipher{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(prefs, out); diff != "" {
		t.Fatalf("prefs round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestParsePrefsEventDecryptFailure(t *testing.T) {
	event, err := BuildPrefsEvent(Prefs{Version: PayloadVersion}, reverseCipher{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParsePrefsEvent(event, failingCipher{})
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("err = %v, want ErrDecrypt", err)
	}
}
