package daemon

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
)

// selfCipher encrypts the watch-preference payload to the user's own pubkey
// with the NIP-04 shared secret, matching what the web client writes.
type selfCipher struct {
	shared []byte
}

// NewSelfCipher derives the self-encryption cipher from a hex secret key.
func NewSelfCipher(secretKey string) (*selfCipher, error) {
	pubKey, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("derive pubkey: %w", err)
	}
	shared, err := nip04.ComputeSharedSecret(pubKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("compute shared secret: %w", err)
	}
	return &selfCipher{shared: shared}, nil
}

func (c *selfCipher) Encrypt(plaintext string) (string, error) {
	return nip04.Encrypt(plaintext, c.shared)
}

func (c *selfCipher) Decrypt(ciphertext string) (string, error) {
	return nip04.Decrypt(ciphertext, c.shared)
}
