package encryption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Codec encrypts and decrypts conversation content for storage.
type Codec struct {
	salts   *SaltStore
	deriver *KeyDeriver
	cipher  *Cipher
	ring    KeyRing
	now     func() time.Time
}

// Options configures NewCodec. Zero values fall back to DefaultParams and
// DefaultKeyRing.
type Options struct {
	Params  Params
	KeyRing KeyRing
}

func NewCodec(repo SaltRepository, opts Options) (*Codec, error) {
	params := opts.Params
	if params == (Params{}) {
		params = DefaultParams()
	}
	ring := opts.KeyRing
	if len(ring) == 0 {
		ring = DefaultKeyRing()
	}
	if ring[0].ReadOnly {
		return nil, fmt.Errorf("key recipe %q is read-only and cannot lead the key ring", ring[0].Tag)
	}

	salts, err := NewSaltStore(repo, params)
	if err != nil {
		return nil, err
	}
	deriver, err := NewKeyDeriver(params)
	if err != nil {
		return nil, err
	}
	c, err := NewCipher(params)
	if err != nil {
		return nil, err
	}
	return &Codec{
		salts:   salts,
		deriver: deriver,
		cipher:  c,
		ring:    ring,
		now:     time.Now,
	}, nil
}

// DecodedContent is what was stored in a conversation's content column.
type DecodedContent struct {
	JSON   json.RawMessage // decrypted payload
	Raw    string          // content that was never encrypted
	KeyTag string          // recipe that opened the envelope
}

func (d DecodedContent) Encrypted() bool {
	return d.JSON != nil
}

// Value returns the content as JSON. Unencrypted text that is not itself
// JSON is returned as a JSON string.
func (d DecodedContent) Value() json.RawMessage {
	if d.Encrypted() {
		return d.JSON
	}
	if json.Valid([]byte(d.Raw)) {
		return json.RawMessage(d.Raw)
	}
	b, _ := json.Marshal(d.Raw)
	return b
}

// Decode unmarshals the content into v.
func (d DecodedContent) Decode(v any) error {
	return json.Unmarshal(d.Value(), v)
}

// EncryptConversationContent serializes content to JSON and seals it under
// the user's current key. The result is the envelope as JSON text.
func (c *Codec) EncryptConversationContent(ctx context.Context, content any, userID string) (string, error) {
	plaintext, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize conversation: %w", err)
	}

	salt, err := c.salts.Salt(ctx, userID)
	if err != nil {
		return "", err
	}

	writer := c.ring[0]
	sess, _ := SessionFromContext(ctx)
	secret, ok := writer.Secret(userID, sess, c.now())
	if !ok || writer.ReadOnly {
		return "", fmt.Errorf("key recipe %q is not available for writes", writer.Tag)
	}
	key, err := c.deriver.Derive(secret, salt)
	if err != nil {
		return "", err
	}

	env, err := c.cipher.Encrypt(key, plaintext)
	if err != nil {
		return "", err
	}
	return env.Marshal()
}

// DecryptConversationContent reverses EncryptConversationContent. Stored
// text that is not an envelope is returned unchanged in Raw. Envelopes are
// tried against every recipe in the key ring; ErrKeyChanged is returned when
// none of them authenticates, ErrDecryptionFailed for any other failure.
func (c *Codec) DecryptConversationContent(ctx context.Context, stored string, userID string) (DecodedContent, error) {
	payload, err := ParseStoredPayload(stored)
	if err != nil {
		return DecodedContent{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	var env Envelope
	switch p := payload.(type) {
	case PlaintextLegacy:
		return DecodedContent{Raw: p.Text}, nil
	case EnvelopeV1:
		env = p.Envelope
	default:
		return DecodedContent{}, fmt.Errorf("%w: unknown payload %T", ErrDecryptionFailed, payload)
	}

	salt, err := c.salts.Salt(ctx, userID)
	if err != nil {
		return DecodedContent{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	sess, _ := SessionFromContext(ctx)
	now := c.now()
	for i, recipe := range c.ring {
		secret, ok := recipe.Secret(userID, sess, now)
		if !ok {
			continue
		}
		key, err := c.deriver.Derive(secret, salt)
		if err != nil {
			return DecodedContent{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}

		plaintext, err := c.cipher.Decrypt(key, env)
		if errors.Is(err, ErrAuthentication) {
			continue
		}
		if err != nil {
			return DecodedContent{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
		if !json.Valid(plaintext) {
			return DecodedContent{}, fmt.Errorf("%w: decrypted content is not JSON", ErrDecryptionFailed)
		}

		if i > 0 {
			log.Warn().
				Str("user_id", userID).
				Str("key_tag", recipe.Tag).
				Msg("Conversation decrypted with a fallback key; content should be re-encrypted")
		}
		return DecodedContent{JSON: plaintext, KeyTag: recipe.Tag}, nil
	}

	log.Error().Str("user_id", userID).Msg("No key in the ring could decrypt conversation")
	return DecodedContent{}, ErrKeyChanged
}
