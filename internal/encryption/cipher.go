package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Cipher performs AES-GCM encryption of UTF-8 payloads into Envelopes.
type Cipher struct {
	params Params
	rand   io.Reader
}

func NewCipher(params Params) (*Cipher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Cipher{params: params, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under key with a freshly drawn IV. Two calls with
// the same input never share an IV.
func (c *Cipher) Encrypt(key *Key, plaintext []byte) (Envelope, error) {
	iv := make([]byte, c.params.IVLength)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := key.aead.Seal(nil, iv, plaintext, nil)
	return Envelope{
		Version: CurrentEnvelopeVersion,
		Data:    base64.StdEncoding.EncodeToString(sealed),
		IV:      base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt opens env under key. A wrong key and a tampered ciphertext are
// indistinguishable and both yield ErrAuthentication.
func (c *Cipher) Decrypt(key *Key, env Envelope) ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedEnvelope, err)
	}
	if len(iv) != c.params.IVLength {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedEnvelope, c.params.IVLength, len(iv))
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformedEnvelope, err)
	}

	plaintext, err := key.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
