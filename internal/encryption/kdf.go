package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key is a derived AES-GCM key. The key material is never exposed; a Key
// can only be handed to a Cipher.
type Key struct {
	aead cipher.AEAD
}

// KeyDeriver turns a secret string and a per-user salt into a Key.
type KeyDeriver struct {
	params Params
}

func NewKeyDeriver(params Params) (*KeyDeriver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &KeyDeriver{params: params}, nil
}

// Derive runs PBKDF2-HMAC-SHA-256 over secret and salt. The same inputs
// always produce the same key.
func (d *KeyDeriver) Derive(secret string, salt []byte) (*Key, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if len(salt) != d.params.SaltLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSalt, d.params.SaltLength, len(salt))
	}

	raw := pbkdf2.Key([]byte(secret), salt, d.params.Iterations, d.params.KeyLength, sha256.New)
	defer clear(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Key{aead: aead}, nil
}
