package encryption

import "fmt"

// Params holds the tunables shared by key derivation and the cipher.
type Params struct {
	Iterations int // PBKDF2 rounds
	KeyLength  int // bytes; 32 selects AES-256
	SaltLength int
	IVLength   int
}

// DefaultParams returns the production parameters: PBKDF2-SHA-256 with
// 100,000 iterations, a 256-bit key, a 16-byte salt and a 12-byte GCM IV.
func DefaultParams() Params {
	return Params{
		Iterations: 100000,
		KeyLength:  32,
		SaltLength: 16,
		IVLength:   12,
	}
}

// Validate rejects parameter sets the primitives cannot use.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	}
	switch p.KeyLength {
	case 16, 24, 32:
	default:
		return fmt.Errorf("key length must be 16, 24 or 32 bytes, got %d", p.KeyLength)
	}
	if p.SaltLength < 8 {
		return fmt.Errorf("salt length must be at least 8 bytes, got %d", p.SaltLength)
	}
	if p.IVLength != 12 {
		// cipher.NewGCM only accepts the standard nonce size
		return fmt.Errorf("iv length must be 12 bytes, got %d", p.IVLength)
	}
	return nil
}
