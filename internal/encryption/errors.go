package encryption

import "errors"

var (
	// ErrKeyChanged is returned when no key in the ring can open a stored envelope.
	// Callers surface it as a user-actionable message.
	ErrKeyChanged = errors.New("encryption key has changed; contact support")

	// ErrDecryptionFailed wraps every other failure while opening stored content.
	ErrDecryptionFailed = errors.New("failed to load conversation")

	// ErrAuthentication is returned by the cipher when the GCM tag check fails.
	ErrAuthentication = errors.New("authentication failed")

	// ErrMalformedEnvelope is returned when an envelope cannot be decoded.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrUnsupportedVersion is returned for envelopes written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported envelope version")

	ErrEmptySecret = errors.New("key derivation secret cannot be empty")
	ErrInvalidSalt = errors.New("invalid salt")
	ErrEmptyUserID = errors.New("user ID cannot be empty")
)
