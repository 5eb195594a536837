package encryption

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LegacySessionTag identifies LegacySessionRecipe and is reserved.
const LegacySessionTag = "legacy-session"

// KeyRecipe builds the key derivation secret for one key version. Secret
// returns false when the recipe cannot be used for this call. A ReadOnly
// recipe may open existing envelopes but never seals new ones.
type KeyRecipe struct {
	Tag      string
	ReadOnly bool
	Secret   func(userID string, sess Session, now time.Time) (string, bool)
}

// KeyRing is an ordered list of recipes. The first one is used for writes;
// reads try each in turn.
type KeyRing []KeyRecipe

// CurrentRecipe derives from the user ID and a version tag. It is stable
// across sessions.
func CurrentRecipe(tag string) KeyRecipe {
	return KeyRecipe{
		Tag: tag,
		Secret: func(userID string, _ Session, _ time.Time) (string, bool) {
			return fmt.Sprintf("%s:encryption_key_%s", userID, tag), true
		},
	}
}

// LegacySessionRecipe reproduces the session-bound derivation used before
// keys were stabilised. It needs the live access token of the session that
// wrote the data and is read-only.
func LegacySessionRecipe() KeyRecipe {
	return KeyRecipe{
		Tag:      LegacySessionTag,
		ReadOnly: true,
		Secret: func(userID string, sess Session, now time.Time) (string, bool) {
			if !sess.Live(now) {
				return "", false
			}
			if sess.UserID != "" && sess.UserID != userID {
				return "", false
			}
			return fmt.Sprintf("%s:%s:encryption", userID, sess.AccessToken), true
		},
	}
}

// NewKeyRing builds a ring from current-recipe tags, newest first, followed
// by the legacy session recipe.
func NewKeyRing(tags ...string) (KeyRing, error) {
	ring := make(KeyRing, 0, len(tags)+1)
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if tag == LegacySessionTag {
			return nil, fmt.Errorf("key tag %q is reserved", tag)
		}
		if seen[tag] {
			return nil, fmt.Errorf("duplicate key tag %q", tag)
		}
		seen[tag] = true
		ring = append(ring, CurrentRecipe(tag))
	}
	if len(ring) == 0 {
		return nil, errors.New("key ring needs at least one key tag")
	}
	return append(ring, LegacySessionRecipe()), nil
}

// DefaultKeyRing is {v2, legacy-session}.
func DefaultKeyRing() KeyRing {
	ring, _ := NewKeyRing("v2")
	return ring
}
