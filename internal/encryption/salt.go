package encryption

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// SaltRepository persists the base64 salt on the user's profile record.
type SaltRepository interface {
	// LoadSalt returns "" when the profile has no salt yet.
	LoadSalt(ctx context.Context, userID string) (string, error)
	// StoreSaltIfAbsent writes salt only if none is stored and returns the
	// salt that is persisted afterwards, which may belong to a concurrent writer.
	StoreSaltIfAbsent(ctx context.Context, userID, salt string) (string, error)
}

// SaltStore hands out the per-user salt, creating it on first use.
type SaltStore struct {
	repo   SaltRepository
	params Params
	rand   io.Reader
	group  singleflight.Group
}

func NewSaltStore(repo SaltRepository, params Params) (*SaltStore, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &SaltStore{repo: repo, params: params, rand: rand.Reader}, nil
}

type saltResult struct {
	salt      []byte
	persisted bool
}

// Salt returns the persisted salt for userID. When none can be read a new one
// is generated and written with a conditional insert; if that write fails the
// new salt is still returned, but only to the caller that generated it.
func (s *SaltStore) Salt(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	// The flight outlives any single caller, so it must not inherit one
	// caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	var leader bool
	v, err, _ := s.group.Do(userID, func() (any, error) {
		leader = true
		return s.loadOrCreate(flightCtx, userID)
	})
	if err != nil {
		return nil, err
	}
	res := v.(saltResult)
	if !res.persisted && !leader {
		// an unsaved salt never leaves the flight that drew it
		if res, err = s.loadOrCreate(ctx, userID); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// singleflight shares the slice between callers
	return append([]byte(nil), res.salt...), nil
}

func (s *SaltStore) loadOrCreate(ctx context.Context, userID string) (saltResult, error) {
	stored, err := s.repo.LoadSalt(ctx, userID)
	switch {
	case isContextErr(err):
		return saltResult{}, fmt.Errorf("failed to read salt: %w", err)
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to read encryption salt, generating a new one")
	case stored != "":
		salt, err := s.decode(stored)
		return saltResult{salt: salt, persisted: true}, err
	}

	fresh := make([]byte, s.params.SaltLength)
	if _, err := io.ReadFull(s.rand, fresh); err != nil {
		return saltResult{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(fresh)

	persisted, err := s.repo.StoreSaltIfAbsent(ctx, userID, encoded)
	if isContextErr(err) {
		// the write may or may not have landed
		return saltResult{}, fmt.Errorf("failed to persist salt: %w", err)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to persist encryption salt")
		return saltResult{salt: fresh}, nil
	}
	if persisted != encoded {
		log.Info().Str("user_id", userID).Msg("Encryption salt created concurrently, using stored salt")
	}
	salt, err := s.decode(persisted)
	return saltResult{salt: salt, persisted: true}, err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *SaltStore) decode(stored string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSalt, err)
	}
	if len(salt) != s.params.SaltLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSalt, s.params.SaltLength, len(salt))
	}
	return salt, nil
}
