package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rohits-web03/chatvault/internal/models"
	"gorm.io/gorm"
)

// ProfileStore persists profiles, including the encryption salt column.
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*models.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadSalt returns the stored salt, or "" if the profile has none yet.
func (s *ProfileStore) LoadSalt(ctx context.Context, userID string) (string, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.EncryptionSalt == nil {
		return "", nil
	}
	return *profile.EncryptionSalt, nil
}

// StoreSaltIfAbsent sets the salt only while the column is still NULL. The
// single UPDATE is atomic, so of two racing writers exactly one wins and the
// other reads the winner's salt back.
func (s *ProfileStore) StoreSaltIfAbsent(ctx context.Context, userID, salt string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND encryption_salt IS NULL", id).
		Update("encryption_salt", salt)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return salt, nil
	}

	stored, err := s.LoadSalt(ctx, userID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", errors.New("salt was not stored")
	}
	return stored, nil
}
