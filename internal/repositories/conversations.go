package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/rohits-web03/chatvault/internal/models"
	"gorm.io/gorm"
)

// ConversationStore persists conversations. Content is stored exactly as
// handed in; encryption happens before it gets here.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Get returns a conversation owned by userID; gorm.ErrRecordNotFound otherwise.
func (s *ConversationStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted = ?", id, userID, false).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ConversationStore) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var out []models.Conversation
	err := s.db.WithContext(ctx).
		Select("id", "user_id", "title", "created_at", "updated_at").
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

func (s *ConversationStore) UpdateContent(ctx context.Context, userID, id uuid.UUID, title, content string) error {
	updates := map[string]any{"content": content}
	if title != "" {
		updates["title"] = title
	}
	res := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND user_id = ? AND deleted = ?", id, userID, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *ConversationStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND user_id = ? AND deleted = ?", id, userID, false).
		Update("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
