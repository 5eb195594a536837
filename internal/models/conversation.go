package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Content   string    `json:"-" gorm:"type:text;not null"` // encrypted envelope, or legacy plaintext
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
	Deleted   bool      `json:"deleted" gorm:"default:false"`
}

// Message is one chat turn. Timestamp is kept as the ISO string the client sent.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
