package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// AfterSequence selects messages ordered strictly after a watermark.
type AfterSequence struct {
	Sequence int64
}

func (s AfterSequence) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sequence > ?", s.Sequence)
}

// ByRole filters messages by their role column.
type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}
