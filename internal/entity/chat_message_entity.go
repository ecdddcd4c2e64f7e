package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string

	// Sequence is a per-session monotonic ordinal; it breaks ties when two
	// messages share a timestamp.
	Sequence   int64
	TokenCount int

	// Metadata carries generation facts for assistant messages (tokens used,
	// retrieval count, termination reason). Nil for user messages.
	Metadata map[string]interface{}

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
