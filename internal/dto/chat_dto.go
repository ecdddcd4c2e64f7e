package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"omitempty,max=120"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Sequence  int64                  `json:"sequence"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required"`
	Model         string    `json:"model,omitempty"`
}

type SendChatResponseChat struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type RetrievedChunkDTO struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
	Document   string    `json:"document"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Score      float64   `json:"score"`
}

type SendChatResponse struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`

	// MessageId is the persisted assistant message, duplicated from Reply.Id
	// so clients can address the turn without unwrapping the envelope.
	MessageId uuid.UUID              `json:"message_id"`
	Sent      *SendChatResponseChat  `json:"sent"`
	Reply     *SendChatResponseChat  `json:"reply"`
	Retrieved []RetrievedChunkDTO    `json:"retrieved,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}

// StreamChatRequest is the first frame a websocket client sends.
type StreamChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Message       string    `json:"message" validate:"required"`
	Model         string    `json:"model,omitempty"`
}
