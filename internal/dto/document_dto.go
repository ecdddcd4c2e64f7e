package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	Source  string `json:"source,omitempty"`

	// ChatSessionId binds the document to one session; empty means the
	// shared corpus.
	ChatSessionId *uuid.UUID `json:"chat_session_id,omitempty"`
}

type UploadDocumentResponse struct {
	Id         uuid.UUID `json:"id"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
}

type GetDocumentResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Source        string     `json:"source,omitempty"`
	Status        string     `json:"status"`
	ChunkCount    int        `json:"chunk_count"`
	ChatSessionId *uuid.UUID `json:"chat_session_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type DeleteDocumentRequest struct {
	DocumentId uuid.UUID `json:"document_id" validate:"required"`
}

// PublishEmbedChunkMessage is the async embedding work item.
type PublishEmbedChunkMessage struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
}
