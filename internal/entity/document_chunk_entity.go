package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentChunk struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	ChunkIndex int
	Content    string

	// Embedding is nil until the async embedding worker processes the chunk.
	Embedding []float32

	// DocumentTitle is populated on reads that join the parent document; it
	// is never written back.
	DocumentTitle string

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
