package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id     uuid.UUID
	Title  string
	Source string
	Status string

	// ChatSessionId binds the document to one session. Nil means the document
	// belongs to the shared corpus visible to every session.
	ChatSessionId *uuid.UUID

	ChunkCount int

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
