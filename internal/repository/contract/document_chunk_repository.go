package contract

import (
	"context"

	"rag-chat-be/internal/entity"
	"rag-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk wraps DocumentChunk with its similarity score
type ScoredChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // cosine similarity, 1.0 = identical
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SetEmbedding stores a computed vector on the chunk.
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error

	// FindEmbeddedForSession returns every embedded chunk visible to the
	// session: chunks of shared-corpus documents plus documents bound to it.
	// DocumentTitle is populated from the parent document.
	FindEmbeddedForSession(ctx context.Context, sessionId uuid.UUID) ([]*entity.DocumentChunk, error)

	// SearchSimilar ranks embedded chunks by pgvector cosine distance. A nil
	// scope searches the whole corpus; a session id restricts to shared
	// documents plus those bound to that session.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, scope *uuid.UUID) ([]*ScoredChunk, error)
}
