package contract

import (
	"context"

	"rag-chat-be/internal/entity"
	"rag-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// IncrementTurnsSinceSummary bumps the assistant-turn counter by one.
	IncrementTurnsSinceSummary(ctx context.Context, id uuid.UUID) error

	// ReplaceSummary swaps the standing summary, resets the counter and moves
	// the summarized-through watermark, in one UPDATE.
	ReplaceSummary(ctx context.Context, id uuid.UUID, summary string, summarySequence int64) error
}
