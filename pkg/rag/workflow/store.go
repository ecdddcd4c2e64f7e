package workflow

import (
	"context"

	"github.com/google/uuid"

	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/rank"
)

// Store is the persistence boundary the workflow talks to. Implementations
// own transactions and sequence numbering; the workflow only dictates what
// must be atomic.
type Store interface {
	// SessionExists reports whether the session can accept chat turns.
	SessionExists(ctx context.Context, sessionId uuid.UUID) (bool, error)

	// RecentTurns returns up to limit of the newest turns, oldest first.
	RecentTurns(ctx context.Context, sessionId uuid.UUID, limit int) ([]memory.Turn, error)

	// MemoryState returns the standing summary (empty if none) and the
	// assistant-turn count since the last summary update.
	MemoryState(ctx context.Context, sessionId uuid.UUID) (summary string, turnsSince int, err error)

	// CandidateChunks returns the embedded chunks of the session's bound
	// documents. Chunks without vectors are omitted. An empty corpus is an
	// empty slice, not an error.
	CandidateChunks(ctx context.Context, sessionId uuid.UUID) ([]rank.Candidate, error)

	// CommitTurns persists the user turn and the assistant turn atomically
	// (both or neither) and advances the assistant-turn counter. It returns
	// the assistant message id.
	CommitTurns(ctx context.Context, sessionId uuid.UUID, userText, assistantText string, meta TurnMetadata) (uuid.UUID, error)

	// TurnsSinceSummary returns the turns recorded after the last summary
	// update, oldest first, for the summarizer's input.
	TurnsSinceSummary(ctx context.Context, sessionId uuid.UUID) ([]memory.Turn, error)

	// ReplaceSummary swaps the standing summary and resets the assistant-turn
	// counter to zero, atomically.
	ReplaceSummary(ctx context.Context, sessionId uuid.UUID, summary string) error
}

// TurnEventPublisher is notified after a turn commit. Implementations must
// not fail the chat turn; publish errors are logged and dropped.
type TurnEventPublisher interface {
	TurnCommitted(ctx context.Context, sessionId, messageId uuid.UUID, meta TurnMetadata)
}
