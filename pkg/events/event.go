package events

import "time"

// Event type codes published on the bus.
const (
	TypeTurnCommitted    = "chat.turn_committed"
	TypeDocumentIngested = "document.ingested"
	TypeChunkEmbedded    = "document.chunk_embedded"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "chat.turn_committed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCommitted announces that a user/assistant turn pair was persisted.
func NewTurnCommitted(sessionId, messageId string, tokensUsed, retrievalCount int, incomplete bool) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCommitted,
		Data: map[string]interface{}{
			"session_id":      sessionId,
			"message_id":      messageId,
			"tokens_used":     tokensUsed,
			"retrieval_count": retrievalCount,
			"incomplete":      incomplete,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIngested announces that a document was accepted and split.
func NewDocumentIngested(documentId, title string, chunkCount int) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"document_id": documentId,
			"title":       title,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}
