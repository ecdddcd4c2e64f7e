package service

import (
	"context"

	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/events"
	"rag-chat-be/pkg/nats"
	"rag-chat-be/pkg/rag/workflow"

	"github.com/google/uuid"
)

// natsTurnPublisher forwards committed turns to the event bus. Publish
// failures are logged and dropped so the chat turn never fails on the bus.
type natsTurnPublisher struct {
	publisher *nats.Publisher
	log       logger.ILogger
}

func NewTurnEventPublisher(publisher *nats.Publisher, log logger.ILogger) workflow.TurnEventPublisher {
	return &natsTurnPublisher{
		publisher: publisher,
		log:       log,
	}
}

func (p *natsTurnPublisher) TurnCommitted(ctx context.Context, sessionId, messageId uuid.UUID, meta workflow.TurnMetadata) {
	if p.publisher == nil {
		return
	}

	evt := events.NewTurnCommitted(
		sessionId.String(),
		messageId.String(),
		meta.TokensUsed,
		meta.RetrievalCount,
		meta.Incomplete,
	)
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.log.Warn("events", "failed to publish turn committed event", map[string]interface{}{
			"session_id": sessionId,
			"message_id": messageId,
			"error":      err.Error(),
		})
	}
}
