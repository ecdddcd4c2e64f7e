package service

import (
	"context"
	"encoding/json"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/repository/specification"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the embedding queue: one message per chunk, embed
// the content, store the vector, and flip the document to ready once every
// chunk carries one.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedChunkMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal embed message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chunk, err := uow.DocumentChunkRepository().FindOne(ctx, specification.ByID{ID: payload.ChunkId})
	if err != nil {
		cs.log.Error("consumer", "failed to load chunk", map[string]interface{}{
			"chunk_id": payload.ChunkId,
			"error":    err.Error(),
		})
		msg.Nack() // Retriable
		return
	}
	if chunk == nil {
		// Chunk deleted before the worker got to it.
		msg.Ack()
		return
	}

	vector, err := cs.embeddingProvider.Embed(ctx, chunk.Content)
	if err != nil {
		cs.log.Error("consumer", "embedding failed", map[string]interface{}{
			"chunk_id": chunk.Id,
			"error":    err.Error(),
		})
		msg.Nack()
		return
	}

	if err := uow.DocumentChunkRepository().SetEmbedding(ctx, chunk.Id, vector); err != nil {
		cs.log.Error("consumer", "failed to store embedding", map[string]interface{}{
			"chunk_id": chunk.Id,
			"error":    err.Error(),
		})
		msg.Nack()
		return
	}

	cs.markReadyIfComplete(ctx, uow, payload)
	msg.Ack()
}

// markReadyIfComplete flips the parent document to ready once no chunk is
// missing a vector. Best effort: a failure here only delays the transition.
func (cs *consumerService) markReadyIfComplete(ctx context.Context, uow unitofwork.UnitOfWork, payload dto.PublishEmbedChunkMessage) {
	total, err := uow.DocumentChunkRepository().Count(ctx,
		specification.ByDocumentID{DocumentID: payload.DocumentId},
	)
	if err != nil {
		return
	}
	embedded, err := uow.DocumentChunkRepository().Count(ctx,
		specification.ByDocumentID{DocumentID: payload.DocumentId},
		specification.EmbeddedOnly{},
	)
	if err != nil {
		return
	}

	if total > 0 && embedded >= total {
		if err := uow.DocumentRepository().SetStatus(ctx, payload.DocumentId, constant.DocumentStatusReady); err != nil {
			cs.log.Warn("consumer", "failed to mark document ready", map[string]interface{}{
				"document_id": payload.DocumentId,
				"error":       err.Error(),
			})
			return
		}
		cs.log.Info("consumer", "document fully embedded", map[string]interface{}{
			"document_id": payload.DocumentId,
			"chunks":      total,
		})
	}
}
