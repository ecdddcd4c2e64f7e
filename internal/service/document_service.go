package service

import (
	"context"
	"encoding/json"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/entity"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/repository/specification"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/events"
	pkgnats "rag-chat-be/pkg/nats"
	"rag-chat-be/pkg/utils"

	"github.com/google/uuid"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

type IDocumentService interface {
	Upload(ctx context.Context, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	GetAll(ctx context.Context) ([]*dto.GetDocumentResponse, error)
	Delete(ctx context.Context, request *dto.DeleteDocumentRequest) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pkgnats.Publisher
	log              logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pkgnats.Publisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		log:              log,
	}
}

// Upload persists the document and its chunks, then queues one embedding job
// per chunk. Chunks stay vectorless (and invisible to retrieval) until the
// consumer embeds them.
func (d *documentService) Upload(ctx context.Context, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	pieces := utils.SplitText(request.Content, chunkSize, chunkOverlap)

	doc := entity.Document{
		Id:            uuid.New(),
		Title:         request.Title,
		Source:        request.Source,
		Status:        constant.DocumentStatusPending,
		ChatSessionId: request.ChatSessionId,
		ChunkCount:    len(pieces),
		CreatedAt:     time.Now(),
	}

	chunks := make([]*entity.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &entity.DocumentChunk{
			Id:         uuid.New(),
			DocumentId: doc.Id,
			ChunkIndex: i,
			Content:    piece,
			CreatedAt:  doc.CreatedAt,
		}
	}

	uow := d.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunks); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	for _, chunk := range chunks {
		payload, err := json.Marshal(dto.PublishEmbedChunkMessage{
			ChunkId:    chunk.Id,
			DocumentId: doc.Id,
		})
		if err != nil {
			return nil, err
		}
		if err := d.publisherService.Publish(ctx, payload); err != nil {
			return nil, err
		}
	}

	// Auxiliary event; failures never fail the upload.
	if d.eventPublisher != nil {
		evt := events.NewDocumentIngested(doc.Id.String(), doc.Title, len(chunks))
		if err := d.eventPublisher.Publish(ctx, evt); err != nil {
			d.log.Warn("document", "failed to publish document ingested event", map[string]interface{}{
				"document_id": doc.Id,
				"error":       err.Error(),
			})
		}
	}

	d.log.Info("document", "document uploaded", map[string]interface{}{
		"document_id": doc.Id,
		"chunks":      len(chunks),
	})

	return &dto.UploadDocumentResponse{
		Id:         doc.Id,
		ChunkCount: len(chunks),
		Status:     doc.Status,
	}, nil
}

func (d *documentService) GetAll(ctx context.Context) ([]*dto.GetDocumentResponse, error) {
	uow := d.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetDocumentResponse, len(docs))
	for i, doc := range docs {
		res[i] = &dto.GetDocumentResponse{
			Id:            doc.Id,
			Title:         doc.Title,
			Source:        doc.Source,
			Status:        doc.Status,
			ChunkCount:    doc.ChunkCount,
			ChatSessionId: doc.ChatSessionId,
			CreatedAt:     doc.CreatedAt,
		}
	}
	return res, nil
}

func (d *documentService) Delete(ctx context.Context, request *dto.DeleteDocumentRequest) error {
	uow := d.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, request.DocumentId); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, request.DocumentId); err != nil {
		_ = uow.Rollback()
		return err
	}

	return uow.Commit()
}
