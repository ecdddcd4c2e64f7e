package service

import (
	"context"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/entity"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/repository/specification"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/rag/workflow"

	"github.com/google/uuid"
)

// IChatService defines the chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error
	SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, request *dto.StreamChatRequest, emitter workflow.StreamEmitter) error
}

// turnOrchestrator is the slice of the workflow orchestrator the chat service
// drives for send and stream.
type turnOrchestrator interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Result, error)
	RunStream(ctx context.Context, req workflow.Request, emitter workflow.StreamEmitter) error
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator turnOrchestrator
	log          logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator turnOrchestrator,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		orchestrator: orchestrator,
		log:          log,
	}
}

func (c *chatService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := request.Title
	if title == "" {
		title = constant.DefaultSessionTitle
	}

	session := entity.ChatSession{
		Id:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	c.log.Info("chat", "session created", map[string]interface{}{
		"session_id": session.Id,
	})

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (c *chatService) GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, s := range sessions {
		res[i] = &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}
	}
	return res, nil
}

func (c *chatService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, workflow.ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "sequence", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, m := range messages {
		res[i] = &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Sequence:  m.Sequence,
			CreatedAt: m.CreatedAt,
			Metadata:  m.Metadata,
		}
	}
	return res, nil
}

func (c *chatService) DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		_ = uow.Rollback()
		return err
	}

	return uow.Commit()
}

func (c *chatService) SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	result, err := c.orchestrator.Run(ctx, workflow.Request{
		SessionId: request.ChatSessionId,
		Message:   request.Message,
		Model:     request.Model,
	})
	if err != nil {
		return nil, err
	}

	retrieved := make([]dto.RetrievedChunkDTO, len(result.Retrieved))
	for i, r := range result.Retrieved {
		retrieved[i] = dto.RetrievedChunkDTO{
			ChunkId:    r.ChunkId,
			DocumentId: r.DocumentId,
			Document:   r.Document,
			ChunkIndex: r.ChunkIndex,
			Text:       r.Text,
			Score:      r.Score,
		}
	}

	now := time.Now()
	return &dto.SendChatResponse{
		ChatSessionId: request.ChatSessionId,
		MessageId:     result.MessageId,
		Sent: &dto.SendChatResponseChat{
			Id:        uuid.New(),
			Role:      constant.RoleUser,
			Content:   request.Message,
			CreatedAt: now,
		},
		Reply: &dto.SendChatResponseChat{
			Id:        result.MessageId,
			Role:      constant.RoleAssistant,
			Content:   result.Content,
			CreatedAt: now,
		},
		Retrieved: retrieved,
		Metadata: map[string]interface{}{
			"tokens_used":      result.Metadata.TokensUsed,
			"retrieval_count":  result.Metadata.RetrievalCount,
			"context_messages": result.Metadata.ContextMessages,
			"model":            result.Metadata.Model,
		},
	}, nil
}

func (c *chatService) StreamChat(ctx context.Context, request *dto.StreamChatRequest, emitter workflow.StreamEmitter) error {
	return c.orchestrator.RunStream(ctx, workflow.Request{
		SessionId: request.ChatSessionId,
		Message:   request.Message,
		Model:     request.Model,
	}, emitter)
}
