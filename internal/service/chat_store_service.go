package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/entity"
	memcache "rag-chat-be/internal/repository/memory"
	"rag-chat-be/internal/repository/specification"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/rank"
	"rag-chat-be/pkg/rag/workflow"
	"rag-chat-be/pkg/tokenizer"

	"github.com/google/uuid"
)

// chatStore adapts the repository layer to the workflow's persistence
// boundary. It owns the commit transaction and the summary/counter state.
type chatStore struct {
	uowFactory unitofwork.RepositoryFactory
	stateCache *memcache.MemoryStateCache
	counter    tokenizer.Counter
}

func NewChatStore(
	uowFactory unitofwork.RepositoryFactory,
	stateCache *memcache.MemoryStateCache,
	counter tokenizer.Counter,
) workflow.Store {
	return &chatStore{
		uowFactory: uowFactory,
		stateCache: stateCache,
		counter:    counter,
	}
}

func (s *chatStore) SessionExists(ctx context.Context, sessionId uuid.UUID) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

func (s *chatStore) RecentTurns(ctx context.Context, sessionId uuid.UUID, limit int) ([]memory.Turn, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "sequence", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	// Fetched newest-first; the workflow wants oldest-first.
	turns := make([]memory.Turn, len(messages))
	for i, msg := range messages {
		turns[len(messages)-1-i] = messageToTurn(msg)
	}
	return turns, nil
}

func (s *chatStore) MemoryState(ctx context.Context, sessionId uuid.UUID) (string, int, error) {
	if state, ok := s.stateCache.Get(sessionId); ok {
		return state.Summary, state.TurnsSinceSummary, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return "", 0, err
	}
	if session == nil {
		return "", 0, workflow.ErrSessionNotFound
	}

	s.stateCache.Save(sessionId, &memcache.MemoryState{
		Summary:           session.Summary,
		TurnsSinceSummary: session.TurnsSinceSummary,
	})
	return session.Summary, session.TurnsSinceSummary, nil
}

func (s *chatStore) CandidateChunks(ctx context.Context, sessionId uuid.UUID) ([]rank.Candidate, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.DocumentChunkRepository().FindEmbeddedForSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	candidates := make([]rank.Candidate, 0, len(chunks))
	for _, c := range chunks {
		candidates = append(candidates, rank.Candidate{
			ChunkId:    c.Id,
			DocumentId: c.DocumentId,
			Document:   c.DocumentTitle,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Content,
			Vector:     c.Embedding,
		})
	}
	return candidates, nil
}

func (s *chatStore) CommitTurns(ctx context.Context, sessionId uuid.UUID, userText, assistantText string, meta workflow.TurnMetadata) (uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return uuid.Nil, err
	}

	assistantId, err := s.commitInTx(ctx, uow, sessionId, userText, assistantText, meta)
	if err != nil {
		_ = uow.Rollback()
		return uuid.Nil, err
	}
	if err := uow.Commit(); err != nil {
		return uuid.Nil, err
	}

	s.stateCache.Invalidate(sessionId)
	return assistantId, nil
}

func (s *chatStore) commitInTx(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, userText, assistantText string, meta workflow.TurnMetadata) (uuid.UUID, error) {
	sessions := uow.ChatSessionRepository()
	messages := uow.ChatMessageRepository()

	session, err := sessions.FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return uuid.Nil, err
	}
	if session == nil {
		return uuid.Nil, workflow.ErrSessionNotFound
	}

	seq, err := messages.NextSequence(ctx, sessionId)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	userMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.RoleUser,
		Content:       userText,
		Sequence:      seq,
		TokenCount:    s.counter.Count(userText),
		CreatedAt:     now,
	}
	if err := messages.Create(ctx, &userMsg); err != nil {
		return uuid.Nil, err
	}

	assistantMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          constant.RoleAssistant,
		Content:       assistantText,
		Sequence:      seq + 1,
		TokenCount:    s.counter.Count(assistantText),
		Metadata:      metadataToMap(meta),
		CreatedAt:     now,
	}
	if err := messages.Create(ctx, &assistantMsg); err != nil {
		return uuid.Nil, err
	}

	if err := sessions.IncrementTurnsSinceSummary(ctx, sessionId); err != nil {
		return uuid.Nil, err
	}

	// First turn names the session after the user's message.
	if seq == 1 && (session.Title == "" || session.Title == constant.DefaultSessionTitle) {
		session.Title = titleFromMessage(userText)
		if err := sessions.Update(ctx, session); err != nil {
			return uuid.Nil, err
		}
	}

	return assistantMsg.Id, nil
}

func (s *chatStore) TurnsSinceSummary(ctx context.Context, sessionId uuid.UUID) ([]memory.Turn, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, workflow.ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.AfterSequence{Sequence: session.SummarySequence},
		specification.OrderBy{Field: "sequence", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	turns := make([]memory.Turn, len(messages))
	for i, msg := range messages {
		turns[i] = messageToTurn(msg)
	}
	return turns, nil
}

func (s *chatStore) ReplaceSummary(ctx context.Context, sessionId uuid.UUID, summary string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	next, err := uow.ChatMessageRepository().NextSequence(ctx, sessionId)
	if err != nil {
		return err
	}

	if err := uow.ChatSessionRepository().ReplaceSummary(ctx, sessionId, summary, next-1); err != nil {
		return err
	}

	s.stateCache.Invalidate(sessionId)
	return nil
}

func messageToTurn(msg *entity.ChatMessage) memory.Turn {
	return memory.Turn{
		Role:       msg.Role,
		Content:    msg.Content,
		TokenCount: msg.TokenCount,
		Sequence:   msg.Sequence,
		CreatedAt:  msg.CreatedAt,
	}
}

func metadataToMap(meta workflow.TurnMetadata) map[string]interface{} {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func titleFromMessage(text string) string {
	title := strings.TrimSpace(text)
	title = strings.ReplaceAll(title, "\n", " ")
	if len(title) > constant.SessionTitleMaxLen {
		runes := []rune(title)
		if len(runes) > constant.SessionTitleMaxLen {
			title = fmt.Sprintf("%s...", strings.TrimSpace(string(runes[:constant.SessionTitleMaxLen-3])))
		}
	}
	if title == "" {
		return constant.DefaultSessionTitle
	}
	return title
}
