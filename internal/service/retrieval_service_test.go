package service

import (
	"context"
	"encoding/json"
	"testing"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/entity"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/repository/contract"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/rag/decision"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeChunkRepo struct {
	contract.DocumentChunkRepository

	gotScope *uuid.UUID
	gotLimit int
	scored   []*contract.ScoredChunk
}

func (f *fakeChunkRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int, scope *uuid.UUID) ([]*contract.ScoredChunk, error) {
	f.gotScope = scope
	f.gotLimit = limit
	return f.scored, nil
}

type fakeUow struct {
	unitofwork.UnitOfWork

	chunks contract.DocumentChunkRepository
}

func (f *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository {
	return f.chunks
}

type fakeUowFactory struct {
	uow unitofwork.UnitOfWork
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newSearchService(repo *fakeChunkRepo) IRetrievalService {
	return NewRetrievalService(
		&fakeUowFactory{uow: &fakeUow{chunks: repo}},
		fixedEmbedder{},
		decision.NewEngine(decision.DefaultWordThreshold),
		0.5,
		logger.NewNopLogger(),
	)
}

func scoredChunk(title string, index int, similarity float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk: &entity.DocumentChunk{
			Id:            uuid.New(),
			DocumentId:    uuid.New(),
			DocumentTitle: title,
			ChunkIndex:    index,
			Content:       "text",
			Embedding:     []float32{1, 0, 0},
		},
		Similarity: similarity,
	}
}

func TestSearchPassesScopeToRepository(t *testing.T) {
	repo := &fakeChunkRepo{}
	svc := newSearchService(repo)
	sessionId := uuid.New()

	_, err := svc.Search(context.Background(), &dto.SearchRequest{
		Query: "What is a session-scoped corpus?",
		Scope: &sessionId,
	})

	assert.NoError(t, err)
	if assert.NotNil(t, repo.gotScope) {
		assert.Equal(t, sessionId, *repo.gotScope)
	}
}

func TestSearchWithoutScopeSearchesWholeCorpus(t *testing.T) {
	repo := &fakeChunkRepo{
		scored: []*contract.ScoredChunk{
			scoredChunk("a.md", 0, 0.9),
			scoredChunk("b.md", 1, 0.4),
		},
	}
	svc := newSearchService(repo)

	res, err := svc.Search(context.Background(), &dto.SearchRequest{
		Query: "What changed?",
		TopK:  2,
	})

	assert.NoError(t, err)
	assert.Nil(t, repo.gotScope)
	assert.Equal(t, 2*searchPoolFactor, repo.gotLimit)
	assert.Len(t, res.Results, 2)
	assert.True(t, res.WouldRetrieve)
	assert.Equal(t, "question_mark", res.DecisionRule)
}

func TestSearchRequestWireNames(t *testing.T) {
	sessionId := uuid.New()
	payload := `{"query": "q", "top_k": 3, "use_mmr": false, "lambda_param": 0.25, "scope": "` + sessionId.String() + `"}`

	var req dto.SearchRequest
	assert.NoError(t, json.Unmarshal([]byte(payload), &req))

	assert.Equal(t, "q", req.Query)
	assert.Equal(t, 3, req.TopK)
	if assert.NotNil(t, req.UseMMR) {
		assert.False(t, *req.UseMMR)
	}
	if assert.NotNil(t, req.Lambda) {
		assert.Equal(t, 0.25, *req.Lambda)
	}
	if assert.NotNil(t, req.Scope) {
		assert.Equal(t, sessionId, *req.Scope)
	}
}
