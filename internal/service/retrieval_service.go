package service

import (
	"context"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/rag/decision"
	"rag-chat-be/pkg/rag/rank"
)

const (
	defaultSearchTopK = 5
	// The database pre-ranks more than topK so MMR has a pool to diversify.
	searchPoolFactor = 5
)

// IRetrievalService exposes retrieval ranking directly, for tuning and
// debugging outside any chat session.
type IRetrievalService interface {
	Search(ctx context.Context, request *dto.SearchRequest) (*dto.SearchResponse, error)
}

type retrievalService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
	engine            *decision.Engine
	defaultLambda     float64
	log               logger.ILogger
}

func NewRetrievalService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
	engine *decision.Engine,
	defaultLambda float64,
	log logger.ILogger,
) IRetrievalService {
	return &retrievalService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		engine:            engine,
		defaultLambda:     defaultLambda,
		log:               log,
	}
}

func (r *retrievalService) Search(ctx context.Context, request *dto.SearchRequest) (*dto.SearchResponse, error) {
	topK := request.TopK
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	useMMR := true
	if request.UseMMR != nil {
		useMMR = *request.UseMMR
	}
	lambda := r.defaultLambda
	if request.Lambda != nil {
		lambda = *request.Lambda
	}

	verdict := r.engine.Evaluate(request.Query)

	queryVec, err := r.embeddingProvider.Embed(ctx, request.Query)
	if err != nil {
		return nil, err
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilar(ctx, queryVec, topK*searchPoolFactor, request.Scope)
	if err != nil {
		return nil, err
	}

	ranked := make([]rank.Candidate, len(scored))
	for i, sc := range scored {
		ranked[i] = rank.Candidate{
			ChunkId:    sc.Chunk.Id,
			DocumentId: sc.Chunk.DocumentId,
			Document:   sc.Chunk.DocumentTitle,
			ChunkIndex: sc.Chunk.ChunkIndex,
			Text:       sc.Chunk.Content,
			Vector:     sc.Chunk.Embedding,
			Score:      sc.Similarity,
		}
	}

	var selected []rank.Candidate
	if useMMR {
		selected = rank.SelectMMR(ranked, topK, lambda)
	} else if len(ranked) > topK {
		selected = ranked[:topK]
	} else {
		selected = ranked
	}

	results := make([]dto.RetrievedChunkDTO, len(selected))
	for i, c := range selected {
		results[i] = dto.RetrievedChunkDTO{
			ChunkId:    c.ChunkId,
			DocumentId: c.DocumentId,
			Document:   c.Document,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Score:      c.Score,
		}
	}

	return &dto.SearchResponse{
		Results:       results,
		WouldRetrieve: verdict.Retrieve,
		DecisionRule:  verdict.Rule,
	}, nil
}
