package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/rank"
	"rag-chat-be/pkg/rag/sessionlock"
	"rag-chat-be/pkg/tokenizer"
)

// --- fakes ---

type committedTurn struct {
	userText      string
	assistantText string
	meta          TurnMetadata
}

type fakeStore struct {
	sessions   map[uuid.UUID]bool
	turns      []memory.Turn
	summary    string
	turnsSince int
	chunks     []rank.Candidate

	commits          []committedTurn
	replacedSummary  string
	replacedCalls    int
	chunksErr        error
	lastAssistantId  uuid.UUID
	memoryStateCalls int
}

func newFakeStore(sessionId uuid.UUID) *fakeStore {
	return &fakeStore{sessions: map[uuid.UUID]bool{sessionId: true}}
}

func (s *fakeStore) SessionExists(_ context.Context, sessionId uuid.UUID) (bool, error) {
	return s.sessions[sessionId], nil
}

func (s *fakeStore) RecentTurns(_ context.Context, _ uuid.UUID, limit int) ([]memory.Turn, error) {
	if len(s.turns) > limit {
		return s.turns[len(s.turns)-limit:], nil
	}
	return s.turns, nil
}

func (s *fakeStore) MemoryState(_ context.Context, _ uuid.UUID) (string, int, error) {
	s.memoryStateCalls++
	return s.summary, s.turnsSince, nil
}

func (s *fakeStore) CandidateChunks(_ context.Context, _ uuid.UUID) ([]rank.Candidate, error) {
	if s.chunksErr != nil {
		return nil, s.chunksErr
	}
	return s.chunks, nil
}

func (s *fakeStore) CommitTurns(_ context.Context, _ uuid.UUID, userText, assistantText string, meta TurnMetadata) (uuid.UUID, error) {
	s.commits = append(s.commits, committedTurn{userText: userText, assistantText: assistantText, meta: meta})
	s.turnsSince++
	s.lastAssistantId = uuid.New()
	return s.lastAssistantId, nil
}

func (s *fakeStore) TurnsSinceSummary(_ context.Context, _ uuid.UUID) ([]memory.Turn, error) {
	return s.turns, nil
}

func (s *fakeStore) ReplaceSummary(_ context.Context, _ uuid.UUID, summary string) error {
	s.replacedSummary = summary
	s.replacedCalls++
	s.summary = summary
	s.turnsSince = 0
	return nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

// fakeGenerator scripts both the blocking and streaming paths. Stream
// fragments are forwarded one by one; streamErr (if set) fires after them.
type fakeGenerator struct {
	reply     string
	chatErr   error
	fragments []string
	streamErr error
}

func (g *fakeGenerator) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return g.reply, g.chatErr
}

func (g *fakeGenerator) ChatStream(_ context.Context, _ []llm.Message, onDelta llm.DeltaFunc, _ ...llm.Option) (string, error) {
	var sb strings.Builder
	for _, frag := range g.fragments {
		if err := onDelta(frag); err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
	}
	return sb.String(), g.streamErr
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// recordingEmitter captures the event sequence; failAfterDeltas simulates a
// client hanging up mid-stream.
type recordingEmitter struct {
	events          []StreamEvent
	failAfterDeltas int
	deltasSeen      int
}

func (r *recordingEmitter) Delta(content string) error {
	if r.failAfterDeltas > 0 && r.deltasSeen >= r.failAfterDeltas {
		return errors.New("write: broken pipe")
	}
	r.deltasSeen++
	r.events = append(r.events, StreamEvent{Type: EventDelta, Content: content})
	return nil
}

func (r *recordingEmitter) Done(messageId uuid.UUID, chunks int) error {
	r.events = append(r.events, StreamEvent{Type: EventDone, MessageId: &messageId, Chunks: chunks})
	return nil
}

func (r *recordingEmitter) Error(code, message string) error {
	r.events = append(r.events, StreamEvent{Type: EventError, Code: code, Message: message})
	return nil
}

func newTestOrchestrator(store Store, embedder *fakeEmbedder, gen *fakeGenerator) *Orchestrator {
	cfg := DefaultConfig()
	cfg.SummaryInterval = 5
	return NewOrchestrator(
		store, embedder, gen, nil,
		sessionlock.NewRegistry(nil),
		tokenizer.EstimateCounter{},
		logger.NewNopLogger(),
		cfg,
	)
}

func testChunks() []rank.Candidate {
	return []rank.Candidate{
		{ChunkId: uuid.New(), Document: "guide.pdf", ChunkIndex: 0, Text: "Gradient descent is an optimizer.", Vector: []float32{1, 0, 0}},
		{ChunkId: uuid.New(), Document: "guide.pdf", ChunkIndex: 1, Text: "Learning rates control step size.", Vector: []float32{0.9, 0.1, 0}},
		{ChunkId: uuid.New(), Document: "notes.md", ChunkIndex: 0, Text: "Backpropagation computes gradients.", Vector: []float32{0, 1, 0}},
	}
}

// --- non-streaming ---

func TestRunCommitsBothTurns(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.chunks = testChunks()
	gen := &fakeGenerator{reply: "Gradient descent minimizes loss iteratively."}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, gen)

	res, err := o.Run(context.Background(), Request{
		SessionId: sessionId,
		Message:   "What is gradient descent?",
	})
	require.NoError(t, err)

	require.Len(t, store.commits, 1)
	assert.Equal(t, "What is gradient descent?", store.commits[0].userText)
	assert.Equal(t, gen.reply, store.commits[0].assistantText)
	assert.Equal(t, store.lastAssistantId, res.MessageId)
	assert.Equal(t, gen.reply, res.Content)

	assert.False(t, res.Metadata.Incomplete)
	assert.Equal(t, string(TerminationCompleted), res.Metadata.Termination)
	assert.Equal(t, len(res.Retrieved), res.Metadata.RetrievalCount)
	assert.Positive(t, res.Metadata.TokensUsed)
}

func TestRunQuestionTriggersRetrieval(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.chunks = testChunks()
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeGenerator{reply: "ok"})

	res, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "How does this work?"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Retrieved)
	assert.LessOrEqual(t, len(res.Retrieved), DefaultConfig().TopK)
}

func TestRunGreetingSkipsRetrieval(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.chunks = testChunks()
	// An embedder that fails loudly proves retrieval never ran.
	embedder := &fakeEmbedder{err: errors.New("embedder must not be called")}
	o := newTestOrchestrator(store, embedder, &fakeGenerator{reply: "Hello!"})

	res, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, res.Retrieved)
	assert.Equal(t, 0, res.Metadata.RetrievalCount)
}

func TestRunSessionNotFound(t *testing.T) {
	store := newFakeStore(uuid.New())
	o := newTestOrchestrator(store, &fakeEmbedder{}, &fakeGenerator{})

	_, err := o.Run(context.Background(), Request{SessionId: uuid.New(), Message: "hello?"})
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, CodeSessionNotFound, ErrorCode(err))
	assert.Empty(t, store.commits)
}

func TestRunGenerationFailureCommitsNothing(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"auth", fmt.Errorf("chat: %w", llm.ErrAuth), CodeLLMAuthError},
		{"rate limit", fmt.Errorf("chat: %w", llm.ErrRateLimited), CodeRateLimitExceeded},
		{"timeout", fmt.Errorf("chat: %w", llm.ErrTimeout), CodeGenerationTimeout},
		{"other", errors.New("connection reset"), CodeGenerationError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessionId := uuid.New()
			store := newFakeStore(sessionId)
			o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeGenerator{chatErr: tc.err})

			_, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "Why did it fail?"})
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, ErrorCode(err))
			assert.Empty(t, store.commits, "failed generation must not persist turns")
		})
	}
}

func TestRunEmbeddingFailureDegradesToNoRetrieval(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.chunks = testChunks()
	o := newTestOrchestrator(store, &fakeEmbedder{err: errors.New("embedder down")}, &fakeGenerator{reply: "answered anyway"})

	res, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "What does the document say?"})
	require.NoError(t, err)
	assert.Empty(t, res.Retrieved)
	require.Len(t, store.commits, 1)
}

func TestRunEmptyCorpusIsNotAnError(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeGenerator{reply: "no sources, answering from memory"})

	res, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "What is in the knowledge base?"})
	require.NoError(t, err)
	assert.Empty(t, res.Retrieved)
	require.Len(t, store.commits, 1)
}

func TestRunTriggersSummaryAtInterval(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.turnsSince = 4 // the commit below advances it to 5
	store.turns = []memory.Turn{
		{Role: "user", Content: "first question", Sequence: 1},
		{Role: "assistant", Content: "first answer", Sequence: 2},
	}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeGenerator{reply: "They discussed optimizers."})

	_, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, store.replacedCalls)
	assert.Equal(t, "They discussed optimizers.", store.replacedSummary)
	assert.Equal(t, 0, store.turnsSince, "counter resets with the new summary")
}

func TestRunBelowIntervalLeavesSummaryAlone(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.summary = "existing summary"
	store.turnsSince = 2
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, &fakeGenerator{reply: "sure"})

	_, err := o.Run(context.Background(), Request{SessionId: sessionId, Message: "thanks"})
	require.NoError(t, err)
	assert.Zero(t, store.replacedCalls)
	assert.Equal(t, "existing summary", store.summary)
}

// --- streaming ---

func TestRunStreamHappyPath(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	store.chunks = testChunks()
	gen := &fakeGenerator{fragments: []string{"Gradient ", "descent ", "minimizes loss."}}
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, gen)

	err := o.RunStream(context.Background(), Request{SessionId: sessionId, Message: "What is gradient descent?"}, emitter)
	require.NoError(t, err)

	require.Len(t, emitter.events, 4)
	for i, frag := range gen.fragments {
		assert.Equal(t, EventDelta, emitter.events[i].Type)
		assert.Equal(t, frag, emitter.events[i].Content)
	}
	last := emitter.events[3]
	assert.Equal(t, EventDone, last.Type)
	require.NotNil(t, last.MessageId)
	assert.Equal(t, store.lastAssistantId, *last.MessageId)

	require.Len(t, store.commits, 1)
	assert.Equal(t, "Gradient descent minimizes loss.", store.commits[0].assistantText)
	assert.False(t, store.commits[0].meta.Incomplete)
}

func TestRunStreamProviderFailurePersistsPartial(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	gen := &fakeGenerator{
		fragments: []string{"partial ", "answer "},
		streamErr: fmt.Errorf("stream: %w", llm.ErrRateLimited),
	}
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, gen)

	err := o.RunStream(context.Background(), Request{SessionId: sessionId, Message: "Tell me everything"}, emitter)
	require.NoError(t, err, "a mid-stream failure terminates the stream, not the handler")

	require.Len(t, store.commits, 1)
	assert.Equal(t, "partial answer ", store.commits[0].assistantText, "committed text is the exact concatenation of delivered fragments")
	assert.True(t, store.commits[0].meta.Incomplete)
	assert.Equal(t, string(TerminationProviderError), store.commits[0].meta.Termination)

	last := emitter.events[len(emitter.events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, CodeRateLimitExceeded, last.Code)
}

func TestRunStreamProviderFailureBeforeOutput(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	gen := &fakeGenerator{streamErr: fmt.Errorf("stream: %w", llm.ErrAuth)}
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, gen)

	err := o.RunStream(context.Background(), Request{SessionId: sessionId, Message: "Hello there?"}, emitter)
	require.NoError(t, err)

	assert.Empty(t, store.commits, "no output means no partial turn")
	require.Len(t, emitter.events, 1)
	assert.Equal(t, EventError, emitter.events[0].Type)
	assert.Equal(t, CodeLLMAuthError, emitter.events[0].Code)
}

func TestRunStreamClientDisconnectPersistsPartial(t *testing.T) {
	sessionId := uuid.New()
	store := newFakeStore(sessionId)
	gen := &fakeGenerator{fragments: []string{"one ", "two ", "three ", "four"}}
	emitter := &recordingEmitter{failAfterDeltas: 2}
	o := newTestOrchestrator(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, gen)

	err := o.RunStream(context.Background(), Request{SessionId: sessionId, Message: "Count for me?"}, emitter)
	require.NoError(t, err)

	require.Len(t, store.commits, 1)
	assert.Equal(t, "one two ", store.commits[0].assistantText)
	assert.True(t, store.commits[0].meta.Incomplete)
	assert.Equal(t, string(TerminationClientGone), store.commits[0].meta.Termination)

	// The client saw only the two deltas it accepted; nothing terminal can
	// reach a closed connection.
	require.Len(t, emitter.events, 2)
	for _, ev := range emitter.events {
		assert.Equal(t, EventDelta, ev.Type)
	}
}

func TestRunStreamUnknownSession(t *testing.T) {
	store := newFakeStore(uuid.New())
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(store, &fakeEmbedder{}, &fakeGenerator{})

	err := o.RunStream(context.Background(), Request{SessionId: uuid.New(), Message: "anyone?"}, emitter)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, EventError, emitter.events[0].Type)
	assert.Equal(t, CodeSessionNotFound, emitter.events[0].Code)
}

func TestTerminalGuardAtMostOneTerminal(t *testing.T) {
	emitter := &recordingEmitter{}
	guard := newTerminalGuard(emitter)

	require.NoError(t, guard.Delta("a"))
	require.NoError(t, guard.Error(CodeGenerationError, "boom"))
	require.NoError(t, guard.Done(uuid.New(), 0))
	require.NoError(t, guard.Delta("after terminal"))
	require.NoError(t, guard.Error(CodeGenerationError, "again"))

	require.Len(t, emitter.events, 2)
	assert.Equal(t, EventDelta, emitter.events[0].Type)
	assert.Equal(t, EventError, emitter.events[1].Type)
}
