package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/rag/decision"
	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/prompt"
	"rag-chat-be/pkg/rag/rank"
	"rag-chat-be/pkg/rag/sessionlock"
	"rag-chat-be/pkg/tokenizer"
)

// Config holds every knob of the orchestration pipeline. It is passed in at
// construction so tests can run the machine with arbitrary configurations.
type Config struct {
	TokenBudget     int
	MinTurns        int
	SummaryInterval int
	WordThreshold   int

	TopK   int
	UseMMR bool
	Lambda float64

	// How many stored turns to fetch before windowing trims them.
	HistoryFetchLimit int

	Model string

	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
	SummaryTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TokenBudget:       memory.DefaultTokenBudget,
		MinTurns:          memory.DefaultMinTurns,
		SummaryInterval:   memory.DefaultSummaryInterval,
		WordThreshold:     decision.DefaultWordThreshold,
		TopK:              3,
		UseMMR:            true,
		Lambda:            0.5,
		HistoryFetchLimit: 20,
		Model:             "gpt-4o-mini",
		EmbedTimeout:      15 * time.Second,
		GenerateTimeout:   90 * time.Second,
		SummaryTimeout:    30 * time.Second,
	}
}

// Request is one incoming chat turn.
type Request struct {
	SessionId uuid.UUID
	Message   string
	Model     string // optional model override
}

// Result is the outcome of a completed non-streaming turn.
type Result struct {
	MessageId uuid.UUID
	Content   string
	Retrieved []rank.Candidate
	Metadata  TurnMetadata
}

// Orchestrator sequences one chat request through the workflow states:
// LoadHistory → DecideRetrieve → (Retrieve | skip) → Synthesize → Summarize.
// Streaming and non-streaming requests share every node except synthesis.
type Orchestrator struct {
	store     Store
	embedder  embedding.Provider
	generator llm.LLMProvider
	publisher TurnEventPublisher // may be nil
	locks     *sessionlock.Registry
	counter   tokenizer.Counter
	log       logger.ILogger

	engine     *decision.Engine
	window     *memory.WindowManager
	summarizer *memory.Summarizer
	cfg        Config
}

const (
	synthesisTemperature = 0.7
	synthesisMaxTokens   = 2000
)

func NewOrchestrator(
	store Store,
	embedder embedding.Provider,
	generator llm.LLMProvider,
	publisher TurnEventPublisher,
	locks *sessionlock.Registry,
	counter tokenizer.Counter,
	log logger.ILogger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		embedder:   embedder,
		generator:  generator,
		publisher:  publisher,
		locks:      locks,
		counter:    counter,
		log:        log,
		engine:     decision.NewEngine(cfg.WordThreshold),
		window:     memory.NewWindowManager(cfg.TokenBudget, cfg.MinTurns, counter),
		summarizer: memory.NewSummarizer(generator, cfg.SummaryInterval),
		cfg:        cfg,
	}
}

// Run executes a non-streaming chat turn. Generation failures surface as
// typed errors with nothing committed; retrieval and summarization failures
// degrade without failing the turn.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ws, release, err := o.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	defer release()

	for st := StateLoadHistory; st != StateDone; {
		next, err := o.step(ctx, ws, st)
		if err != nil {
			return nil, err
		}
		st = next
	}

	return &Result{
		MessageId: ws.MessageId,
		Content:   ws.Draft,
		Retrieved: ws.Retrieved,
		Metadata:  ws.Metadata,
	}, nil
}

// RunStream executes a streaming chat turn, forwarding fragments to the
// emitter as the provider produces them. At most one terminal event is
// emitted and no delta follows it. On disconnect or mid-stream provider
// failure the accumulated partial text is committed before termination.
func (o *Orchestrator) RunStream(ctx context.Context, req Request, emitter StreamEmitter) error {
	guarded := newTerminalGuard(emitter)

	ws, release, err := o.begin(ctx, req)
	if err != nil {
		_ = guarded.Error(ErrorCode(err), err.Error())
		return err
	}
	defer release()

	for st := StateLoadHistory; st != StateDone; {
		var next State
		var err error
		if st == StateSynthesize {
			next, err = o.synthesizeStream(ctx, ws, guarded)
		} else {
			next, err = o.step(ctx, ws, st)
		}
		if err != nil {
			_ = guarded.Error(ErrorCode(err), err.Error())
			return err
		}
		st = next
	}

	return nil
}

// begin validates the session, acquires the per-session lock, and builds the
// request's WorkflowState.
func (o *Orchestrator) begin(ctx context.Context, req Request) (*WorkflowState, func(), error) {
	exists, err := o.store.SessionExists(ctx, req.SessionId)
	if err != nil {
		return nil, nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, nil, ErrSessionNotFound
	}

	release, err := o.locks.Acquire(ctx, req.SessionId)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire session lock: %w", err)
	}

	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}

	return &WorkflowState{
		SessionId: req.SessionId,
		Message:   req.Message,
		Model:     model,
		TopK:      o.cfg.TopK,
		UseMMR:    o.cfg.UseMMR,
		Lambda:    o.cfg.Lambda,
	}, release, nil
}

// step runs one node and returns the next state. Synthesize here is the
// non-streaming variant; RunStream substitutes its own.
func (o *Orchestrator) step(ctx context.Context, ws *WorkflowState, st State) (State, error) {
	switch st {
	case StateLoadHistory:
		if err := o.loadHistory(ctx, ws); err != nil {
			return StateDone, err
		}
		return StateDecideRetrieve, nil

	case StateDecideRetrieve:
		o.decideRetrieve(ws)
		if ws.NeedRetrieval {
			return StateRetrieve, nil
		}
		return StateSynthesize, nil

	case StateRetrieve:
		o.retrieve(ctx, ws)
		return StateSynthesize, nil

	case StateSynthesize:
		if err := o.synthesize(ctx, ws); err != nil {
			return StateDone, err
		}
		return StateSummarize, nil

	case StateSummarize:
		o.summarize(ctx, ws)
		return StateDone, nil
	}

	return StateDone, fmt.Errorf("workflow: no transition from state %s", st)
}

func (o *Orchestrator) loadHistory(ctx context.Context, ws *WorkflowState) error {
	turns, err := o.store.RecentTurns(ctx, ws.SessionId, o.cfg.HistoryFetchLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	ws.History, ws.HistoryTokens = o.window.Window(turns)

	summary, since, err := o.store.MemoryState(ctx, ws.SessionId)
	if err != nil {
		return fmt.Errorf("load memory state: %w", err)
	}
	ws.Summary = summary
	ws.TurnsSinceSummary = since

	o.log.Debug("workflow", "history loaded", map[string]interface{}{
		"session_id": ws.SessionId,
		"turns":      len(ws.History),
		"tokens":     ws.HistoryTokens,
	})
	return nil
}

func (o *Orchestrator) decideRetrieve(ws *WorkflowState) {
	res := o.engine.Evaluate(ws.Message)
	ws.NeedRetrieval = res.Retrieve
	ws.DecisionRule = res.Rule

	o.log.Debug("workflow", "retrieval decision", map[string]interface{}{
		"session_id": ws.SessionId,
		"retrieve":   res.Retrieve,
		"rule":       res.Rule,
	})
}

// retrieve fails closed: any embedding or storage error degrades to an empty
// result set so the turn proceeds without context rather than aborting.
func (o *Orchestrator) retrieve(ctx context.Context, ws *WorkflowState) {
	embedCtx, cancel := context.WithTimeout(ctx, o.cfg.EmbedTimeout)
	defer cancel()

	queryVec, err := o.embedder.Embed(embedCtx, ws.Message)
	if err != nil {
		o.log.Warn("workflow", "query embedding failed, continuing without retrieval", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		ws.Retrieved = []rank.Candidate{}
		return
	}

	pool, err := o.store.CandidateChunks(ctx, ws.SessionId)
	if err != nil {
		o.log.Warn("workflow", "chunk load failed, continuing without retrieval", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		ws.Retrieved = []rank.Candidate{}
		return
	}

	if len(pool) == 0 {
		o.log.Info("workflow", "empty corpus for session", map[string]interface{}{
			"session_id": ws.SessionId,
			"code":       CodeEmptyCorpus,
		})
		ws.Retrieved = []rank.Candidate{}
		return
	}

	ranked := rank.RankBySimilarity(queryVec, pool)
	if ws.UseMMR {
		ws.Retrieved = rank.SelectMMR(ranked, ws.TopK, ws.Lambda)
	} else if len(ranked) > ws.TopK {
		ws.Retrieved = ranked[:ws.TopK]
	} else {
		ws.Retrieved = ranked
	}
}

func (o *Orchestrator) synthesize(ctx context.Context, ws *WorkflowState) error {
	messages := prompt.Build(ws.Summary, ws.Retrieved, ws.History, ws.Message)

	genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerateTimeout)
	defer cancel()

	reply, err := o.generator.Chat(genCtx, messages,
		llm.WithModel(ws.Model),
		llm.WithTemperature(synthesisTemperature),
		llm.WithMaxTokens(synthesisMaxTokens),
	)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	ws.Draft = reply
	ws.Termination = TerminationCompleted
	o.fillMetadata(ws, messages)

	return o.commit(ctx, ws)
}

var errClientGone = errors.New("client disconnected")

func (o *Orchestrator) synthesizeStream(ctx context.Context, ws *WorkflowState, emitter *terminalGuard) (State, error) {
	messages := prompt.Build(ws.Summary, ws.Retrieved, ws.History, ws.Message)

	genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerateTimeout)
	defer cancel()

	accumulated, err := o.generator.ChatStream(genCtx, messages, func(delta string) error {
		if sendErr := emitter.Delta(delta); sendErr != nil {
			return fmt.Errorf("%w: %v", errClientGone, sendErr)
		}
		return nil
	},
		llm.WithModel(ws.Model),
		llm.WithTemperature(synthesisTemperature),
		llm.WithMaxTokens(synthesisMaxTokens),
	)

	switch {
	case err == nil:
		ws.Draft = accumulated
		ws.Termination = TerminationCompleted
		o.fillMetadata(ws, messages)
		if commitErr := o.commit(ctx, ws); commitErr != nil {
			return StateDone, commitErr
		}
		_ = emitter.Done(ws.MessageId, len(ws.Retrieved))
		return StateSummarize, nil

	case errors.Is(err, errClientGone):
		// The transport is gone; no event can reach the client, but the
		// partial text still has to survive.
		o.log.Warn("workflow", "client disconnected mid-stream", map[string]interface{}{
			"session_id": ws.SessionId,
			"accrued":    len(accumulated),
		})
		ws.Termination = TerminationClientGone
		return o.commitPartial(ctx, ws, accumulated, messages)

	default:
		o.log.Error("workflow", "provider failed mid-stream", map[string]interface{}{
			"session_id": ws.SessionId,
			"accrued":    len(accumulated),
			"error":      err.Error(),
		})
		ws.Termination = TerminationProviderError
		next, commitErr := o.commitPartial(ctx, ws, accumulated, messages)
		if commitErr != nil {
			return StateDone, commitErr
		}
		_ = emitter.Error(ErrorCode(err), err.Error())
		if accumulated == "" {
			// Nothing was produced, nothing was committed: the turn failed
			// outright and there is nothing left to summarize.
			return StateDone, nil
		}
		return next, nil
	}
}

// commitPartial persists whatever text accumulated before the stream ended
// abnormally. With zero fragments there is no partial turn to keep.
func (o *Orchestrator) commitPartial(ctx context.Context, ws *WorkflowState, accumulated string, messages []llm.Message) (State, error) {
	if accumulated == "" {
		return StateDone, nil
	}

	ws.Draft = accumulated
	o.fillMetadata(ws, messages)
	ws.Metadata.Incomplete = true

	// The request context may already be dead (disconnect); commit under a
	// fresh deadline so persistence does not depend on the client.
	commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.commit(commitCtx, ws); err != nil {
		return StateDone, err
	}
	return StateSummarize, nil
}

func (o *Orchestrator) fillMetadata(ws *WorkflowState, messages []llm.Message) {
	promptTokens := 0
	for _, m := range messages {
		promptTokens += o.counter.Count(m.Content)
	}

	ws.Metadata = TurnMetadata{
		TokensUsed:      promptTokens + o.counter.Count(ws.Draft),
		RetrievalCount:  len(ws.Retrieved),
		ContextMessages: len(ws.History),
		Model:           ws.Model,
		Termination:     string(ws.Termination),
	}
}

func (o *Orchestrator) commit(ctx context.Context, ws *WorkflowState) error {
	messageId, err := o.store.CommitTurns(ctx, ws.SessionId, ws.Message, ws.Draft, ws.Metadata)
	if err != nil {
		return fmt.Errorf("commit turns: %w", err)
	}
	ws.MessageId = messageId

	if o.publisher != nil {
		o.publisher.TurnCommitted(ctx, ws.SessionId, messageId, ws.Metadata)
	}
	return nil
}

// summarize runs after every commit; it is a no-op until the assistant-turn
// counter reaches the interval. Failures degrade to a warning so the chat
// turn already committed is never affected.
func (o *Orchestrator) summarize(ctx context.Context, ws *WorkflowState) {
	summary, since, err := o.store.MemoryState(ctx, ws.SessionId)
	if err != nil {
		o.log.Warn("workflow", "summary state load failed", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		return
	}
	if !o.summarizer.Due(since) {
		return
	}

	turns, err := o.store.TurnsSinceSummary(ctx, ws.SessionId)
	if err != nil {
		o.log.Warn("workflow", "summary input load failed", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		return
	}

	sumCtx, cancel := context.WithTimeout(ctx, o.cfg.SummaryTimeout)
	defer cancel()

	updated, err := o.summarizer.Summarize(sumCtx, summary, turns)
	if err != nil {
		// Recoverable: counter and summary stay put for the next interval.
		o.log.Warn("workflow", "summarization failed, keeping previous summary", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		return
	}

	if err := o.store.ReplaceSummary(ctx, ws.SessionId, updated); err != nil {
		o.log.Warn("workflow", "summary persist failed", map[string]interface{}{
			"session_id": ws.SessionId,
			"error":      err.Error(),
		})
		return
	}

	ws.Summary = updated
	o.log.Info("workflow", "standing summary updated", map[string]interface{}{
		"session_id": ws.SessionId,
		"length":     len(updated),
	})
}
