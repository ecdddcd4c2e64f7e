package workflow

import (
	"github.com/google/uuid"

	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/rank"
)

// State enumerates the workflow's nodes. Transitions are sequential except
// for the conditional Retrieve branch.
type State int

const (
	StateLoadHistory State = iota
	StateDecideRetrieve
	StateRetrieve
	StateSynthesize
	StateSummarize
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLoadHistory:
		return "load_history"
	case StateDecideRetrieve:
		return "decide_retrieve"
	case StateRetrieve:
		return "retrieve"
	case StateSynthesize:
		return "synthesize"
	case StateSummarize:
		return "summarize"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Termination records why a request's generation ended.
type Termination string

const (
	TerminationCompleted     Termination = "completed"
	TerminationClientGone    Termination = "client_disconnect"
	TerminationProviderError Termination = "provider_error"
)

// TurnMetadata is persisted alongside the assistant turn for downstream
// inspection.
type TurnMetadata struct {
	TokensUsed      int    `json:"tokens_used"`
	RetrievalCount  int    `json:"retrieval_count"`
	ContextMessages int    `json:"context_messages"`
	Model           string `json:"model"`
	Incomplete      bool   `json:"incomplete,omitempty"`
	Termination     string `json:"termination,omitempty"`
}

// WorkflowState carries one request through the machine. It exists for the
// request's lifetime only; its effects (new turns, updated summary) are
// persisted through the Store at the commit points.
type WorkflowState struct {
	// Session & input
	SessionId uuid.UUID
	Message   string
	Model     string

	// Retrieval configuration
	TopK   int
	UseMMR bool
	Lambda float64

	// Context loading
	History           []memory.Turn
	HistoryTokens     int
	Summary           string
	TurnsSinceSummary int

	// Retrieval decision & results
	NeedRetrieval bool
	DecisionRule  string
	Retrieved     []rank.Candidate

	// Synthesis
	Draft       string
	MessageId   uuid.UUID
	Metadata    TurnMetadata
	Termination Termination
}
