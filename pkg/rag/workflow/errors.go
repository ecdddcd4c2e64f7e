package workflow

import (
	"errors"

	"rag-chat-be/pkg/llm"
)

// ErrSessionNotFound fails a request fast before any workflow state is built.
var ErrSessionNotFound = errors.New("workflow: session not found")

// Error codes surfaced to callers.
const (
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeLLMAuthError      = "LLM_AUTH_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeGenerationTimeout = "GENERATION_TIMEOUT"
	CodeGenerationError   = "GENERATION_ERROR"

	// Informational: retrieval over an empty corpus returns empty results,
	// never this as a failure.
	CodeEmptyCorpus = "EMPTY_CORPUS"
)

// ErrorCode maps a workflow error to its caller-facing code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, llm.ErrAuth):
		return CodeLLMAuthError
	case errors.Is(err, llm.ErrRateLimited):
		return CodeRateLimitExceeded
	case errors.Is(err, llm.ErrTimeout):
		return CodeGenerationTimeout
	default:
		return CodeGenerationError
	}
}
