package workflow

import "github.com/google/uuid"

// Stream event types. A request's event sequence is zero or more deltas
// terminated by exactly one done or error.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is one wire event of a streaming chat response.
type StreamEvent struct {
	Type      string     `json:"type"`
	Content   string     `json:"content,omitempty"`
	MessageId *uuid.UUID `json:"message_id,omitempty"`
	Chunks    int        `json:"chunks,omitempty"`
	Message   string     `json:"message,omitempty"`
	Code      string     `json:"code,omitempty"`
}

// StreamEmitter is the transport boundary for streaming responses. A Delta
// error means the client is gone; the workflow then stops forwarding and
// falls back to partial persistence.
type StreamEmitter interface {
	Delta(content string) error
	Done(messageId uuid.UUID, chunks int) error
	Error(code, message string) error
}

// terminalGuard wraps an emitter and enforces the terminal-event protocol:
// nothing is delivered after the first done or error.
type terminalGuard struct {
	inner      StreamEmitter
	terminated bool
}

func newTerminalGuard(inner StreamEmitter) *terminalGuard {
	return &terminalGuard{inner: inner}
}

func (g *terminalGuard) Delta(content string) error {
	if g.terminated {
		return nil
	}
	return g.inner.Delta(content)
}

func (g *terminalGuard) Done(messageId uuid.UUID, chunks int) error {
	if g.terminated {
		return nil
	}
	g.terminated = true
	return g.inner.Done(messageId, chunks)
}

func (g *terminalGuard) Error(code, message string) error {
	if g.terminated {
		return nil
	}
	g.terminated = true
	return g.inner.Error(code, message)
}
