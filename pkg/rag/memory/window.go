package memory

import (
	"time"

	"rag-chat-be/pkg/tokenizer"
)

// Turn is one immutable conversation message as seen by the memory layer.
type Turn struct {
	Role       string
	Content    string
	TokenCount int
	Sequence   int64
	CreatedAt  time.Time
}

// WindowManager produces the trailing, token-bounded slice of a session's
// turns to include in the prompt. Trimming removes from the oldest end only;
// the output is contiguous and chronological.
type WindowManager struct {
	tokenBudget int
	minTurns    int
	counter     tokenizer.Counter
}

const (
	DefaultTokenBudget = 3000
	DefaultMinTurns    = 6
)

func NewWindowManager(tokenBudget, minTurns int, counter tokenizer.Counter) *WindowManager {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if minTurns <= 0 {
		minTurns = DefaultMinTurns
	}
	return &WindowManager{
		tokenBudget: tokenBudget,
		minTurns:    minTurns,
		counter:     counter,
	}
}

// Window walks backward from the most recent turn, keeping turns while the
// running token total stays within budget. The minimum-turn floor wins over
// the budget: the last minTurns turns are always included whatever they cost.
// The second return value is the token total of the included turns.
func (m *WindowManager) Window(turns []Turn) ([]Turn, int) {
	included := make([]Turn, 0, len(turns))
	total := 0

	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		cost := turn.TokenCount
		if cost == 0 {
			cost = m.counter.Count(turn.Content)
		}

		if total+cost > m.tokenBudget && len(included) >= m.minTurns {
			break
		}
		included = append(included, turn)
		total += cost
	}

	// Reverse back to chronological order.
	for i, j := 0, len(included)-1; i < j; i, j = i+1, j-1 {
		included[i], included[j] = included[j], included[i]
	}

	return included, total
}
