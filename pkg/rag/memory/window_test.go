package memory

import (
	"fmt"
	"testing"

	"rag-chat-be/pkg/tokenizer"
)

func makeTurns(costs ...int) []Turn {
	turns := make([]Turn, 0, len(costs))
	for i, cost := range costs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		turns = append(turns, Turn{
			Role:       role,
			Content:    fmt.Sprintf("turn %d", i),
			TokenCount: cost,
			Sequence:   int64(i + 1),
		})
	}
	return turns
}

func TestWindowKeepsEverythingUnderBudget(t *testing.T) {
	m := NewWindowManager(100, 2, tokenizer.EstimateCounter{})
	turns := makeTurns(10, 10, 10)

	got, total := m.Window(turns)

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
}

func TestWindowTrimsOldestFirst(t *testing.T) {
	m := NewWindowManager(50, 1, tokenizer.EstimateCounter{})
	turns := makeTurns(30, 30, 20, 20)

	got, total := m.Window(turns)

	// Walking backward: 20+20=40 fits, +30 would exceed 50.
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Sequence != 3 || got[1].Sequence != 4 {
		t.Errorf("kept sequences %d,%d, want 3,4", got[0].Sequence, got[1].Sequence)
	}
	if total != 40 {
		t.Errorf("total = %d, want 40", total)
	}
}

func TestWindowMinTurnsFloorBeatsBudget(t *testing.T) {
	m := NewWindowManager(10, 4, tokenizer.EstimateCounter{})
	turns := makeTurns(100, 100, 100, 100, 100, 100)

	got, total := m.Window(turns)

	// Every turn blows the budget, but the floor guarantees the last four.
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Sequence != 3 {
		t.Errorf("oldest kept sequence = %d, want 3", got[0].Sequence)
	}
	if total != 400 {
		t.Errorf("total = %d, want 400", total)
	}
}

func TestWindowOutputIsChronological(t *testing.T) {
	m := NewWindowManager(1000, 2, tokenizer.EstimateCounter{})
	turns := makeTurns(5, 5, 5, 5, 5)

	got, _ := m.Window(turns)

	for i := 1; i < len(got); i++ {
		if got[i].Sequence <= got[i-1].Sequence {
			t.Fatalf("sequences out of order: %d then %d", got[i-1].Sequence, got[i].Sequence)
		}
	}
}

func TestWindowCountsUncostedTurns(t *testing.T) {
	m := NewWindowManager(100, 1, tokenizer.EstimateCounter{})
	turns := []Turn{
		{Role: "user", Content: "abcdefgh", TokenCount: 0, Sequence: 1}, // 8 chars, estimate 2
		{Role: "assistant", Content: "reply", TokenCount: 3, Sequence: 2},
	}

	got, total := m.Window(turns)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if total != 5 {
		t.Errorf("total = %d, want 5 (estimated 2 + stored 3)", total)
	}
}

func TestWindowEmptyInput(t *testing.T) {
	m := NewWindowManager(0, 0, tokenizer.EstimateCounter{}) // defaults apply

	got, total := m.Window(nil)

	if len(got) != 0 || total != 0 {
		t.Errorf("got %d turns, total %d, want empty", len(got), total)
	}
}
