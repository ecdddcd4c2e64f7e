package decision

import "testing"

func TestEvaluate(t *testing.T) {
	engine := NewEngine(DefaultWordThreshold)

	tests := []struct {
		name         string
		message      string
		wantRetrieve bool
		wantRule     string
	}{
		{
			name:         "bare greeting",
			message:      "hi",
			wantRetrieve: false,
			wantRule:     "greeting",
		},
		{
			name:         "greeting with punctuation",
			message:      "thanks!",
			wantRetrieve: false,
			wantRule:     "greeting",
		},
		{
			name:         "two word acknowledgement",
			message:      "thank you",
			wantRetrieve: false,
			wantRule:     "greeting",
		},
		{
			name:         "greeting beats question mark",
			message:      "hello?",
			wantRetrieve: false,
			wantRule:     "greeting",
		},
		{
			name:         "question mark",
			message:      "What is machine learning?",
			wantRetrieve: true,
			wantRule:     "question_mark",
		},
		{
			name:         "question word without question mark",
			message:      "explain the training loop",
			wantRetrieve: true,
			wantRule:     "question_word",
		},
		{
			name:         "question word embedded in a longer word",
			message:      "whatever happened to it",
			wantRetrieve: true,
			wantRule:     "question_word",
		},
		{
			name:         "question word and document reference",
			message:      "Can you explain how gradient descent works in this document",
			wantRetrieve: true,
			wantRule:     "question_word",
		},
		{
			name:         "document reference alone",
			message:      "summarize according to the file",
			wantRetrieve: true,
			wantRule:     "document_reference",
		},
		{
			name:         "long message",
			message:      "the model converged after three epochs and validation loss stayed flat for the rest of training",
			wantRetrieve: true,
			wantRule:     "long_message",
		},
		{
			name:         "short statement matches nothing",
			message:      "the build is green now",
			wantRetrieve: false,
			wantRule:     "default",
		},
		{
			name:         "mixed case greeting",
			message:      "  HELLO  ",
			wantRetrieve: false,
			wantRule:     "greeting",
		},
		{
			name:         "empty message",
			message:      "",
			wantRetrieve: false,
			wantRule:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(tt.message)
			if got.Retrieve != tt.wantRetrieve {
				t.Errorf("Retrieve = %v, want %v", got.Retrieve, tt.wantRetrieve)
			}
			if got.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", got.Rule, tt.wantRule)
			}
		})
	}
}

func TestShouldRetrieveMatchesEvaluate(t *testing.T) {
	engine := NewEngine(0) // falls back to the default threshold

	for _, msg := range []string{"hi", "What changed?", "describe the rollout", "ok"} {
		if engine.ShouldRetrieve(msg) != engine.Evaluate(msg).Retrieve {
			t.Errorf("ShouldRetrieve(%q) disagrees with Evaluate", msg)
		}
	}
}

func TestCustomWordThreshold(t *testing.T) {
	engine := NewEngine(3)

	got := engine.Evaluate("one two three four")
	if !got.Retrieve || got.Rule != "long_message" {
		t.Errorf("four words over threshold 3: got %+v", got)
	}

	got = engine.Evaluate("one two three")
	if got.Retrieve {
		t.Errorf("at threshold should not retrieve: got %+v", got)
	}
}
