package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-chat-be/pkg/llm"
)

type capturingProvider struct {
	reply   string
	err     error
	history []llm.Message
	opts    llm.Options
}

func (p *capturingProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.history = history
	for _, opt := range options {
		opt(&p.opts)
	}
	return p.reply, p.err
}

func (p *capturingProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, options ...llm.Option) (string, error) {
	return p.Chat(ctx, history, options...)
}

func (p *capturingProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.reply, p.err
}

func TestDue(t *testing.T) {
	s := NewSummarizer(&capturingProvider{}, 5)

	if s.Due(4) {
		t.Error("Due(4) with interval 5 should be false")
	}
	if !s.Due(5) {
		t.Error("Due(5) with interval 5 should be true")
	}
	if !s.Due(9) {
		t.Error("Due(9) with interval 5 should be true")
	}
}

func TestNewSummarizerDefaultsInterval(t *testing.T) {
	s := NewSummarizer(&capturingProvider{}, 0)
	if s.Interval() != DefaultSummaryInterval {
		t.Errorf("Interval = %d, want %d", s.Interval(), DefaultSummaryInterval)
	}
}

func TestSummarizePromptIncludesPriorSummaryAndTurns(t *testing.T) {
	p := &capturingProvider{reply: "A fresh summary."}
	s := NewSummarizer(p, 5)

	turns := []Turn{
		{Role: "user", Content: "how does caching work"},
		{Role: "assistant", Content: "it stores hot values"},
	}

	got, err := s.Summarize(context.Background(), "They discussed databases.", turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A fresh summary." {
		t.Errorf("summary = %q", got)
	}

	if len(p.history) != 2 {
		t.Fatalf("len(history) = %d, want system + user", len(p.history))
	}
	if p.history[0].Role != "system" {
		t.Errorf("first message role = %q, want system", p.history[0].Role)
	}

	userMsg := p.history[1].Content
	for _, want := range []string{
		"They discussed databases.",
		"User: how does caching work",
		"Assistant: it stores hot values",
	} {
		if !strings.Contains(userMsg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if p.opts.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", p.opts.Temperature)
	}
	if p.opts.MaxTokens != 200 {
		t.Errorf("max tokens = %d, want 200", p.opts.MaxTokens)
	}
}

func TestSummarizeWithoutPriorSummary(t *testing.T) {
	p := &capturingProvider{reply: "First summary."}
	s := NewSummarizer(p, 5)

	_, err := s.Summarize(context.Background(), "", []Turn{{Role: "user", Content: "hello there"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(p.history[1].Content, "Summary of the conversation so far") {
		t.Error("prompt should not reference a prior summary when there is none")
	}
}

func TestSummarizeNothingToSummarize(t *testing.T) {
	s := NewSummarizer(&capturingProvider{reply: "x"}, 5)

	if _, err := s.Summarize(context.Background(), "", nil); err == nil {
		t.Error("expected error with no turns and no prior summary")
	}
}

func TestSummarizeProviderFailure(t *testing.T) {
	p := &capturingProvider{err: errors.New("model unavailable")}
	s := NewSummarizer(p, 5)

	if _, err := s.Summarize(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("expected provider error to propagate")
	}
}

func TestSummarizeRejectsEmptyModelOutput(t *testing.T) {
	p := &capturingProvider{reply: "   \n"}
	s := NewSummarizer(p, 5)

	if _, err := s.Summarize(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("expected error for whitespace-only summary")
	}
}
