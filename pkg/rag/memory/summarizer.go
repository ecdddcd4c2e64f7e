package memory

import (
	"context"
	"fmt"
	"strings"

	"rag-chat-be/pkg/llm"
)

// Summarizer compresses conversation history into a standing summary. It is
// invoked by the workflow after every interval of committed assistant turns;
// each new summary supersedes the prior one rather than appending to it.
type Summarizer struct {
	provider llm.LLMProvider
	interval int
}

const (
	DefaultSummaryInterval = 5

	summarySystemPrompt = "You are a helpful assistant that creates concise conversation summaries."

	// Output is capped well below the window budget so the standing summary
	// never crowds out live history.
	summaryMaxTokens   = 200
	summaryTemperature = 0.5
)

func NewSummarizer(provider llm.LLMProvider, interval int) *Summarizer {
	if interval <= 0 {
		interval = DefaultSummaryInterval
	}
	return &Summarizer{
		provider: provider,
		interval: interval,
	}
}

// Interval returns the assistant-turn count between summary updates.
func (s *Summarizer) Interval() int {
	return s.interval
}

// Due reports whether the assistant-turn counter has reached the interval.
func (s *Summarizer) Due(assistantTurnsSinceSummary int) bool {
	return assistantTurnsSinceSummary >= s.interval
}

// Summarize generates a replacement standing summary from the prior summary
// (if any) plus the turns recorded since it. The caller owns persisting the
// result and resetting the counter; a returned error leaves both untouched.
func (s *Summarizer) Summarize(ctx context.Context, priorSummary string, turns []Turn) (string, error) {
	if len(turns) == 0 && priorSummary == "" {
		return "", fmt.Errorf("summarize: nothing to summarize")
	}

	var sb strings.Builder
	if priorSummary != "" {
		sb.WriteString("Summary of the conversation so far:\n")
		sb.WriteString(priorSummary)
		sb.WriteString("\n\nNew messages since that summary:\n")
	}
	for _, turn := range turns {
		sb.WriteString(capitalizeRole(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}

	summary, err := s.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Create a brief summary of this conversation (2-3 sentences):\n\n%s", sb.String())},
	},
		llm.WithTemperature(summaryTemperature),
		llm.WithMaxTokens(summaryMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("generate summary: model returned empty text")
	}
	return summary, nil
}

func capitalizeRole(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
