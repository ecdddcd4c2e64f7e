package prompt

import (
	"fmt"
	"strings"

	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/rag/memory"
	"rag-chat-be/pkg/rag/rank"
)

// SystemPrompt primes the assistant for knowledge-base answering.
const SystemPrompt = "You are a helpful AI assistant with access to a knowledge base. " +
	"Answer questions accurately based on the provided context. If the context doesn't " +
	"contain relevant information, say so clearly. Be concise but comprehensive."

// Build assembles the full message sequence for synthesis: system prompt,
// standing summary, retrieved context, history window, then the incoming user
// message. Streaming and non-streaming synthesis both go through here so the
// two paths can never drift apart.
func Build(summary string, chunks []rank.Candidate, history []memory.Turn, userMessage string) []llm.Message {
	messages := []llm.Message{
		{Role: "system", Content: SystemPrompt},
	}

	if summary != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Previous conversation summary: " + summary,
		})
	}

	if len(chunks) > 0 {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Relevant information from knowledge base:\n\n" + FormatRetrievedChunks(chunks),
		})
	}

	for _, turn := range history {
		// The incoming message is appended last; skip it if the window
		// already holds it.
		if turn.Content == userMessage {
			continue
		}
		messages = append(messages, llm.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	messages = append(messages, llm.Message{
		Role:    "user",
		Content: SanitizeUserInput(userMessage),
	})

	return messages
}

// FormatRetrievedChunks renders retrieved passages as numbered, source-tagged
// blocks for inclusion in a system message.
func FormatRetrievedChunks(chunks []rank.Candidate) string {
	if len(chunks) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		doc := chunk.Document
		if doc == "" {
			doc = "Unknown"
		}
		formatted = append(formatted, fmt.Sprintf(
			"[Source %d: %s (relevance: %.2f)]\n%s", i+1, doc, chunk.Score, chunk.Text))
	}

	return strings.Join(formatted, "\n\n")
}

var injectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous",
	"system:",
	"assistant:",
	"<|im_start|>",
	"<|im_end|>",
	"<|endoftext|>",
}

// SanitizeUserInput strips known prompt-injection markers from user text
// before it reaches the model.
func SanitizeUserInput(message string) string {
	cleaned := message
	for _, pattern := range injectionPatterns {
		cleaned = strings.ReplaceAll(cleaned, pattern, "")
	}
	return strings.TrimSpace(cleaned)
}
