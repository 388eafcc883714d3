// Package generation composes the grounding prompt from retrieved snippets
// and conversation history, and invokes the completion backend.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

const systemPrompt = `You are a helpful assistant for Githaf Consulting, an AI and digital
transformation consultancy. Answer the user's question using ONLY the
information in the sources below. If the sources don't contain the answer,
say you don't have that information rather than guessing.

Sources:
%s

Conversation so far:
%s

Be concise, friendly and professional. Quote exact contact details
(emails, phone numbers, addresses) verbatim from the sources.`

// noHistory is the placeholder used when the request carries no session
// context.
const noHistory = "No previous conversation."

// Generator builds grounded prompts and delegates to the LLM. Failures
// propagate to the caller; retry policy lives in the pipeline.
type Generator struct {
	llm    contracts.CompletionDriver
	logger zerolog.Logger
}

func New(llm contracts.CompletionDriver, logger zerolog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger.With().Str("component", "generation").Logger()}
}

// Generate produces a grounded answer. query must be the user's original
// phrasing — the normalized form is only for retrieval — so the reply reads
// naturally against what they actually typed.
func (g *Generator) Generate(ctx context.Context, query string, snippets []models.Snippet, history []models.ChatMessage, temperature float64) (string, error) {
	prompt := fmt.Sprintf(systemPrompt, formatContext(snippets), FormatHistory(history))

	out, err := g.llm.Complete(ctx, contracts.CompletionRequest{
		System: prompt,
		Messages: []models.ChatMessage{
			{Role: "user", Content: query},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	g.logger.Debug().Int("snippets", len(snippets)).Msg("response generated")
	return strings.TrimSpace(out), nil
}

// formatContext labels each snippet by rank so the model can cite them.
func formatContext(snippets []models.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for i, s := range snippets {
		parts = append(parts, fmt.Sprintf("[Source %d] %s", i+1, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

// FormatHistory renders conversation turns for prompt inclusion. Empty
// history yields a fixed placeholder instead of an empty block.
func FormatHistory(history []models.ChatMessage) string {
	if len(history) == 0 {
		return noHistory
	}
	var b strings.Builder
	for _, m := range history {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
