// Package contracts defines the driver interfaces the pipeline is wired
// against. Concrete implementations live under internal/ and register
// themselves with their package registries.
package contracts

import (
	"context"

	"github.com/answerdesk/answerdesk/pkg/models"
)

// EmbeddingDriver turns text into vectors.
type EmbeddingDriver interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector width the driver produces.
	Dimensions() int
	// HealthCheck verifies the backing service is reachable.
	HealthCheck(ctx context.Context) error
	Name() string
}

// VectorStoreDriver stores and searches embedded chunks.
type VectorStoreDriver interface {
	Upsert(ctx context.Context, chunks []VectorChunk) error
	// Search returns up to limit chunks with similarity >= threshold, ordered
	// by descending similarity. No result is not an error.
	Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.Snippet, error)
	DeleteBySource(ctx context.Context, sourceID string) error
	HealthCheck(ctx context.Context) error
	Name() string
}

// VectorChunk is a single embedded piece of a document.
type VectorChunk struct {
	ID       string
	SourceID string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// CompletionRequest is a provider-agnostic chat completion call.
type CompletionRequest struct {
	System      string
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float64
}

// CompletionDriver produces chat completions from an LLM provider.
type CompletionDriver interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	HealthCheck(ctx context.Context) error
	Name() string
}

// PlanningService handles complex queries that need multi-step reasoning
// instead of a single retrieval pass.
type PlanningService interface {
	// ShouldPlan reports whether the query is complex enough to plan.
	ShouldPlan(query string) bool
	Execute(ctx context.Context, query string, history []models.ChatMessage) (models.PlanResult, error)
}
