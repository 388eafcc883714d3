// Package retrieval embeds queries, fetches candidate snippets from the
// vector store and re-ranks them with domain-specific boosts for factual
// queries (contact details, addresses) whose answer chunks tend to score
// low on raw cosine similarity.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// Queries containing any of these words ask for exact facts and get a
// relaxed similarity floor plus re-ranking.
var factualKeywords = []string{
	"email", "phone", "contact", "address", "number",
	"reach", "call", "location", "where", "office",
}

// locationMarkers is corroborating signal that a chunk carries address info.
var locationMarkers = []string{
	"street", "london", "uk", "uae", "city", "mailing address", "office:",
}

// Relaxed thresholds for factual queries. Email/location chunks score the
// lowest on similarity, so they get the lowest floor.
const (
	contactThreshold = 0.20
	factualThreshold = 0.25
)

// Boost factors applied when a snippet contains the fact the query asks for.
const (
	emailBoost    = 1.5
	phoneBoost    = 1.3
	locationBoost = 1.6
)

// Engine runs the embed → search → re-rank sequence.
type Engine struct {
	embedder contracts.EmbeddingDriver
	store    contracts.VectorStoreDriver
	logger   zerolog.Logger
}

func New(embedder contracts.EmbeddingDriver, store contracts.VectorStoreDriver, logger zerolog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		store:    store,
		logger:   logger.With().Str("component", "retrieval").Logger(),
	}
}

// Retrieve returns the snippets relevant to the normalized query, at most
// cfg.TopK of them. An empty result is a normal outcome meaning nothing
// cleared the threshold, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, cfg models.ThresholdConfig) ([]models.Snippet, error) {
	lower := strings.ToLower(query)
	factual := isFactual(lower)

	threshold := cfg.SimilarityThreshold
	switch {
	case strings.Contains(lower, "email") || strings.Contains(lower, "location") ||
		strings.Contains(lower, "where") || strings.Contains(lower, "address"):
		threshold = contactThreshold
	case factual:
		threshold = factualThreshold
	}

	// Factual queries fetch double the candidates so re-ranking has headroom.
	limit := cfg.TopK
	if factual {
		limit = cfg.TopK * 2
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	e.logger.Debug().
		Float64("threshold", threshold).
		Int("limit", limit).
		Bool("factual", factual).
		Msg("similarity search")

	snippets, err := e.store.Search(ctx, vectors[0], limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(snippets) == 0 {
		return nil, nil
	}

	if factual {
		snippets = rerank(lower, snippets, cfg.TopK)
		e.logger.Debug().Int("kept", len(snippets)).Msg("re-ranked factual results")
	}
	return snippets, nil
}

func isFactual(lower string) bool {
	for _, kw := range factualKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// rerank boosts snippets containing the fact the query asks for, re-sorts
// by the boosted similarity and truncates to topK. Boosts compound but each
// application caps the score at 1.0.
func rerank(queryLower string, snippets []models.Snippet, topK int) []models.Snippet {
	needsEmail := strings.Contains(queryLower, "email")
	needsPhone := strings.Contains(queryLower, "phone") ||
		strings.Contains(queryLower, "call") || strings.Contains(queryLower, "number")
	needsLocation := strings.Contains(queryLower, "location") ||
		strings.Contains(queryLower, "where") || strings.Contains(queryLower, "address") ||
		strings.Contains(queryLower, "office")

	for i := range snippets {
		content := strings.ToLower(snippets[i].Content)

		if needsEmail && strings.Contains(content, "@") {
			snippets[i].Similarity = boosted(snippets[i].Similarity, emailBoost)
		}
		if needsPhone && (strings.Contains(content, "+") || containsDigit(content)) {
			snippets[i].Similarity = boosted(snippets[i].Similarity, phoneBoost)
		}
		if needsLocation && containsAny(content, locationMarkers) {
			snippets[i].Similarity = boosted(snippets[i].Similarity, locationBoost)
		}
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Similarity > snippets[j].Similarity
	})

	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets
}

func boosted(similarity, factor float64) float64 {
	v := similarity * factor
	if v > 1.0 {
		return 1.0
	}
	return v
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
