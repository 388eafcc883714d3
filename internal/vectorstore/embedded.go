package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// DefaultMaxVectors is the default cap for the embedded store (50K).
const DefaultMaxVectors = 50_000

// EmbeddedStore is a lightweight in-memory vector store using brute-force
// cosine similarity search. Suitable for development and small knowledge
// bases (≤50K chunks). For production, use qdrant or pgvector.
type EmbeddedStore struct {
	mu         sync.RWMutex
	chunks     map[string]contracts.VectorChunk
	maxVectors int
}

// EmbeddedOption configures the embedded store.
type EmbeddedOption func(*EmbeddedStore)

// WithMaxVectors sets the maximum number of vectors (default 50K).
func WithMaxVectors(max int) EmbeddedOption {
	return func(s *EmbeddedStore) { s.maxVectors = max }
}

// NewEmbeddedStore creates an in-memory vector store.
func NewEmbeddedStore(opts ...EmbeddedOption) *EmbeddedStore {
	s := &EmbeddedStore{
		chunks:     make(map[string]contracts.VectorChunk),
		maxVectors: DefaultMaxVectors,
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Info().Int("max_vectors", s.maxVectors).Msg("Embedded vector store initialized")
	return s
}

func (s *EmbeddedStore) Name() string { return "embedded" }

func (s *EmbeddedStore) Upsert(_ context.Context, chunks []contracts.VectorChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCount := 0
	for _, c := range chunks {
		if _, exists := s.chunks[c.ID]; !exists {
			newCount++
		}
	}
	total := len(s.chunks) + newCount
	if total > s.maxVectors {
		return fmt.Errorf("embedded vector store capacity exceeded: %d > %d (consider qdrant or pgvector)", total, s.maxVectors)
	}
	if total > int(float64(s.maxVectors)*0.9) {
		log.Warn().Int("count", total).Int("max", s.maxVectors).Msg("Embedded vector store nearing capacity")
	}

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *EmbeddedStore) Search(_ context.Context, vector []float32, limit int, threshold float64) ([]models.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []models.Snippet
	for _, c := range s.chunks {
		if len(c.Vector) != len(vector) {
			continue
		}
		score := cosineSimilarity(vector, c.Vector)
		if score < threshold {
			continue
		}
		candidates = append(candidates, models.Snippet{
			ID:         c.ID,
			Content:    c.Content,
			Similarity: score,
			Metadata:   c.Metadata,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *EmbeddedStore) DeleteBySource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.SourceID == sourceID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Count reports how many chunks are stored.
func (s *EmbeddedStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *EmbeddedStore) HealthCheck(_ context.Context) error {
	return nil // always healthy — it's in-memory
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
