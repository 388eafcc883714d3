package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int                       { return 3 }
func (m *mockEmbedder) HealthCheck(ctx context.Context) error { return nil }
func (m *mockEmbedder) Name() string                          { return "mock" }

type mockVectorStore struct {
	results []models.Snippet
	err     error

	gotLimit     int
	gotThreshold float64
}

func (m *mockVectorStore) Upsert(ctx context.Context, chunks []contracts.VectorChunk) error {
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.Snippet, error) {
	m.gotLimit = limit
	m.gotThreshold = threshold
	if m.err != nil {
		return nil, m.err
	}
	// Copy so re-ranking cannot mutate the fixture.
	out := make([]models.Snippet, len(m.results))
	copy(out, m.results)
	return out, nil
}

func (m *mockVectorStore) DeleteBySource(ctx context.Context, sourceID string) error { return nil }
func (m *mockVectorStore) HealthCheck(ctx context.Context) error                     { return nil }
func (m *mockVectorStore) Name() string                                              { return "mock" }

func newTestEngine(t *testing.T, store *mockVectorStore) *Engine {
	t.Helper()
	return New(&mockEmbedder{}, store, zerolog.Nop())
}

func TestRetrieveThresholdSelection(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantThreshold float64
		wantLimit     int
	}{
		{"email query", "what is your email", 0.20, 10},
		{"location query", "where is your office", 0.20, 10},
		{"address query", "what is the address", 0.20, 10},
		{"phone query", "what is your phone number", 0.25, 10},
		{"generic factual", "how do I reach you", 0.25, 10},
		{"non-factual", "what services do you offer", 0.5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockVectorStore{}
			e := newTestEngine(t, store)

			if _, err := e.Retrieve(context.Background(), tt.query, models.DefaultThresholds()); err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if store.gotThreshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", store.gotThreshold, tt.wantThreshold)
			}
			if store.gotLimit != tt.wantLimit {
				t.Errorf("limit = %v, want %v", store.gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestRetrieveEmptyResultIsNotError(t *testing.T) {
	store := &mockVectorStore{results: nil}
	e := newTestEngine(t, store)

	got, err := e.Retrieve(context.Background(), "what services do you offer", models.DefaultThresholds())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d snippets, want 0", len(got))
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	e := New(&mockEmbedder{err: errors.New("embedder down")}, &mockVectorStore{}, zerolog.Nop())

	if _, err := e.Retrieve(context.Background(), "anything at all", models.DefaultThresholds()); err == nil {
		t.Fatal("expected error from failed embedding")
	}
}

func TestRerankBoostsEmailSnippets(t *testing.T) {
	store := &mockVectorStore{results: []models.Snippet{
		{ID: "general", Content: "We offer AI and digital transformation consulting.", Similarity: 0.50},
		{ID: "contact", Content: "Reach us at info@githafconsulting.com for enquiries.", Similarity: 0.40},
	}}
	e := newTestEngine(t, store)

	got, err := e.Retrieve(context.Background(), "what is your email", models.DefaultThresholds())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got[0].ID != "contact" {
		t.Errorf("top snippet = %s, want contact chunk boosted above general", got[0].ID)
	}
	// 0.40 * 1.5 = 0.60
	if math.Abs(got[0].Similarity-0.6) > 1e-9 {
		t.Errorf("boosted similarity = %v, want 0.6", got[0].Similarity)
	}
}

func TestRerankCapsAtOne(t *testing.T) {
	store := &mockVectorStore{results: []models.Snippet{
		{ID: "a", Content: "Office: 12 High Street, London UK. Email info@githaf.com, call +44 20 1234.", Similarity: 0.95},
	}}
	e := newTestEngine(t, store)

	got, err := e.Retrieve(context.Background(), "where is your office and what is your email and phone number", models.DefaultThresholds())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got[0].Similarity > 1.0 {
		t.Errorf("similarity = %v, want <= 1.0", got[0].Similarity)
	}
	if got[0].Similarity != 1.0 {
		t.Errorf("similarity = %v, want capped at exactly 1.0", got[0].Similarity)
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	var results []models.Snippet
	for i := 0; i < 10; i++ {
		results = append(results, models.Snippet{
			ID:         string(rune('a' + i)),
			Content:    "Contact page content with info@example.com",
			Similarity: 0.3 + float64(i)*0.01,
		})
	}
	store := &mockVectorStore{results: results}
	e := newTestEngine(t, store)

	got, err := e.Retrieve(context.Background(), "email please", models.DefaultThresholds())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d snippets, want top_k=5 after re-ranking", len(got))
	}
}

func TestRerankPreservesRelativeOrderWithoutBoost(t *testing.T) {
	store := &mockVectorStore{results: []models.Snippet{
		{ID: "high", Content: "general services overview", Similarity: 0.80},
		{ID: "low", Content: "another general chunk", Similarity: 0.60},
	}}
	e := newTestEngine(t, store)

	// Factual query, but neither chunk contains corroborating signal.
	got, err := e.Retrieve(context.Background(), "what is your email", models.DefaultThresholds())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got[0].ID != "high" || got[1].ID != "low" {
		t.Errorf("order changed without boosts: %s, %s", got[0].ID, got[1].ID)
	}
}
