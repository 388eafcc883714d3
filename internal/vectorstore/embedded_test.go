package vectorstore

import (
	"context"
	"testing"

	"github.com/answerdesk/answerdesk/pkg/contracts"
)

func seedChunks(t *testing.T, s *EmbeddedStore) {
	t.Helper()
	err := s.Upsert(context.Background(), []contracts.VectorChunk{
		{ID: "c1", SourceID: "doc-a", Content: "contact us at hello@example.com", Vector: []float32{1, 0, 0}},
		{ID: "c2", SourceID: "doc-a", Content: "we offer consulting services", Vector: []float32{0, 1, 0}},
		{ID: "c3", SourceID: "doc-b", Content: "our office is in London", Vector: []float32{0.9, 0.1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestEmbeddedSearchOrdersByScore(t *testing.T) {
	s := NewEmbeddedStore()
	seedChunks(t, s)

	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2 above threshold", len(got))
	}
	if got[0].ID != "c1" || got[1].ID != "c3" {
		t.Errorf("order = %s, %s; want c1, c3", got[0].ID, got[1].ID)
	}
	if got[0].Similarity < got[1].Similarity {
		t.Error("results not sorted by descending similarity")
	}
}

func TestEmbeddedSearchRespectsLimit(t *testing.T) {
	s := NewEmbeddedStore()
	seedChunks(t, s)

	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 1, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
}

func TestEmbeddedDeleteBySource(t *testing.T) {
	s := NewEmbeddedStore()
	seedChunks(t, s)

	if err := s.DeleteBySource(context.Background(), "doc-a"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	count, _ := s.Count(context.Background())
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
}

func TestEmbeddedCapacity(t *testing.T) {
	s := NewEmbeddedStore(WithMaxVectors(2))

	err := s.Upsert(context.Background(), []contracts.VectorChunk{
		{ID: "c1", Vector: []float32{1, 0}},
		{ID: "c2", Vector: []float32{0, 1}},
		{ID: "c3", Vector: []float32{1, 1}},
	})
	if err == nil {
		t.Fatal("expected capacity error")
	}
}
