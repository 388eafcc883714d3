package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIEmbedRetriesTransientFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2],"index":0}]}`)
	}))
	defer srv.Close()

	d := NewOpenAIDriver("test-key", "text-embedding-3-small", WithOpenAIEndpoint(srv.URL))
	vectors, err := d.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(vectors) != 1 || len(vectors[0]) != 2 {
		t.Fatalf("vectors = %v, want one 2-dim vector", vectors)
	}
}

func TestOpenAIEmbedDoesNotRetryAuthFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	d := NewOpenAIDriver("bad-key", "text-embedding-3-small", WithOpenAIEndpoint(srv.URL))
	_, err := d.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("Embed() error = nil, want auth error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want 401 status", err)
	}
}

func TestOpenAIEmbedReordersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[2],"index":1},{"embedding":[1],"index":0}]}`)
	}))
	defer srv.Close()

	d := NewOpenAIDriver("test-key", "text-embedding-3-small", WithOpenAIEndpoint(srv.URL))
	vectors, err := d.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][0] != 2 {
		t.Errorf("vectors = %v, want reordered by index", vectors)
	}
}
