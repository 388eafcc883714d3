package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
)

// ollamaRetries bounds the per-text retry budget for transient failures.
const ollamaRetries = 3

// OllamaDriver embeds text through a local Ollama server.
// Supports nomic-embed-text (768d), mxbai-embed-large (1024d), all-minilm (384d).
type OllamaDriver struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaDriver creates an Ollama embedding driver. host defaults to
// http://localhost:11434 when empty.
func NewOllamaDriver(host, model string, dimensions int) (*OllamaDriver, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	if dimensions <= 0 {
		switch model {
		case "mxbai-embed-large":
			dimensions = 1024
		case "all-minilm", "all-minilm:l6-v2":
			dimensions = 384
		default:
			dimensions = 768
		}
	}

	return &OllamaDriver{
		client:     api.NewClient(base, &http.Client{Timeout: 120 * time.Second}),
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (d *OllamaDriver) Name() string    { return "ollama" }
func (d *OllamaDriver) Dimensions() int { return d.dimensions }

// Embed generates one vector per text. Each request retries with exponential
// backoff since local Ollama tends to fail transiently while loading models.
func (d *OllamaDriver) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := d.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (d *OllamaDriver) embedOne(ctx context.Context, text string) ([]float32, error) {
	var embedding []float64

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), ollamaRetries), ctx)
	err := backoff.Retry(func() error {
		resp, err := d.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  d.model,
			Prompt: text,
		})
		if err != nil {
			return err
		}
		embedding = resp.Embedding
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}

	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// HealthCheck verifies Ollama is reachable and the model can embed.
func (d *OllamaDriver) HealthCheck(ctx context.Context) error {
	_, err := d.embedOne(ctx, "health check")
	return err
}
