package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/answerdesk/answerdesk/pkg/contracts"
)

// OllamaDriver produces completions through a local Ollama server.
type OllamaDriver struct {
	client *api.Client
	host   string
	model  string
	http   *http.Client
}

// NewOllamaDriver creates an Ollama completion driver. host defaults to
// http://localhost:11434 when empty.
func NewOllamaDriver(host, model string) (*OllamaDriver, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &OllamaDriver{
		client: api.NewClient(base, httpClient),
		host:   host,
		model:  model,
		http:   httpClient,
	}, nil
}

func (d *OllamaDriver) Name() string { return "ollama" }

// Complete sends a non-streaming chat request and returns the reply text.
func (d *OllamaDriver) Complete(ctx context.Context, req contracts.CompletionRequest) (string, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	stream := false
	var reply strings.Builder
	err := d.client.Chat(ctx, &api.ChatRequest{
		Model:    d.model,
		Messages: messages,
		Options:  options,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return reply.String(), nil
}

// HealthCheck verifies the Ollama server is running by listing models.
func (d *OllamaDriver) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.host+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: status %d", resp.StatusCode)
	}
	return nil
}
