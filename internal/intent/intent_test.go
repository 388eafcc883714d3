package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

type mockLLM struct {
	reply string
	err   error
	calls int
}

func (m *mockLLM) Complete(ctx context.Context, req contracts.CompletionRequest) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) HealthCheck(ctx context.Context) error { return nil }
func (m *mockLLM) Name() string                          { return "mock" }

func TestClassifyPatternTier(t *testing.T) {
	c := New(nil, zerolog.Nop())

	tests := []struct {
		query string
		want  models.Intent
	}{
		{"hello", models.IntentGreeting},
		{"Hi there!", models.IntentGreeting},
		{"good morning", models.IntentGreeting},
		{"bye", models.IntentFarewell},
		{"see you later", models.IntentFarewell},
		{"thanks a lot", models.IntentGratitude},
		{"thank you", models.IntentGratitude},
		{"help", models.IntentHelp},
		{"what can you do", models.IntentHelp},
		{"how are you", models.IntentChitChat},
		{"who are you?", models.IntentChitChat},
		{"are you a bot", models.IntentChitChat},
		{"yes", models.IntentChitChat},
		{"okay", models.IntentChitChat},
		{"what's the weather today", models.IntentOutOfScope},
		{"tell me a joke", models.IntentOutOfScope},
		{"what services do you offer?", models.IntentQuestion},
		{"how do I contact support", models.IntentQuestion},
		{"where is your office located", models.IntentQuestion},
		{"email", models.IntentUnclear},
		{"", models.IntentUnclear},
	}

	for _, tt := range tests {
		got, conf := c.Classify(context.Background(), tt.query)
		if got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.query, got, tt.want)
		}
		if conf <= 0 || conf > 1 {
			t.Errorf("Classify(%q) confidence = %v, want in (0,1]", tt.query, conf)
		}
	}
}

func TestClassifyLLMFallback(t *testing.T) {
	llm := &mockLLM{reply: "out_of_scope"}
	c := New(llm, zerolog.Nop())

	got, conf := c.Classify(context.Background(), "the quarterly synergy report draft")
	if got != models.IntentOutOfScope {
		t.Errorf("intent = %s, want out_of_scope", got)
	}
	if conf != llmConfidence {
		t.Errorf("confidence = %v, want %v", conf, llmConfidence)
	}
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1", llm.calls)
	}
}

func TestClassifyLLMFailureDefaultsToQuestion(t *testing.T) {
	llm := &mockLLM{err: errors.New("backend down")}
	c := New(llm, zerolog.Nop())

	got, conf := c.Classify(context.Background(), "the quarterly synergy report draft")
	if got != models.IntentQuestion {
		t.Errorf("intent = %s, want question on LLM failure", got)
	}
	if conf != fallbackConfidence {
		t.Errorf("confidence = %v, want %v", conf, fallbackConfidence)
	}
}

func TestClassifyLLMUnknownLabel(t *testing.T) {
	llm := &mockLLM{reply: "banter"}
	c := New(llm, zerolog.Nop())

	got, _ := c.Classify(context.Background(), "the quarterly synergy report draft")
	if got != models.IntentQuestion {
		t.Errorf("intent = %s, want question for unknown label", got)
	}
}

func TestRoutesToRetrieval(t *testing.T) {
	for _, in := range models.AllIntents {
		want := in == models.IntentQuestion
		// Stable across repeated calls.
		for i := 0; i < 3; i++ {
			if got := in.RoutesToRetrieval(); got != want {
				t.Errorf("RoutesToRetrieval(%s) = %v, want %v", in, got, want)
			}
		}
	}
}
