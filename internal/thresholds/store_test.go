package thresholds

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(models.DefaultThresholds(), zerolog.Nop())
}

func TestReadReturnsSnapshot(t *testing.T) {
	s := newTestStore(t)

	snap := s.Read()
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
	if snap.Config.SimilarityThreshold != 0.5 || snap.Config.TopK != 5 {
		t.Errorf("unexpected defaults: %+v", snap.Config)
	}

	// Mutating the snapshot must not affect the store.
	snap.Config.TopK = 99
	if got := s.Read().Config.TopK; got != 5 {
		t.Errorf("store top_k = %d after snapshot mutation, want 5", got)
	}
}

func TestApplyParsesArrowGrammar(t *testing.T) {
	s := newTestStore(t)

	snap, applied := s.Apply(map[string]string{
		"similarity_threshold": "0.5 → 0.4 (too many misses on contact queries)",
		"top_k":                "5 → 8",
	})

	if snap.Config.SimilarityThreshold != 0.4 {
		t.Errorf("similarity = %v, want 0.4", snap.Config.SimilarityThreshold)
	}
	if snap.Config.TopK != 8 {
		t.Errorf("top_k = %d, want 8", snap.Config.TopK)
	}
	if snap.Version != 2 {
		t.Errorf("version = %d, want 2 after commit", snap.Version)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want 2 entries", applied)
	}
}

func TestApplyClampsToSafetyBands(t *testing.T) {
	tests := []struct {
		name  string
		param string
		text  string
		check func(c models.ThresholdConfig) (float64, float64)
	}{
		{"similarity floor", "similarity_threshold", "0.5 → 0.01", func(c models.ThresholdConfig) (float64, float64) { return c.SimilarityThreshold, 0.3 }},
		{"similarity ceiling", "similarity_threshold", "0.5 → 2.5", func(c models.ThresholdConfig) (float64, float64) { return c.SimilarityThreshold, 0.8 }},
		{"similarity negative", "similarity_threshold", "0.5 → -1.0", func(c models.ThresholdConfig) (float64, float64) { return c.SimilarityThreshold, 0.3 }},
		{"top_k floor", "top_k", "5 → 0", func(c models.ThresholdConfig) (float64, float64) { return float64(c.TopK), 3 }},
		{"top_k ceiling", "top_k", "5 → 50", func(c models.ThresholdConfig) (float64, float64) { return float64(c.TopK), 10 }},
		{"temperature ceiling", "temperature", "0.7 → 3.0", func(c models.ThresholdConfig) (float64, float64) { return c.Temperature, 1.0 }},
		{"validation floor", "validation_confidence", "0.7 → 0.1", func(c models.ThresholdConfig) (float64, float64) { return c.ValidationConfidence, 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			snap, _ := s.Apply(map[string]string{tt.param: tt.text})
			got, want := tt.check(snap.Config)
			if got != want {
				t.Errorf("%s = %v, want %v", tt.param, got, want)
			}
		})
	}
}

func TestApplySkipsUnparseable(t *testing.T) {
	s := newTestStore(t)

	snap, applied := s.Apply(map[string]string{
		"similarity_threshold": "make it lower please",
		"top_k":                "more is better",
		"temperature":          "0.7 → hot",
	})

	if len(applied) != 0 {
		t.Errorf("applied = %v, want none", applied)
	}
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1 (no commit)", snap.Version)
	}
	if snap.Config != models.DefaultThresholds() {
		t.Errorf("config changed: %+v", snap.Config)
	}
}

func TestApplyIgnoresUnknownParams(t *testing.T) {
	s := newTestStore(t)

	_, applied := s.Apply(map[string]string{"chunk_size": "500 → 800"})
	if len(applied) != 0 {
		t.Errorf("applied = %v, want none for unknown param", applied)
	}
}

func TestApplyBumpsVersionPerCommit(t *testing.T) {
	s := newTestStore(t)

	s.Apply(map[string]string{"top_k": "5 → 6"})
	snap, _ := s.Apply(map[string]string{"top_k": "6 → 7"})
	if snap.Version != 3 {
		t.Errorf("version = %d, want 3 after two commits", snap.Version)
	}
}
