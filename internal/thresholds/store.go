// Package thresholds owns the process-wide retrieval/generation tunables.
// Requests read immutable snapshots; only the learning job writes, which
// keeps every pipeline run on a consistent parameter set.
package thresholds

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/models"
)

// Safety bands: a learning proposal is clamped into these regardless of what
// the analysis suggests.
const (
	minSimilarity  = 0.3
	maxSimilarity  = 0.8
	minTopK        = 3
	maxTopK        = 10
	minTemperature = 0.3
	maxTemperature = 1.0
	minValidation  = 0.5
	maxValidation  = 0.9
)

// Snapshot is one immutable version of the configuration.
type Snapshot struct {
	Version int
	Config  models.ThresholdConfig
}

// Store holds the current configuration version. Reads return value copies
// so callers can never alias the shared state.
type Store struct {
	mu      sync.RWMutex
	version int
	config  models.ThresholdConfig
	logger  zerolog.Logger
}

// New creates a store seeded with initial. Version starts at 1.
func New(initial models.ThresholdConfig, logger zerolog.Logger) *Store {
	return &Store{
		version: 1,
		config:  initial,
		logger:  logger.With().Str("component", "thresholds").Logger(),
	}
}

// Read returns the current snapshot.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Config: s.config}
}

// Apply parses the learning job's adjustment proposals and commits a new
// version. Each proposal is free text of the form "<current> → <suggested>",
// optionally followed by parenthesized reasoning. Unparseable proposals are
// skipped. The returned map records what was actually committed, after
// clamping into the per-parameter safety band.
func (s *Store) Apply(adjustments map[string]string) (Snapshot, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make(map[string]string)
	next := s.config

	for param, text := range adjustments {
		suggested, ok := parseSuggested(text)
		if !ok {
			s.logger.Warn().Str("param", param).Str("text", text).Msg("unparseable threshold adjustment, skipping")
			continue
		}

		switch param {
		case "similarity_threshold":
			old := next.SimilarityThreshold
			next.SimilarityThreshold = clamp(suggested, minSimilarity, maxSimilarity)
			applied[param] = formatChange(old, next.SimilarityThreshold)
		case "top_k":
			old := float64(next.TopK)
			next.TopK = int(clamp(suggested, minTopK, maxTopK))
			applied[param] = formatChange(old, float64(next.TopK))
		case "temperature":
			old := next.Temperature
			next.Temperature = clamp(suggested, minTemperature, maxTemperature)
			applied[param] = formatChange(old, next.Temperature)
		case "validation_confidence":
			old := next.ValidationConfidence
			next.ValidationConfidence = clamp(suggested, minValidation, maxValidation)
			applied[param] = formatChange(old, next.ValidationConfidence)
		default:
			s.logger.Warn().Str("param", param).Msg("unknown threshold parameter, skipping")
		}
	}

	if len(applied) > 0 {
		s.version++
		s.config = next
		s.logger.Info().Int("version", s.version).Interface("applied", applied).Msg("thresholds updated")
	}
	return Snapshot{Version: s.version, Config: s.config}, applied
}

// parseSuggested extracts the suggested value from "<current> → <suggested>
// (reasoning)". Only the right-hand side is used; the current value in the
// text is advisory.
func parseSuggested(text string) (float64, bool) {
	parts := strings.Split(text, "→")
	if len(parts) < 2 {
		return 0, false
	}
	rhs := parts[len(parts)-1]
	if i := strings.Index(rhs, "("); i >= 0 {
		rhs = rhs[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rhs), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func formatChange(old, updated float64) string {
	return strconv.FormatFloat(old, 'g', -1, 64) + " → " + strconv.FormatFloat(updated, 'g', -1, 64)
}
