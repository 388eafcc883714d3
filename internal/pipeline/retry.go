package pipeline

import (
	"strings"

	"github.com/answerdesk/answerdesk/pkg/models"
)

// Adjustment is the closed set of retrieval tweaks the validator can
// request. Free-text suggestions are parsed into one of these variants
// before being applied, so the retry loop never branches on raw strings.
type Adjustment int

const (
	// AdjustNone retries with unchanged parameters. Unmatched suggestion
	// text lands here and still spends a retry from the budget.
	AdjustNone Adjustment = iota
	// AdjustLowerThreshold widens the search by dropping the similarity
	// floor 0.10, bounded below at 0.15.
	AdjustLowerThreshold
	// AdjustMoreDocuments widens the search by raising top_k to 10.
	AdjustMoreDocuments
	// AdjustRephrase nudges the threshold down 0.05, bounded below at 0.20.
	AdjustRephrase
)

// Retry bounds.
const (
	lowerThresholdStep  = 0.10
	lowerThresholdFloor = 0.15
	rephraseStep        = 0.05
	rephraseFloor       = 0.20
	wideTopK            = 10
)

func (a Adjustment) String() string {
	switch a {
	case AdjustLowerThreshold:
		return "lower_threshold"
	case AdjustMoreDocuments:
		return "more_documents"
	case AdjustRephrase:
		return "rephrase"
	default:
		return "none"
	}
}

// ParseAdjustment maps the validator's free-text suggestion onto the closed
// enum. Matching is best-effort substring containment, mirroring what the
// assessment model actually emits.
func ParseAdjustment(text string) Adjustment {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "lower threshold") || strings.Contains(lower, "expand search"):
		return AdjustLowerThreshold
	case strings.Contains(lower, "more documents") || strings.Contains(lower, "increase top_k"):
		return AdjustMoreDocuments
	case strings.Contains(lower, "rephrase"):
		return AdjustRephrase
	default:
		return AdjustNone
	}
}

// Apply derives the request-scoped parameter set for the next attempt.
// The shared ThresholdConfig is never mutated; retries work on a copy.
func (a Adjustment) Apply(cfg models.ThresholdConfig) models.ThresholdConfig {
	switch a {
	case AdjustLowerThreshold:
		cfg.SimilarityThreshold = floored(cfg.SimilarityThreshold-lowerThresholdStep, lowerThresholdFloor)
	case AdjustMoreDocuments:
		cfg.TopK = wideTopK
	case AdjustRephrase:
		cfg.SimilarityThreshold = floored(cfg.SimilarityThreshold-rephraseStep, rephraseFloor)
	}
	return cfg
}

func floored(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}
