// Package learning implements the self-improvement loop: low-rated feedback
// is analyzed with an LLM, and high-confidence threshold suggestions are
// committed to the threshold store as a new configuration version.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/internal/store"
	"github.com/answerdesk/answerdesk/internal/thresholds"
	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// Adjustments only commit when the analysis reports at least this much
// confidence.
const defaultMinConfidence = 0.6

// At most this many samples are inlined into the analysis prompt.
const samplePromptLimit = 5

const analysisPrompt = `You are an AI quality analyst. Analyze these low-rated customer service responses and identify patterns:

Total responses analyzed: %d

Sample responses (first %d):
%s

Identify:
1. Common Issues: What patterns do you see in failed responses?
2. Root Causes: Why are these responses failing?
3. Threshold Adjustments: Should we adjust similarity_threshold, top_k, or temperature?
4. Knowledge Gaps: What topics need more documentation?
5. Actionable Recommendations: Specific steps to improve

Respond in this EXACT format:

COMMON_ISSUES:
- Issue 1
- Issue 2

ROOT_CAUSES:
- Cause 1
- Cause 2

THRESHOLD_ADJUSTMENTS:
similarity_threshold: current_value → suggested_value (reasoning)
top_k: current_value → suggested_value (reasoning)
temperature: current_value → suggested_value (reasoning)

KNOWLEDGE_GAPS:
- Topic 1
- Topic 2

RECOMMENDATIONS:
1. Recommendation 1
2. Recommendation 2

CONFIDENCE: 0.0-1.0

Analysis:`

const gapsPrompt = `Analyze these user queries that received low satisfaction ratings and group them by topic/theme:

Queries (first 10):
%s

Total queries: %d

Identify the top 5 knowledge gap topics. For each topic, provide:
- Topic name
- Number of related queries (estimate)
- Severity (high/medium/low)
- Suggested action

Respond in this format:

TOPIC 1: [name]
Queries: [count]
Severity: [high/medium/low]
Action: [what content is needed]

TOPIC 2: [name]
...

Topics:`

// Service runs the learning job. Runs are mutually exclusive: a trigger
// while a run is in flight is rejected rather than queued.
type Service struct {
	store         store.Store
	llm           contracts.CompletionDriver
	thresholds    *thresholds.Store
	minConfidence float64
	window        time.Duration
	logger        zerolog.Logger

	mu      sync.Mutex
	running bool
}

// ErrAlreadyRunning is returned when a run is triggered while one is active.
var ErrAlreadyRunning = fmt.Errorf("learning job already running")

func New(s store.Store, llm contracts.CompletionDriver, th *thresholds.Store, minConfidence float64, windowDays int, logger zerolog.Logger) *Service {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Service{
		store:         s,
		llm:           llm,
		thresholds:    th,
		minConfidence: minConfidence,
		window:        time.Duration(windowDays) * 24 * time.Hour,
		logger:        logger.With().Str("component", "learning").Logger(),
	}
}

// Run executes one learning pass. Safe to call from the scheduler and the
// admin endpoint; concurrent triggers get ErrAlreadyRunning.
func (s *Service) Run(ctx context.Context) (*models.LearningReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now().UTC()
	report := &models.LearningReport{
		StartedAt:          started,
		AdjustmentsApplied: map[string]string{},
	}

	analysis, err := s.analyze(ctx)
	if err != nil {
		report.Success = false
		report.Message = "learning job failed"
		report.FinishedAt = time.Now().UTC()
		report.Thresholds = s.thresholds.Read().Config
		s.logger.Error().Err(err).Msg("learning job failed")
		return report, err
	}
	report.Analysis = analysis

	if analysis.TotalAnalyzed == 0 {
		report.Success = true
		report.Message = "no feedback to analyze"
		report.FinishedAt = time.Now().UTC()
		report.Thresholds = s.thresholds.Read().Config
		s.logger.Info().Msg("no low-rated feedback in window")
		return report, nil
	}

	if analysis.Confidence >= s.minConfidence && len(analysis.ThresholdAdjustments) > 0 {
		snap, applied := s.thresholds.Apply(analysis.ThresholdAdjustments)
		report.AdjustmentsApplied = applied
		report.Thresholds = snap.Config
		report.Message = fmt.Sprintf("analyzed %d responses, applied %d adjustments", analysis.TotalAnalyzed, len(applied))
	} else {
		report.Thresholds = s.thresholds.Read().Config
		report.Message = "analysis complete, no adjustments applied (low confidence)"
	}

	report.Success = true
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// Running reports whether a learning pass is in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) analyze(ctx context.Context) (*models.FeedbackAnalysis, error) {
	since := time.Now().UTC().Add(-s.window)
	samples, err := s.store.ListLowRatedFeedback(ctx, since, 100)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if len(samples) == 0 {
		return &models.FeedbackAnalysis{TotalAnalyzed: 0, Confidence: 1.0}, nil
	}

	preview := samples
	if len(preview) > samplePromptLimit {
		preview = preview[:samplePromptLimit]
	}
	sampleJSON, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal samples: %w", err)
	}

	out, err := s.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(analysisPrompt, len(samples), samplePromptLimit, sampleJSON)},
		},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis call: %w", err)
	}

	analysis := ParseAnalysis(out)
	analysis.TotalAnalyzed = len(samples)
	s.logger.Info().Int("issues", len(analysis.IssuesFound)).Float64("confidence", analysis.Confidence).Msg("analysis complete")
	return analysis, nil
}

// ParseAnalysis reads the sectioned analysis protocol. Unknown lines are
// ignored; missing sections leave the defaults in place.
func ParseAnalysis(text string) *models.FeedbackAnalysis {
	result := &models.FeedbackAnalysis{
		ThresholdAdjustments: map[string]string{},
		Confidence:           0.7,
	}

	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "COMMON_ISSUES:"):
			section = "issues"
		case strings.HasPrefix(line, "ROOT_CAUSES:"):
			section = "causes"
		case strings.HasPrefix(line, "THRESHOLD_ADJUSTMENTS:"):
			section = "thresholds"
		case strings.HasPrefix(line, "KNOWLEDGE_GAPS:"):
			section = "gaps"
		case strings.HasPrefix(line, "RECOMMENDATIONS:"):
			section = "recommendations"
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")), 64); err == nil {
				result.Confidence = v
			}
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•"):
			item := strings.TrimSpace(strings.TrimLeft(line, "-•"))
			switch section {
			case "issues":
				result.IssuesFound = append(result.IssuesFound, item)
			case "causes":
				result.RootCauses = append(result.RootCauses, item)
			case "gaps":
				result.KnowledgeGaps = append(result.KnowledgeGaps, item)
			}
		case line != "" && section == "thresholds" && strings.Contains(line, ":") && strings.Contains(line, "→"):
			parts := strings.SplitN(line, ":", 2)
			result.ThresholdAdjustments[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		case line != "" && section == "recommendations" && line[0] >= '0' && line[0] <= '9':
			rec := line
			if i := strings.Index(line, "."); i >= 0 {
				rec = strings.TrimSpace(line[i+1:])
			}
			result.Recommendations = append(result.Recommendations, rec)
		}
	}
	return result
}

// KnowledgeGaps asks the LLM to cluster recent low-rated queries into topic
// gaps. Returns an empty list on any failure.
func (s *Service) KnowledgeGaps(ctx context.Context, windowDays int) []models.KnowledgeGap {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)

	samples, err := s.store.ListLowRatedFeedback(ctx, since, 100)
	if err != nil || len(samples) == 0 {
		if err != nil {
			s.logger.Error().Err(err).Msg("knowledge gap query failed")
		}
		return nil
	}

	queries := make([]string, 0, len(samples))
	for _, sample := range samples {
		if sample.Query != "" {
			queries = append(queries, sample.Query)
		}
	}
	if len(queries) == 0 {
		return nil
	}

	preview := queries
	if len(preview) > 10 {
		preview = preview[:10]
	}
	previewJSON, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return nil
	}

	out, err := s.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(gapsPrompt, previewJSON, len(queries))},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("knowledge gap analysis failed")
		return nil
	}
	return ParseKnowledgeGaps(out)
}

// ParseKnowledgeGaps reads the TOPIC-blocked gap listing.
func ParseKnowledgeGaps(text string) []models.KnowledgeGap {
	var gaps []models.KnowledgeGap
	var current *models.KnowledgeGap

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "TOPIC"):
			if current != nil {
				gaps = append(gaps, *current)
			}
			name := "Unknown"
			if i := strings.Index(line, ":"); i >= 0 {
				name = strings.TrimSpace(line[i+1:])
			}
			current = &models.KnowledgeGap{Topic: name, Severity: "medium"}
		case strings.HasPrefix(line, "Queries:") && current != nil:
			fields := strings.Fields(strings.TrimPrefix(line, "Queries:"))
			if len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					current.QueryCount = n
				}
			}
		case strings.HasPrefix(line, "Severity:") && current != nil:
			sev := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "Severity:")))
			if sev == "high" || sev == "medium" || sev == "low" {
				current.Severity = sev
			}
		case strings.HasPrefix(line, "Action:") && current != nil:
			current.Action = strings.TrimSpace(strings.TrimPrefix(line, "Action:"))
		}
	}
	if current != nil {
		gaps = append(gaps, *current)
	}
	return gaps
}
