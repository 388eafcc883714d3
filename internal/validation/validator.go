// Package validation self-checks generated responses with an LLM assessment
// call and parses the assessment's line-oriented protocol into a structured
// verdict. The parser fails open: anything it does not recognize leaves the
// permissive defaults in place, so a confused assessment never blocks a
// user-visible response.
package validation

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// confidenceFloor is the parsed confidence below which a verdict is demoted
// to invalid.
const confidenceFloor = 0.7

const assessmentPrompt = `Assess the assistant response below against the user question and sources.
Reply using exactly this format, one field per line:

ANSWERS_QUESTION: yes|no
IS_GROUNDED: yes|no
HAS_HALLUCINATION: yes|no
CONFIDENCE: 0.0-1.0
RETRY: yes|no
ADJUSTMENT: suggested fix, or "none"

Question: %s

Response: %s

Sources:
%s`

// sourcePreview is how much of each snippet the assessment prompt includes.
const sourcePreview = 100

var confidencePattern = regexp.MustCompile(`[\d.]+`)

// Validator runs the LLM assessment.
type Validator struct {
	llm    contracts.CompletionDriver
	logger zerolog.Logger
}

func New(llm contracts.CompletionDriver, logger zerolog.Logger) *Validator {
	return &Validator{llm: llm, logger: logger.With().Str("component", "validation").Logger()}
}

// Validate assesses whether response answers query and is grounded in the
// snippets. It never returns an error: a failed assessment call yields the
// fixed fallback verdict (valid, confidence 0.5, no retry).
func (v *Validator) Validate(ctx context.Context, query, response string, snippets []models.Snippet) models.ValidationVerdict {
	sourcesText := "No sources used"
	if len(snippets) > 0 {
		var b strings.Builder
		for _, s := range snippets {
			content := s.Content
			if len(content) > sourcePreview {
				content = content[:sourcePreview] + "..."
			}
			fmt.Fprintf(&b, "- %s\n", content)
		}
		sourcesText = strings.TrimRight(b.String(), "\n")
	}

	out, err := v.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(assessmentPrompt, query, response, sourcesText)},
		},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		v.logger.Error().Err(err).Msg("validation call failed, falling open")
		return models.ValidationVerdict{
			IsValid:    true,
			Confidence: 0.5,
			Issues:     []string{models.IssueValidationFail},
		}
	}

	verdict := Parse(out)
	if verdict.IsValid {
		v.logger.Info().Float64("confidence", verdict.Confidence).Msg("response validated")
	} else {
		v.logger.Warn().Strs("issues", verdict.Issues).Msg("response validation failed")
	}
	return verdict
}

// Parse reads the assessment protocol line by line. Unrecognized lines are
// ignored; a verdict is demoted to invalid only by an explicit negative
// signal. Completely malformed input yields the permissive default.
func Parse(text string) models.ValidationVerdict {
	verdict := models.PermissiveVerdict()

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "ANSWERS_QUESTION:"):
			if !saysYes(line) {
				verdict.IsValid = false
				verdict.Issues = append(verdict.Issues, models.IssueNotAnswering)
			}
		case strings.HasPrefix(line, "IS_GROUNDED:"):
			if !saysYes(line) {
				verdict.IsValid = false
				verdict.Issues = append(verdict.Issues, models.IssueNotGrounded)
			}
		case strings.HasPrefix(line, "HAS_HALLUCINATION:"):
			if saysYes(line) {
				verdict.IsValid = false
				verdict.Issues = append(verdict.Issues, models.IssueHallucination)
			}
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if m := confidencePattern.FindString(line); m != "" {
				if conf, err := strconv.ParseFloat(m, 64); err == nil {
					verdict.Confidence = conf
					if conf < confidenceFloor {
						verdict.IsValid = false
						verdict.Issues = append(verdict.Issues, models.IssueLowConfidence)
					}
				}
			}
		case strings.HasPrefix(line, "RETRY:"):
			verdict.RetryRecommended = saysYes(line)
		case strings.HasPrefix(line, "ADJUSTMENT:"):
			verdict.SuggestedAdjustment = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		}
	}

	return verdict
}

func saysYes(line string) bool {
	return strings.Contains(strings.ToLower(line), "yes")
}
