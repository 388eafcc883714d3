// Package intent categorizes normalized queries into a closed taxonomy.
// Classification is two-tier: a deterministic pattern matcher handles the
// common cases, and ambiguous queries fall back to an LLM call.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// Confidence levels by classification tier.
const (
	patternConfidence  = 0.9
	llmConfidence      = 0.7
	fallbackConfidence = 0.5
)

type patternRule struct {
	intent  models.Intent
	pattern *regexp.Regexp
}

// Ordered: earlier rules win. Greetings before chit-chat so "hi there"
// never falls through to the generic tier.
var rules = []patternRule{
	{models.IntentGreeting, regexp.MustCompile(`^\s*(hi|hello|hey|howdy|hiya|good (morning|afternoon|evening))( there)?[\s!.,]*$`)},
	{models.IntentFarewell, regexp.MustCompile(`^\s*(bye|goodbye|see (you|ya)( later| soon)?|farewell|take care|good night)[\s!.,]*$`)},
	{models.IntentGratitude, regexp.MustCompile(`\b(thanks|thank you|thankyou|thx|appreciate (it|that)|cheers)\b`)},
	{models.IntentHelp, regexp.MustCompile(`^\s*(help|help me|(what|how) can you (do|help)|what do you do)\b.*$`)},
	{models.IntentChitChat, regexp.MustCompile(`\b(how are you|how r u|your name|who are you|what are you|are you (a |an )?(bot|robot|human|ai))\b`)},
	{models.IntentChitChat, regexp.MustCompile(`^\s*(yes|yeah|yep|yup|ok|okay|sure|no|nope|nah)\b[\s!.,]*$`)},
	{models.IntentOutOfScope, regexp.MustCompile(`\b(weather|sports|stock price|lottery|recipe|movie|song|joke)\b`)},
}

// Question signals: explicit question mark or an interrogative opener with
// real content behind it.
var questionPattern = regexp.MustCompile(`^\s*(what|who|when|where|why|how|which|can|could|do|does|is|are|tell me|give me)\b`)

// Classifier resolves a query to an Intent with a confidence score.
type Classifier struct {
	llm    contracts.CompletionDriver
	logger zerolog.Logger
}

// New returns a classifier. llm may be nil, in which case ambiguous queries
// classify as QUESTION without the fallback call.
func New(llm contracts.CompletionDriver, logger zerolog.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger.With().Str("component", "intent").Logger()}
}

// Classify returns the intent for query and how confident the classifier is.
// It never returns a value outside the closed enumeration, and never fails:
// when the LLM tier errors the query is treated as a QUESTION so it still
// reaches retrieval.
func (c *Classifier) Classify(ctx context.Context, query string) (models.Intent, float64) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return models.IntentUnclear, patternConfidence
	}

	for _, r := range rules {
		if r.pattern.MatchString(lower) {
			return r.intent, patternConfidence
		}
	}

	if strings.Contains(lower, "?") || questionPattern.MatchString(lower) {
		if len(strings.Fields(lower)) < 3 && !strings.Contains(lower, "?") {
			// Interrogative opener with no substance ("what", "how do").
			return models.IntentUnclear, patternConfidence
		}
		return models.IntentQuestion, patternConfidence
	}

	// Single vague tokens ("email", "pricing") get a clarification prompt
	// instead of a retrieval round-trip.
	if len(strings.Fields(lower)) == 1 {
		return models.IntentUnclear, patternConfidence
	}

	return c.classifyLLM(ctx, query)
}

const classifyPrompt = `Classify the user message into exactly one category:
greeting, farewell, gratitude, help, chit_chat, unclear, out_of_scope, question.

Reply with only the category name.

Message: %s`

func (c *Classifier) classifyLLM(ctx context.Context, query string) (models.Intent, float64) {
	if c.llm == nil {
		return models.IntentQuestion, fallbackConfidence
	}

	out, err := c.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(classifyPrompt, query)},
		},
		MaxTokens:   10,
		Temperature: 0.0,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("intent LLM fallback failed, defaulting to question")
		return models.IntentQuestion, fallbackConfidence
	}

	candidate := models.Intent(strings.ToLower(strings.TrimSpace(out)))
	if candidate.Valid() {
		return candidate, llmConfidence
	}
	c.logger.Warn().Str("raw", out).Msg("intent LLM returned unknown label")
	return models.IntentQuestion, fallbackConfidence
}
