// Package planning handles complex multi-part queries: the query is
// decomposed into steps with an LLM, each step is answered through the
// retrieval engine, and the step answers are synthesized into one response.
package planning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/internal/generation"
	"github.com/answerdesk/answerdesk/internal/retrieval"
	"github.com/answerdesk/answerdesk/internal/thresholds"
	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// maxPlanSteps caps how many sub-questions a plan may produce.
const maxPlanSteps = 4

const decomposePrompt = `Break this complex question into at most %d simple, self-contained sub-questions.
Each sub-question must be answerable on its own.

Question: %s

Respond with one sub-question per line, numbered:
1. ...
2. ...`

const synthesizePrompt = `Combine these partial answers into one coherent response to the original question.
Do not mention the sub-questions or that the answer was assembled.

Original question: %s

Partial answers:
%s`

// Planner decomposes complex queries and answers each part via retrieval.
type Planner struct {
	llm        contracts.CompletionDriver
	engine     *retrieval.Engine
	generator  *generation.Generator
	thresholds *thresholds.Store
	logger     zerolog.Logger
}

// New creates a planner.
func New(llm contracts.CompletionDriver, engine *retrieval.Engine, generator *generation.Generator, th *thresholds.Store, logger zerolog.Logger) *Planner {
	return &Planner{
		llm:        llm,
		engine:     engine,
		generator:  generator,
		thresholds: th,
		logger:     logger.With().Str("component", "planning").Logger(),
	}
}

// ShouldPlan reports whether a query is complex enough to decompose:
// multiple explicit questions, or a long compound question.
func (p *Planner) ShouldPlan(query string) bool {
	if strings.Count(query, "?") > 1 {
		return true
	}
	lower := strings.ToLower(query)
	if len(strings.Fields(query)) > 25 && strings.Contains(lower, " and ") {
		return true
	}
	return false
}

// Execute runs the decompose, answer, synthesize sequence.
func (p *Planner) Execute(ctx context.Context, query string, history []models.ChatMessage) (models.PlanResult, error) {
	plan, err := p.decompose(ctx, query)
	if err != nil {
		return models.PlanResult{}, fmt.Errorf("decompose: %w", err)
	}
	p.logger.Info().Str("plan_id", plan.ID).Int("steps", len(plan.Steps)).Msg("plan created")

	cfg := p.thresholds.Read().Config

	answers := make([]string, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		snippets, err := p.engine.Retrieve(ctx, step, cfg)
		if err != nil {
			p.logger.Warn().Err(err).Int("step", i+1).Msg("step retrieval failed")
			continue
		}
		answer, err := p.generator.Generate(ctx, step, snippets, history, cfg.Temperature)
		if err != nil {
			p.logger.Warn().Err(err).Int("step", i+1).Msg("step generation failed")
			continue
		}
		answers = append(answers, fmt.Sprintf("%d. %s", i+1, answer))
	}

	if len(answers) == 0 {
		return models.PlanResult{Success: false}, fmt.Errorf("no plan step produced an answer")
	}

	combined, err := p.synthesize(ctx, query, answers)
	if err != nil {
		return models.PlanResult{}, fmt.Errorf("synthesize: %w", err)
	}
	return models.PlanResult{Response: combined, Success: true}, nil
}

func (p *Planner) decompose(ctx context.Context, query string) (models.Plan, error) {
	out, err := p.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(decomposePrompt, maxPlanSteps, query)},
		},
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		return models.Plan{}, err
	}

	steps := ParseSteps(out)
	if len(steps) == 0 {
		// Degenerate plan: treat the whole query as a single step.
		steps = []string{query}
	}
	return models.Plan{ID: uuid.NewString(), Query: query, Steps: steps}, nil
}

func (p *Planner) synthesize(ctx context.Context, query string, answers []string) (string, error) {
	return p.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(synthesizePrompt, query, strings.Join(answers, "\n"))},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
}

// ParseSteps extracts numbered sub-questions, capped at maxPlanSteps.
func ParseSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		if i := strings.IndexAny(line, ".)"); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}
		steps = append(steps, line)
		if len(steps) == maxPlanSteps {
			break
		}
	}
	return steps
}
