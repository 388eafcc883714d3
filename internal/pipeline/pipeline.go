// Package pipeline orchestrates the full answer flow: normalize the query,
// gate on intent, retrieve and re-rank context, generate a grounded
// response, self-validate it and retry with adjusted retrieval parameters
// while the validator recommends it.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/internal/conversation"
	"github.com/answerdesk/answerdesk/internal/conversational"
	"github.com/answerdesk/answerdesk/internal/generation"
	"github.com/answerdesk/answerdesk/internal/intent"
	"github.com/answerdesk/answerdesk/internal/normalize"
	"github.com/answerdesk/answerdesk/internal/retrieval"
	"github.com/answerdesk/answerdesk/internal/thresholds"
	"github.com/answerdesk/answerdesk/internal/validation"
	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// History window sizes: affirmation handling only needs the immediate
// context, grounded generation gets a wider view.
const (
	chitChatHistoryLimit = 3
	ragHistoryLimit      = 5
)

// Options are the request-independent pipeline settings.
type Options struct {
	MaxRetries       int
	FallbackResponse string
}

// Pipeline wires the stages together. All stages are request-safe; the only
// cross-request state is the threshold store, read as a snapshot at entry.
type Pipeline struct {
	normalizer *normalize.Normalizer
	classifier *intent.Classifier
	responder  *conversational.Responder
	engine     *retrieval.Engine
	generator  *generation.Generator
	validator  *validation.Validator
	thresholds *thresholds.Store
	convo      *conversation.Manager
	planner    contracts.PlanningService
	opts       Options
	logger     zerolog.Logger
}

func New(
	normalizer *normalize.Normalizer,
	classifier *intent.Classifier,
	responder *conversational.Responder,
	engine *retrieval.Engine,
	generator *generation.Generator,
	validator *validation.Validator,
	store *thresholds.Store,
	convo *conversation.Manager,
	planner contracts.PlanningService,
	opts Options,
	logger zerolog.Logger,
) *Pipeline {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	return &Pipeline{
		normalizer: normalizer,
		classifier: classifier,
		responder:  responder,
		engine:     engine,
		generator:  generator,
		validator:  validator,
		thresholds: store,
		convo:      convo,
		planner:    planner,
		opts:       opts,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// Answer runs one query through the pipeline. It never returns an error:
// a top-level failure degrades to the fixed fallback response with the
// error recorded on the result.
func (p *Pipeline) Answer(ctx context.Context, req models.AnswerRequest) models.AnswerResult {
	maxRetries := p.opts.MaxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}
	includeHistory := true
	if req.IncludeHistory != nil {
		includeHistory = *req.IncludeHistory
	}

	snapshot := p.thresholds.Read()
	normalized := p.normalizer.Normalize(req.Query)
	if normalized != req.Query {
		p.logger.Info().Str("from", req.Query).Str("to", normalized).Msg("query normalized")
	}

	detected, confidence := p.classifier.Classify(ctx, normalized)
	p.logger.Info().
		Str("intent", string(detected)).
		Float64("confidence", confidence).
		Int("thresholds_version", snapshot.Version).
		Msg("intent classified")

	var result models.AnswerResult
	if !detected.RoutesToRetrieval() {
		result = p.conversationalAnswer(ctx, detected, normalized, req.SessionID)
	} else if p.planner != nil && p.planner.ShouldPlan(normalized) {
		result = p.plannedAnswer(ctx, req, normalized, detected)
	} else {
		result = p.ragAnswer(ctx, req, normalized, detected, snapshot.Config, maxRetries, includeHistory)
	}

	result.SessionID, result.MessageID = p.recordTurns(ctx, req.SessionID, req.Query, result.Response)
	return result
}

// conversationalAnswer short-circuits non-informational intents with a
// templated reply; no retrieval happens.
func (p *Pipeline) conversationalAnswer(ctx context.Context, detected models.Intent, query, sessionID string) models.AnswerResult {
	var history []models.ChatMessage
	if sessionID != "" {
		h, err := p.convo.History(ctx, sessionID, chitChatHistoryLimit)
		if err != nil {
			p.logger.Warn().Err(err).Msg("history unavailable for conversational reply")
		} else {
			history = h
		}
	}
	return p.responder.Respond(ctx, detected, query, history)
}

// plannedAnswer routes complex queries through the planning subsystem and
// validates its final response once, with no retry loop.
func (p *Pipeline) plannedAnswer(ctx context.Context, req models.AnswerRequest, normalized string, detected models.Intent) models.AnswerResult {
	history, _ := p.convo.History(ctx, req.SessionID, ragHistoryLimit)
	planResult, err := p.planner.Execute(ctx, normalized, history)
	if err != nil {
		p.logger.Error().Err(err).Msg("plan execution failed")
		return p.fallbackResult(detected, err)
	}

	verdict := p.validator.Validate(ctx, req.Query, planResult.Response, nil)
	return models.AnswerResult{
		Response:       planResult.Response,
		Sources:        []models.SourceRef{},
		ContextFound:   planResult.Success,
		Intent:         detected,
		Conversational: false,
		Planned:        true,
		Validation: &models.ValidationMeta{
			IsValid:    verdict.IsValid,
			Confidence: verdict.Confidence,
			Issues:     verdict.Issues,
			RetryCount: 0,
		},
	}
}

// ragAnswer is the retrieval path: embed, search, generate, validate, and
// retry with request-scoped parameter tweaks while recommended.
func (p *Pipeline) ragAnswer(ctx context.Context, req models.AnswerRequest, normalized string, detected models.Intent, cfg models.ThresholdConfig, maxRetries int, includeHistory bool) models.AnswerResult {
	snippets, err := p.engine.Retrieve(ctx, normalized, cfg)
	if err != nil {
		p.logger.Error().Err(err).Msg("retrieval failed")
		return p.fallbackResult(detected, err)
	}
	if len(snippets) == 0 {
		p.logger.Warn().Str("query", truncate(req.Query, 50)).Msg("no documents above threshold")
		return models.AnswerResult{
			Response:     p.opts.FallbackResponse,
			Sources:      []models.SourceRef{},
			ContextFound: false,
			Intent:       detected,
		}
	}

	var history []models.ChatMessage
	if includeHistory && req.SessionID != "" {
		history, _ = p.convo.History(ctx, req.SessionID, ragHistoryLimit)
	}

	// The original phrasing goes to the generator; the normalized form was
	// only for retrieval.
	response, err := p.generator.Generate(ctx, req.Query, snippets, history, cfg.Temperature)
	if err != nil {
		p.logger.Error().Err(err).Msg("generation failed")
		return p.fallbackResult(detected, err)
	}

	verdict := p.validator.Validate(ctx, req.Query, response, snippets)

	// Each retry derives its parameters from the entry snapshot, so repeated
	// identical suggestions do not compound (0.5 → 0.4 → 0.4, never 0.3).
	entryCfg := cfg
	retryCount := 0
	for !verdict.IsValid && verdict.RetryRecommended && retryCount < maxRetries {
		retryCount++
		adj := ParseAdjustment(verdict.SuggestedAdjustment)
		cfg = adj.Apply(entryCfg)
		p.logger.Warn().
			Int("attempt", retryCount).
			Int("max", maxRetries).
			Str("adjustment", adj.String()).
			Strs("issues", verdict.Issues).
			Msg("validation failed, retrying")

		snippets, response = p.retryOnce(ctx, req.Query, normalized, cfg, snippets, response)
		verdict = p.validator.Validate(ctx, req.Query, response, snippets)
	}

	if verdict.IsValid {
		p.logger.Info().Float64("confidence", verdict.Confidence).Int("retries", retryCount).Msg("response validated")
	} else {
		p.logger.Warn().Strs("issues", verdict.Issues).Int("retries", retryCount).Msg("response still invalid after retries")
	}

	return models.AnswerResult{
		Response:       response,
		Sources:        sourceRefs(snippets),
		ContextFound:   true,
		Intent:         detected,
		Conversational: false,
		Validation: &models.ValidationMeta{
			IsValid:    verdict.IsValid,
			Confidence: verdict.Confidence,
			Issues:     verdict.Issues,
			RetryCount: retryCount,
		},
	}
}

// retryOnce re-runs retrieval and generation with the adjusted parameters,
// without history. Any failure keeps the previous response so a retry can
// only replace, never lose, the answer.
func (p *Pipeline) retryOnce(ctx context.Context, query, normalized string, cfg models.ThresholdConfig, prevSnippets []models.Snippet, prevResponse string) ([]models.Snippet, string) {
	snippets, err := p.engine.Retrieve(ctx, normalized, cfg)
	if err != nil {
		p.logger.Warn().Err(err).Msg("retry retrieval failed, keeping previous response")
		return prevSnippets, prevResponse
	}
	if len(snippets) == 0 {
		return nil, p.opts.FallbackResponse
	}
	response, err := p.generator.Generate(ctx, query, snippets, nil, cfg.Temperature)
	if err != nil {
		p.logger.Warn().Err(err).Msg("retry generation failed, keeping previous response")
		return prevSnippets, prevResponse
	}
	return snippets, response
}

// recordTurns persists the user query and the assistant reply when a session
// is attached, returning the session and assistant message IDs so feedback
// can reference them. Persistence failures are logged, never surfaced.
func (p *Pipeline) recordTurns(ctx context.Context, sessionID, query, response string) (string, string) {
	if sessionID == "" {
		return "", ""
	}
	sessionID, err := p.convo.EnsureSession(ctx, sessionID)
	if err != nil {
		p.logger.Warn().Err(err).Msg("session setup failed, turns not recorded")
		return "", ""
	}
	if _, err := p.convo.Record(ctx, sessionID, "user", query); err != nil {
		p.logger.Warn().Err(err).Msg("recording user turn failed")
	}
	reply, err := p.convo.Record(ctx, sessionID, "assistant", response)
	if err != nil {
		p.logger.Warn().Err(err).Msg("recording assistant turn failed")
		return sessionID, ""
	}
	return sessionID, reply.ID
}

func (p *Pipeline) fallbackResult(detected models.Intent, err error) models.AnswerResult {
	return models.AnswerResult{
		Response:     p.opts.FallbackResponse,
		Sources:      []models.SourceRef{},
		ContextFound: false,
		Intent:       detected,
		Error:        err.Error(),
	}
}

func sourceRefs(snippets []models.Snippet) []models.SourceRef {
	out := make([]models.SourceRef, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, s.Ref())
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
