// Package models defines the shared data types for the AnswerDesk
// query orchestration service.
package models

import (
	"time"
)

// ── Intent ───────────────────────────────────────────────────

// Intent is the closed set of conversational purposes a query can have.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentFarewell   Intent = "farewell"
	IntentGratitude  Intent = "gratitude"
	IntentHelp       Intent = "help"
	IntentChitChat   Intent = "chit_chat"
	IntentUnclear    Intent = "unclear"
	IntentOutOfScope Intent = "out_of_scope"
	IntentQuestion   Intent = "question"
)

// AllIntents lists every valid Intent value, used by classifier parsing.
var AllIntents = []Intent{
	IntentGreeting,
	IntentFarewell,
	IntentGratitude,
	IntentHelp,
	IntentChitChat,
	IntentUnclear,
	IntentOutOfScope,
	IntentQuestion,
}

// Valid reports whether i is a member of the closed enumeration.
func (i Intent) Valid() bool {
	for _, v := range AllIntents {
		if i == v {
			return true
		}
	}
	return false
}

// RoutesToRetrieval reports whether the intent goes through the retrieval
// pipeline. It is a pure function of the enum value: only QUESTION retrieves.
// Everything else is answered conversationally.
func (i Intent) RoutesToRetrieval() bool {
	return i == IntentQuestion
}

// ── Query & snippets ─────────────────────────────────────────

// Snippet is a unit of retrieved knowledge-base text with a relevance score.
// The similarity score is mutable during re-ranking; a snippet is owned by a
// single retrieval call and never shared across requests.
type Snippet struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SourceRef is the caller-facing view of a snippet: content is truncated so
// API responses stay small.
type SourceRef struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// SourcePreviewLen is the max content length echoed back in a SourceRef.
const SourcePreviewLen = 200

// Ref converts a snippet into its truncated caller-facing form.
func (s Snippet) Ref() SourceRef {
	content := s.Content
	if len(content) > SourcePreviewLen {
		content = content[:SourcePreviewLen] + "..."
	}
	return SourceRef{ID: s.ID, Content: content, Similarity: s.Similarity}
}

// ── Validation ───────────────────────────────────────────────

// Validation issue labels produced by the response validator.
const (
	IssueNotAnswering   = "doesn't answer question"
	IssueNotGrounded    = "not grounded in sources"
	IssueHallucination  = "hallucination detected"
	IssueLowConfidence  = "low confidence"
	IssueValidationFail = "validation_error"
)

// ValidationVerdict is the structured outcome of validating a generated
// response against its source snippets.
type ValidationVerdict struct {
	IsValid             bool     `json:"is_valid"`
	Confidence          float64  `json:"confidence"`
	Issues              []string `json:"issues"`
	RetryRecommended    bool     `json:"retry_recommended"`
	SuggestedAdjustment string   `json:"suggested_adjustment"`
}

// PermissiveVerdict returns the fail-open default: parsing that recognizes
// nothing must never demote a response.
func PermissiveVerdict() ValidationVerdict {
	return ValidationVerdict{IsValid: true, Confidence: 1.0}
}

// ValidationMeta is the verdict summary attached to an AnswerResult.
type ValidationMeta struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	RetryCount int      `json:"retry_count"`
	Issues     []string `json:"issues"`
}

// ── Answer request / result ──────────────────────────────────

// AnswerRequest is the payload for POST /api/v1/answer.
type AnswerRequest struct {
	Query          string `json:"query"`
	SessionID      string `json:"session_id,omitempty"`
	IncludeHistory *bool  `json:"include_history,omitempty"`
	MaxRetries     *int   `json:"max_retries,omitempty"`
}

// AnswerResult is the outcome of one pipeline run. MessageID identifies the
// persisted assistant turn so callers can rate it later; it is empty when the
// request carried no session.
type AnswerResult struct {
	Response       string          `json:"response"`
	SessionID      string          `json:"session_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Sources        []SourceRef     `json:"sources"`
	ContextFound   bool            `json:"context_found"`
	Intent         Intent          `json:"intent"`
	Conversational bool            `json:"conversational"`
	Planned        bool            `json:"planned,omitempty"`
	Validation     *ValidationMeta `json:"validation,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ── Threshold configuration ──────────────────────────────────

// ThresholdConfig holds the retrieval/generation tunables shared across
// requests. Each pipeline run reads a consistent snapshot at entry; only the
// learning job writes new versions.
type ThresholdConfig struct {
	SimilarityThreshold  float64 `json:"similarity_threshold"`
	TopK                 int     `json:"top_k"`
	ValidationConfidence float64 `json:"validation_confidence"`
	Temperature          float64 `json:"temperature"`
}

// DefaultThresholds returns the starting configuration.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		SimilarityThreshold:  0.5,
		TopK:                 5,
		ValidationConfidence: 0.7,
		Temperature:          0.7,
	}
}

// ── Conversation ─────────────────────────────────────────────

// Session is a multi-turn conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is the wire form used by LLM provider APIs.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ── Feedback & learning ──────────────────────────────────────

// FeedbackEvent records an end-user rating of an assistant message.
// Rating 0 = thumbs down, 1 = thumbs up.
type FeedbackEvent struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackSample pairs a low-rated response with the query that produced it,
// the unit of analysis for the learning job.
type FeedbackSample struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Comment  string `json:"comment,omitempty"`
}

// KnowledgeGap is a topic with high query volume but low satisfaction.
type KnowledgeGap struct {
	Topic      string `json:"topic"`
	QueryCount int    `json:"query_count"`
	Severity   string `json:"severity"` // high|medium|low
	Action     string `json:"action"`
}

// FeedbackAnalysis is the parsed output of the learning job's LLM analysis.
type FeedbackAnalysis struct {
	TotalAnalyzed        int               `json:"total_analyzed"`
	IssuesFound          []string          `json:"issues_found"`
	RootCauses           []string          `json:"root_causes"`
	ThresholdAdjustments map[string]string `json:"threshold_adjustments"`
	KnowledgeGaps        []string          `json:"knowledge_gaps"`
	Recommendations      []string          `json:"recommendations"`
	Confidence           float64           `json:"confidence"`
}

// LearningReport summarizes one learning job run.
type LearningReport struct {
	Success            bool              `json:"success"`
	Analysis           *FeedbackAnalysis `json:"analysis,omitempty"`
	AdjustmentsApplied map[string]string `json:"adjustments_applied"`
	Thresholds         ThresholdConfig   `json:"thresholds"`
	Message            string            `json:"message"`
	StartedAt          time.Time         `json:"started_at"`
	FinishedAt         time.Time         `json:"finished_at"`
}

// ── Ingestion ────────────────────────────────────────────────

// IngestDocument is a knowledge-base document submitted for indexing.
type IngestDocument struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestRequest is the payload for POST /api/v1/ingest.
type IngestRequest struct {
	Documents []IngestDocument `json:"documents"`
	ChunkSize int              `json:"chunk_size,omitempty"`
	Overlap   int              `json:"overlap,omitempty"`
}

// IngestResult reports what was indexed.
type IngestResult struct {
	DocumentsIngested int   `json:"documents_ingested"`
	ChunksIndexed     int   `json:"chunks_indexed"`
	ElapsedMs         int64 `json:"elapsed_ms"`
}

// ── Planning ─────────────────────────────────────────────────

// Plan is an action plan for a complex query, produced by a planning service.
type Plan struct {
	ID    string   `json:"id"`
	Query string   `json:"query"`
	Steps []string `json:"steps"`
}

// PlanResult is the outcome of executing a plan.
type PlanResult struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}
