// Package handlers implements the HTTP handlers for the answer API:
// question answering, feedback capture, threshold inspection, learning
// triggers, session transcripts, and document ingestion.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/answerdesk/answerdesk/internal/embeddings"
	"github.com/answerdesk/answerdesk/internal/ingest"
	"github.com/answerdesk/answerdesk/internal/learning"
	"github.com/answerdesk/answerdesk/internal/pipeline"
	"github.com/answerdesk/answerdesk/internal/store"
	"github.com/answerdesk/answerdesk/internal/thresholds"
	"github.com/answerdesk/answerdesk/internal/vectorstore"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// defaultTranscriptLimit bounds GET /sessions/{id}/messages without ?limit.
const defaultTranscriptLimit = 50

// Handlers holds all handler dependencies.
type Handlers struct {
	Store      store.Store
	Pipeline   *pipeline.Pipeline
	Thresholds *thresholds.Store
	Learning   *learning.Service
	Ingester   *ingest.Ingester
	Embeddings *embeddings.Registry
	Vectors    *vectorstore.Registry
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, p *pipeline.Pipeline, th *thresholds.Store, ls *learning.Service, ing *ingest.Ingester, emb *embeddings.Registry, vec *vectorstore.Registry) *Handlers {
	return &Handlers{
		Store:      s,
		Pipeline:   p,
		Thresholds: th,
		Learning:   ls,
		Ingester:   ing,
		Embeddings: emb,
		Vectors:    vec,
	}
}

// ── Answer ───────────────────────────────────────────────────

func (h *Handlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxRetries != nil && *req.MaxRetries < 0 {
		respondError(w, http.StatusBadRequest, "max_retries must be >= 0")
		return
	}

	result := h.Pipeline.Answer(r.Context(), req)
	respondJSON(w, http.StatusOK, result)
}

// ── Feedback ─────────────────────────────────────────────────

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    *int   `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

func (h *Handlers) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MessageID == "" {
		respondError(w, http.StatusBadRequest, "message_id is required")
		return
	}
	if req.Rating == nil || (*req.Rating != 0 && *req.Rating != 1) {
		respondError(w, http.StatusBadRequest, "rating must be 0 or 1")
		return
	}

	fb := models.FeedbackEvent{
		ID:        uuid.NewString(),
		MessageID: req.MessageID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateFeedback(r.Context(), &fb); err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("message_id", fb.MessageID).Int("rating", fb.Rating).Msg("Feedback recorded")
	respondJSON(w, http.StatusCreated, fb)
}

// ── Thresholds ───────────────────────────────────────────────

func (h *Handlers) GetThresholds(w http.ResponseWriter, r *http.Request) {
	snap := h.Thresholds.Read()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":    snap.Version,
		"thresholds": snap.Config,
	})
}

// ── Learning ─────────────────────────────────────────────────

func (h *Handlers) RunLearning(w http.ResponseWriter, r *http.Request) {
	report, err := h.Learning.Run(r.Context())
	if err != nil {
		if errors.Is(err, learning.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handlers) KnowledgeGaps(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	gaps := h.Learning.KnowledgeGaps(r.Context(), days)
	if gaps == nil {
		gaps = []models.KnowledgeGap{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"gaps": gaps,
	})
}

// ── Sessions ─────────────────────────────────────────────────

func (h *Handlers) ListSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.Store.GetSession(r.Context(), sessionID); err != nil {
		var notFound *store.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := h.Store.ListMessages(r.Context(), sessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// ── Ingestion ────────────────────────────────────────────────

func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		respondError(w, http.StatusBadRequest, "documents is required")
		return
	}
	for i, doc := range req.Documents {
		if strings.TrimSpace(doc.Content) == "" {
			respondError(w, http.StatusBadRequest, "document "+strconv.Itoa(i)+" has empty content")
			return
		}
	}

	result, err := h.Ingester.Ingest(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ── Health ───────────────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	if err := h.Store.Ping(r.Context()); err != nil {
		status = "degraded"
		checks["store"] = err.Error()
	} else {
		checks["store"] = "ok"
	}

	if h.Embeddings != nil {
		for name, err := range h.Embeddings.HealthCheckAll(r.Context()) {
			if err != nil {
				status = "degraded"
				checks["embeddings/"+name] = err.Error()
			} else {
				checks["embeddings/"+name] = "ok"
			}
		}
	}
	if h.Vectors != nil {
		for name, err := range h.Vectors.HealthCheckAll(r.Context()) {
			if err != nil {
				status = "degraded"
				checks["vectorstore/"+name] = err.Error()
			} else {
				checks["vectorstore/"+name] = "ok"
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"service": "answerdesk",
		"checks":  checks,
	})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
