// Package server provides the public entry point for initializing the
// AnswerDesk service.
//
// This package exists in pkg/ (not internal/) so embedders can compose the
// full server and wrap the handler with their own middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/answerdesk/answerdesk/internal/api"
	"github.com/answerdesk/answerdesk/internal/api/handlers"
	"github.com/answerdesk/answerdesk/internal/config"
	"github.com/answerdesk/answerdesk/internal/conversation"
	"github.com/answerdesk/answerdesk/internal/conversational"
	"github.com/answerdesk/answerdesk/internal/embeddings"
	"github.com/answerdesk/answerdesk/internal/generation"
	"github.com/answerdesk/answerdesk/internal/ingest"
	"github.com/answerdesk/answerdesk/internal/intent"
	"github.com/answerdesk/answerdesk/internal/learning"
	"github.com/answerdesk/answerdesk/internal/llm"
	"github.com/answerdesk/answerdesk/internal/normalize"
	"github.com/answerdesk/answerdesk/internal/pipeline"
	"github.com/answerdesk/answerdesk/internal/planning"
	"github.com/answerdesk/answerdesk/internal/retrieval"
	"github.com/answerdesk/answerdesk/internal/scheduler"
	"github.com/answerdesk/answerdesk/internal/store"
	"github.com/answerdesk/answerdesk/internal/telemetry"
	"github.com/answerdesk/answerdesk/internal/thresholds"
	"github.com/answerdesk/answerdesk/internal/validation"
	"github.com/answerdesk/answerdesk/internal/vectorstore"
	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// Server holds the initialized AnswerDesk service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the session/feedback data store.
	Store store.Store

	// Config is the loaded service configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from the environment and returns a ready
// Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("✅ Store initialized")

	embedder, embedRegistry, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", cfg.Embedding.Provider).Str("model", cfg.Embedding.Model).Msg("✅ Embedding driver initialized")

	vectorDB, vecRegistry, err := buildVectorStore(ctx, cfg, embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Vector.Driver).Msg("✅ Vector store initialized")

	completion, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("✅ Completion driver initialized")

	logger := log.Logger

	th := thresholds.New(initialThresholds(cfg), logger)
	engine := retrieval.New(embedder, vectorDB, logger)
	generator := generation.New(completion, logger)
	validator := validation.New(completion, logger)
	classifier := intent.New(completion, logger)
	responder := conversational.New(completion, rand.New(rand.NewSource(time.Now().UnixNano())), logger)
	normalizer := normalize.New()
	convo := conversation.NewManager(dataStore, logger)
	planner := planning.New(completion, engine, generator, th, logger)

	pipe := pipeline.New(
		normalizer, classifier, responder,
		engine, generator, validator,
		th, convo, planner,
		pipeline.Options{
			MaxRetries:       cfg.Pipeline.MaxRetries,
			FallbackResponse: cfg.Pipeline.FallbackResponse,
		},
		logger,
	)

	learner := learning.New(dataStore, completion, th, cfg.Learning.MinConfidence, cfg.Learning.FeedbackWindow, logger)
	if cfg.Learning.Enabled && cfg.Learning.IntervalHours > 0 {
		sched := scheduler.New(learner, time.Duration(cfg.Learning.IntervalHours)*time.Hour, logger)
		go sched.Start(ctx)
	}

	ingester := ingest.New(embedder, vectorDB, ingest.DefaultChunkerConfig(), logger)

	h := handlers.New(dataStore, pipe, th, learner, ingester, embedRegistry, vecRegistry)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var s store.Store
	switch cfg.Database.Driver {
	case "memory":
		s = store.NewMemoryStore()
	case "sqlite", "":
		sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s = sq
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func buildEmbedder(cfg *config.Config) (contracts.EmbeddingDriver, *embeddings.Registry, error) {
	registry := embeddings.NewRegistry()

	var driver contracts.EmbeddingDriver
	switch cfg.Embedding.Provider {
	case "ollama", "":
		d, err := embeddings.NewOllamaDriver(cfg.Embedding.OllamaHost, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("init ollama embeddings: %w", err)
		}
		driver = d
	case "openai":
		if cfg.Embedding.OpenAIKey == "" {
			return nil, nil, fmt.Errorf("openai embeddings selected but OPENAI_API_KEY is not set")
		}
		driver = embeddings.NewOpenAIDriver(cfg.Embedding.OpenAIKey, cfg.Embedding.Model)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	registry.Register(driver.Name(), driver)
	return driver, registry, nil
}

func buildVectorStore(ctx context.Context, cfg *config.Config, dimensions int) (contracts.VectorStoreDriver, *vectorstore.Registry, error) {
	registry := vectorstore.NewRegistry()

	var driver contracts.VectorStoreDriver
	switch cfg.Vector.Driver {
	case "embedded", "":
		driver = vectorstore.NewEmbeddedStore()
	case "qdrant":
		q, err := vectorstore.NewQdrantStore(ctx, cfg.Vector.QdrantAddr, cfg.Vector.Collection, dimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("connect qdrant: %w", err)
		}
		driver = q
	case "pgvector":
		p, err := vectorstore.NewPgvectorStore(ctx, cfg.Vector.PgURL, dimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("connect pgvector: %w", err)
		}
		driver = p
	default:
		return nil, nil, fmt.Errorf("unknown vector driver %q", cfg.Vector.Driver)
	}

	registry.Register(driver.Name(), driver)
	return driver, registry, nil
}

// buildLLM assembles the completion fallback chain: the configured provider
// first, then every other provider with credentials available.
func buildLLM(cfg *config.Config) (contracts.CompletionDriver, error) {
	var drivers []contracts.CompletionDriver

	addOllama := func() error {
		d, err := llm.NewOllamaDriver(cfg.LLM.OllamaHost, cfg.LLM.Model)
		if err != nil {
			return fmt.Errorf("init ollama: %w", err)
		}
		drivers = append(drivers, d)
		return nil
	}
	addOpenAI := func() {
		if cfg.LLM.OpenAIKey != "" {
			drivers = append(drivers, llm.NewOpenAIDriver(cfg.LLM.OpenAIKey, openAIModel(cfg)))
		}
	}
	addAnthropic := func() {
		if cfg.LLM.AnthropicKey != "" {
			drivers = append(drivers, llm.NewAnthropicDriver(cfg.LLM.AnthropicKey, anthropicModel(cfg)))
		}
	}

	switch cfg.LLM.Provider {
	case "ollama", "":
		if err := addOllama(); err != nil {
			return nil, err
		}
		addOpenAI()
		addAnthropic()
	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			return nil, fmt.Errorf("openai selected but OPENAI_API_KEY is not set")
		}
		drivers = append(drivers, llm.NewOpenAIDriver(cfg.LLM.OpenAIKey, cfg.LLM.Model))
		addAnthropic()
	case "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic selected but ANTHROPIC_API_KEY is not set")
		}
		drivers = append(drivers, llm.NewAnthropicDriver(cfg.LLM.AnthropicKey, cfg.LLM.Model))
		addOpenAI()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	if len(drivers) == 1 {
		return drivers[0], nil
	}
	return llm.NewFallbackDriver(log.Logger, drivers...), nil
}

// Fallback drivers cannot reuse the primary's model name across providers.
func openAIModel(cfg *config.Config) string {
	if cfg.LLM.Provider == "openai" {
		return cfg.LLM.Model
	}
	return "gpt-4o-mini"
}

func anthropicModel(cfg *config.Config) string {
	if cfg.LLM.Provider == "anthropic" {
		return cfg.LLM.Model
	}
	return "claude-sonnet-4-20250514"
}

func initialThresholds(cfg *config.Config) models.ThresholdConfig {
	th := models.DefaultThresholds()
	if cfg.Pipeline.SimilarityThreshold > 0 {
		th.SimilarityThreshold = cfg.Pipeline.SimilarityThreshold
	}
	if cfg.Pipeline.TopK > 0 {
		th.TopK = cfg.Pipeline.TopK
	}
	if cfg.LLM.Temperature > 0 {
		th.Temperature = cfg.LLM.Temperature
	}
	return th
}
