// Package config loads service configuration from environment variables,
// optionally layered over a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the AnswerDesk service.
type Config struct {
	Port      int             `yaml:"port"`
	Version   string          `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Learning  LearningConfig  `yaml:"learning"`
}

type DatabaseConfig struct {
	// Driver selects the session/feedback store: "memory" or "sqlite".
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type AuthConfig struct {
	// APIKey, when set, is required on all /api routes. ANSWERDESK_API_KEYS
	// can add further keys as a comma-separated list.
	APIKey string `yaml:"api_key"`
}

type LLMConfig struct {
	// Provider order for fallback: first healthy provider wins.
	Provider     string  `yaml:"provider"` // "ollama", "openai" or "anthropic"
	Model        string  `yaml:"model"`
	OllamaHost   string  `yaml:"ollama_host"`
	OpenAIKey    string  `yaml:"openai_key"`
	AnthropicKey string  `yaml:"anthropic_key"`
	Temperature  float64 `yaml:"temperature"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "ollama" or "openai"
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	OllamaHost string `yaml:"ollama_host"`
	OpenAIKey  string `yaml:"openai_key"`
}

type VectorConfig struct {
	Driver     string `yaml:"driver"` // "embedded", "qdrant" or "pgvector"
	QdrantAddr string `yaml:"qdrant_addr"`
	Collection string `yaml:"collection"`
	PgURL      string `yaml:"pg_url"`
}

type PipelineConfig struct {
	MaxRetries          int     `yaml:"max_retries"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	FallbackResponse    string  `yaml:"fallback_response"`
}

type LearningConfig struct {
	Enabled bool `yaml:"enabled"`
	// IntervalHours between scheduled learning runs. Zero disables the schedule
	// but leaves the manual trigger endpoint active.
	IntervalHours  int     `yaml:"interval_hours"`
	MinConfidence  float64 `yaml:"min_confidence"`
	FeedbackWindow int     `yaml:"feedback_window_days"`
}

// Load reads configuration from environment variables with sensible defaults.
// If ANSWERDESK_CONFIG points at a YAML file, the file is read first and the
// environment overrides it.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("ANSWERDESK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:    8080,
		Version: "0.1.0",
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "answerdesk.db",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "answerdesk",
		},
		Auth: AuthConfig{},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3.1",
			OllamaHost:  "http://localhost:11434",
			Temperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			OllamaHost: "http://localhost:11434",
		},
		Vector: VectorConfig{
			Driver:     "embedded",
			QdrantAddr: "localhost:6334",
			Collection: "answerdesk",
		},
		Pipeline: PipelineConfig{
			MaxRetries:          2,
			SimilarityThreshold: 0.5,
			TopK:                5,
			FallbackResponse:    "I don't have enough information in my knowledge base to answer that. Could you rephrase your question, or ask about our services, pricing, or contact details?",
		},
		Learning: LearningConfig{
			Enabled:        true,
			IntervalHours:  24,
			MinConfidence:  0.6,
			FeedbackWindow: 7,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Port = envInt("ANSWERDESK_PORT", cfg.Port)
	cfg.Version = envStr("ANSWERDESK_VERSION", cfg.Version)

	cfg.Database.Driver = envStr("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.SQLitePath = envStr("DATABASE_SQLITE_PATH", cfg.Database.SQLitePath)

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)

	cfg.Auth.APIKey = envStr("AUTH_API_KEY", cfg.Auth.APIKey)

	cfg.LLM.Provider = envStr("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = envStr("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.OllamaHost = envStr("OLLAMA_HOST", cfg.LLM.OllamaHost)
	cfg.LLM.OpenAIKey = envStr("OPENAI_API_KEY", cfg.LLM.OpenAIKey)
	cfg.LLM.AnthropicKey = envStr("ANTHROPIC_API_KEY", cfg.LLM.AnthropicKey)
	cfg.LLM.Temperature = envFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)

	cfg.Embedding.Provider = envStr("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = envStr("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimensions = envInt("EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)
	cfg.Embedding.OllamaHost = envStr("OLLAMA_HOST", cfg.Embedding.OllamaHost)
	cfg.Embedding.OpenAIKey = envStr("OPENAI_API_KEY", cfg.Embedding.OpenAIKey)

	cfg.Vector.Driver = envStr("VECTOR_DRIVER", cfg.Vector.Driver)
	cfg.Vector.QdrantAddr = envStr("QDRANT_ADDR", cfg.Vector.QdrantAddr)
	cfg.Vector.Collection = envStr("QDRANT_COLLECTION", cfg.Vector.Collection)
	cfg.Vector.PgURL = envStr("PGVECTOR_URL", cfg.Vector.PgURL)

	cfg.Pipeline.MaxRetries = envInt("PIPELINE_MAX_RETRIES", cfg.Pipeline.MaxRetries)
	cfg.Pipeline.SimilarityThreshold = envFloat("PIPELINE_SIMILARITY_THRESHOLD", cfg.Pipeline.SimilarityThreshold)
	cfg.Pipeline.TopK = envInt("PIPELINE_TOP_K", cfg.Pipeline.TopK)
	cfg.Pipeline.FallbackResponse = envStr("PIPELINE_FALLBACK_RESPONSE", cfg.Pipeline.FallbackResponse)

	cfg.Learning.Enabled = envBool("LEARNING_ENABLED", cfg.Learning.Enabled)
	cfg.Learning.IntervalHours = envInt("LEARNING_INTERVAL_HOURS", cfg.Learning.IntervalHours)
	cfg.Learning.MinConfidence = envFloat("LEARNING_MIN_CONFIDENCE", cfg.Learning.MinConfidence)
	cfg.Learning.FeedbackWindow = envInt("LEARNING_FEEDBACK_WINDOW_DAYS", cfg.Learning.FeedbackWindow)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
