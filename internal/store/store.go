// Package store provides the storage interface and implementations for
// conversation sessions and feedback. The in-memory store backs tests and
// single-process deployments; SQLite adds durable persistence.
package store

import (
	"context"
	"time"

	"github.com/answerdesk/answerdesk/pkg/models"
)

// Store is the primary storage interface. All handler and pipeline code
// depends on this interface, making it easy to swap between in-memory
// (tests) and SQLite (production) implementations.
type Store interface {
	SessionStore
	MessageStore
	FeedbackStore

	// Ping checks if the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
}

// ── Session Store ───────────────────────────────────────────

// SessionStore manages multi-turn conversation sessions.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

// ── Message Store ───────────────────────────────────────────

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error

	// ListMessages returns the most recent messages for a session in
	// chronological order, at most limit of them.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error)

	GetMessage(ctx context.Context, id string) (*models.Message, error)
}

// ── Feedback Store ──────────────────────────────────────────

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *models.FeedbackEvent) error

	// ListLowRatedFeedback returns feedback with rating 0 created after
	// since, joined with the rated message and the preceding user query.
	ListLowRatedFeedback(ctx context.Context, since time.Time, limit int) ([]models.FeedbackSample, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
