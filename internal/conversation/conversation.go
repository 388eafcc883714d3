// Package conversation manages multi-turn session history on top of the
// store, converting persisted messages into the chat form the LLM prompts
// consume.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/internal/store"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// Manager provides session-scoped history access.
type Manager struct {
	store  store.Store
	logger zerolog.Logger
}

func NewManager(s store.Store, logger zerolog.Logger) *Manager {
	return &Manager{store: s, logger: logger.With().Str("component", "conversation").Logger()}
}

// EnsureSession returns sessionID if it exists, creating it otherwise.
// An empty sessionID mints a new one.
func (m *Manager) EnsureSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	_, err := m.store.GetSession(ctx, sessionID)
	if err == nil {
		return sessionID, nil
	}
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		return "", fmt.Errorf("look up session: %w", err)
	}

	now := time.Now().UTC()
	if err := m.store.CreateSession(ctx, &models.Session{ID: sessionID, CreatedAt: now, UpdatedAt: now}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	m.logger.Debug().Str("session_id", sessionID).Msg("session created")
	return sessionID, nil
}

// History returns the most recent limit turns for a session in chronological
// order. Unknown sessions yield empty history, not an error.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if sessionID == "" {
		return nil, nil
	}
	msgs, err := m.store.ListMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]models.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, models.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}

// Record persists one turn and bumps the session's activity timestamp.
func (m *Manager) Record(ctx context.Context, sessionID, role, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("record message: %w", err)
	}
	if err := m.store.TouchSession(ctx, sessionID, msg.CreatedAt); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("touch session failed")
	}
	return msg, nil
}
