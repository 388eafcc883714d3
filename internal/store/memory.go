package store

import (
	"context"
	"sync"
	"time"

	"github.com/answerdesk/answerdesk/pkg/models"
)

// MemoryStore implements Store with in-memory maps. Used in tests and
// single-process deployments where durability is not needed.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session   // key: id
	messages map[string][]*models.Message // key: session_id, chronological
	byID     map[string]*models.Message   // key: message id
	feedback []*models.FeedbackEvent      // append-only
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]*models.Message),
		byID:     make(map[string]*models.Message),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

// ── Sessions ────────────────────────────────────────────────

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "session", Key: id}
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemoryStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return &ErrNotFound{Entity: "session", Key: id}
	}
	s.UpdatedAt = at
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &ErrNotFound{Entity: "session", Key: id}
	}
	delete(m.sessions, id)
	for _, msg := range m.messages[id] {
		delete(m.byID, msg.ID)
	}
	delete(m.messages, id)
	return nil
}

// ── Messages ────────────────────────────────────────────────

func (m *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &cp)
	m.byID[msg.ID] = &cp
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, *msg)
	}
	return out, nil
}

func (m *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.byID[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "message", Key: id}
	}
	cp := *msg
	return &cp, nil
}

// ── Feedback ────────────────────────────────────────────────

func (m *MemoryStore) CreateFeedback(ctx context.Context, fb *models.FeedbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[fb.MessageID]; !ok {
		return &ErrNotFound{Entity: "message", Key: fb.MessageID}
	}
	cp := *fb
	m.feedback = append(m.feedback, &cp)
	return nil
}

func (m *MemoryStore) ListLowRatedFeedback(ctx context.Context, since time.Time, limit int) ([]models.FeedbackSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.FeedbackSample
	for _, fb := range m.feedback {
		if fb.Rating != 0 || fb.CreatedAt.Before(since) {
			continue
		}
		msg, ok := m.byID[fb.MessageID]
		if !ok {
			continue
		}
		out = append(out, models.FeedbackSample{
			Query:    m.precedingQuery(msg),
			Response: msg.Content,
			Comment:  fb.Comment,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// precedingQuery finds the user message immediately before the rated
// assistant message in its session. Caller holds the read lock.
func (m *MemoryStore) precedingQuery(msg *models.Message) string {
	msgs := m.messages[msg.SessionID]
	idx := -1
	for i, candidate := range msgs {
		if candidate.ID == msg.ID {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}
