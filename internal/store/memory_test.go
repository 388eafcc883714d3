package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/answerdesk/answerdesk/internal/store"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// newTestStore creates a fresh in-memory store for tests.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s store.Store, id string) {
	t.Helper()
	now := time.Now()
	if err := s.CreateSession(context.Background(), &models.Session{ID: id, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
}

func seedMessage(t *testing.T, s store.Store, id, sessionID, role, content string, at time.Time) {
	t.Helper()
	err := s.CreateMessage(context.Background(), &models.Message{
		ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
}

// ─── Sessions ────────────────────────────────────────────────

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedSession(t, s, "sess-1")

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ID != "sess-1" {
		t.Errorf("GetSession().ID = %q, want %q", got.ID, "sess-1")
	}

	later := time.Now().Add(time.Minute)
	if err := s.TouchSession(ctx, "sess-1", later); err != nil {
		t.Fatalf("TouchSession() error = %v", err)
	}
	got, _ = s.GetSession(ctx, "sess-1")
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}

	if err := s.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	var nf *store.ErrNotFound
	if _, err := s.GetSession(ctx, "sess-1"); !errors.As(err, &nf) {
		t.Errorf("GetSession() after delete error = %v, want ErrNotFound", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	var nf *store.ErrNotFound
	if _, err := s.GetSession(context.Background(), "nope"); !errors.As(err, &nf) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
}

// ─── Messages ────────────────────────────────────────────────

func TestListMessagesHonorsLimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "sess-1")

	base := time.Now()
	for i, content := range []string{"one", "two", "three", "four"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		seedMessage(t, s, content, "sess-1", role, content, base.Add(time.Duration(i)*time.Second))
	}

	got, err := s.ListMessages(context.Background(), "sess-1", 2)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListMessages() len = %d, want 2", len(got))
	}
	// Most recent two, in chronological order.
	if got[0].Content != "three" || got[1].Content != "four" {
		t.Errorf("messages = %q, %q; want three, four", got[0].Content, got[1].Content)
	}
}

func TestListMessagesEmptySession(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListMessages(context.Background(), "ghost", 5)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListMessages() len = %d, want 0", len(got))
	}
}

// ─── Feedback ────────────────────────────────────────────────

func TestFeedbackRequiresExistingMessage(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateFeedback(context.Background(), &models.FeedbackEvent{
		ID: "fb-1", MessageID: "ghost", Rating: 0, CreatedAt: time.Now(),
	})
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("CreateFeedback() error = %v, want ErrNotFound", err)
	}
}

func TestListLowRatedFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSession(t, s, "sess-1")

	base := time.Now()
	seedMessage(t, s, "q1", "sess-1", "user", "what is your email?", base)
	seedMessage(t, s, "a1", "sess-1", "assistant", "I don't have that information.", base.Add(time.Second))
	seedMessage(t, s, "q2", "sess-1", "user", "ok thanks", base.Add(2*time.Second))

	feedback := []models.FeedbackEvent{
		{ID: "fb-1", MessageID: "a1", Rating: 0, Comment: "didn't answer", CreatedAt: base.Add(3 * time.Second)},
		{ID: "fb-2", MessageID: "a1", Rating: 1, CreatedAt: base.Add(4 * time.Second)},
	}
	for i := range feedback {
		if err := s.CreateFeedback(ctx, &feedback[i]); err != nil {
			t.Fatalf("CreateFeedback() error = %v", err)
		}
	}

	got, err := s.ListLowRatedFeedback(ctx, base, 10)
	if err != nil {
		t.Fatalf("ListLowRatedFeedback() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListLowRatedFeedback() len = %d, want 1 (only rating=0)", len(got))
	}
	if got[0].Query != "what is your email?" {
		t.Errorf("Query = %q, want preceding user message", got[0].Query)
	}
	if got[0].Response != "I don't have that information." {
		t.Errorf("Response = %q", got[0].Response)
	}
	if got[0].Comment != "didn't answer" {
		t.Errorf("Comment = %q", got[0].Comment)
	}
}

func TestListLowRatedFeedbackWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSession(t, s, "sess-1")

	base := time.Now()
	seedMessage(t, s, "a1", "sess-1", "assistant", "old reply", base.Add(-48*time.Hour))
	if err := s.CreateFeedback(ctx, &models.FeedbackEvent{
		ID: "fb-old", MessageID: "a1", Rating: 0, CreatedAt: base.Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateFeedback() error = %v", err)
	}

	got, err := s.ListLowRatedFeedback(ctx, base.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListLowRatedFeedback() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListLowRatedFeedback() len = %d, want 0 outside window", len(got))
	}
}
