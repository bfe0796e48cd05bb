package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	conn, cleanup, err := db.NewDatabase(&config.DBConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "store.db"),
	})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return NewStore(conn.DB)
}

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func msg(id int64, session string, role core.Role, content string, at time.Time) *core.Message {
	return &core.Message{ID: id, SessionID: session, Role: role, Content: content, CreatedAt: at}
}

func TestStore_TouchSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	s, err := store.TouchSession(ctx, "s1", "alice", base)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID)
	assert.True(t, s.CreatedAt.Equal(base))

	later := base.Add(time.Minute)
	s, err = store.TouchSession(ctx, "s1", "alice", later)
	require.NoError(t, err)
	assert.True(t, s.CreatedAt.Equal(base), "created_at is immutable")
	assert.True(t, s.LastActiveAt.Equal(later))

	_, err = store.TouchSession(ctx, "s1", "mallory", later.Add(time.Minute))
	assert.True(t, errors.Is(err, core.ErrSessionOwnership))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.LastActiveAt.Equal(later), "a rejected touch must not bump the session")
}

func TestStore_GetSessionNotFound(t *testing.T) {
	_, err := newTestStore(t).GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_CreateSessionDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := &core.Session{ID: "dup", UserID: "u", CreatedAt: base, LastActiveAt: base}
	require.NoError(t, store.CreateSession(ctx, session))

	err := store.CreateSession(ctx, session)
	assert.True(t, errors.Is(err, core.ErrStorageWrite))
}

func TestStore_MessagesOrderingAndWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.TouchSession(ctx, "s1", "u", base)
	require.NoError(t, err)

	code := "x := 1"
	var batch []*core.Message
	for i := 0; i < 6; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		m := msg(int64(100+i), "s1", role, string(rune('a'+i)), base.Add(time.Duration(i)*time.Millisecond))
		if i == 0 {
			m.Code = &code
		}
		batch = append(batch, m)
	}
	require.NoError(t, store.AppendMessages(ctx, batch[:2]))
	require.NoError(t, store.AppendMessages(ctx, batch[2:]))

	recent, err := store.LoadRecentMessages(ctx, "s1", 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, []string{"c", "d", "e", "f"}, contents(recent), "most recent window, oldest first")

	all, err := store.LoadRecentMessages(ctx, "s1", 100)
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.NotNil(t, all[0].Code)
	assert.Equal(t, code, *all[0].Code)
	assert.Nil(t, all[1].Code)
	assert.Equal(t, core.RoleAssistant, all[1].Role)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	page, err := store.ListMessages(ctx, "s1", 2, 103)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, contents(page))

	none, err := store.LoadRecentMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	other, err := store.LoadRecentMessages(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_AppendMessagesIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.TouchSession(ctx, "s1", "u", base)
	require.NoError(t, err)

	// The second message reuses the first id, so the whole batch must fail.
	err = store.AppendMessages(ctx, []*core.Message{
		msg(1, "s1", core.RoleUser, "question", base),
		msg(1, "s1", core.RoleAssistant, "answer", base.Add(time.Millisecond)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorageWrite))

	msgs, err := store.LoadRecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStore_AppendMessagesRequiresSession(t *testing.T) {
	err := newTestStore(t).AppendMessages(context.Background(), []*core.Message{
		msg(1, "ghost", core.RoleUser, "hello", base),
	})
	assert.True(t, errors.Is(err, core.ErrStorageWrite), "foreign keys are enforced")
}

func TestStore_Reviews(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.TouchSession(ctx, "s1", "u", base)
	require.NoError(t, err)

	line := 3
	first := &core.Review{
		ID: 10, SessionID: "s1", Language: "go", CodeHash: core.Fingerprint("a"),
		Summary: "first", Confidence: 0.85, CreatedAt: base,
		Suggestions: []core.Suggestion{
			{ID: 11, Type: core.IssueBug, Severity: core.SeverityHigh, Line: &line, Message: "nil deref", Fix: "check nil", Explanation: "x"},
			{ID: 12, Type: core.IssueStyle, Severity: core.SeverityLow, Message: "naming"},
		},
	}
	second := &core.Review{
		ID: 20, SessionID: "s1", Language: "go", CodeHash: core.Fingerprint("b"),
		Summary: "second", Confidence: 0.5, CreatedAt: base.Add(time.Second),
		Suggestions: []core.Suggestion{{ID: 21, Type: core.IssueStyle, Severity: core.SeverityLow, Message: "No specific issues detected"}},
	}
	require.NoError(t, store.SaveReview(ctx, first))
	require.NoError(t, store.SaveReview(ctx, second))

	got, err := store.GetReview(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Summary)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	require.Len(t, got.Suggestions, 2)
	assert.Equal(t, int64(10), got.Suggestions[0].ReviewID)
	require.NotNil(t, got.Suggestions[0].Line)
	assert.Equal(t, 3, *got.Suggestions[0].Line)
	assert.Nil(t, got.Suggestions[1].Line)
	assert.Nil(t, got.Suggestions[1].Column)

	latest, err := store.GetLatestReview(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), latest.ID)

	_, err = store.GetLatestReview(ctx, "empty")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.GetReview(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_SaveReviewIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.TouchSession(ctx, "s1", "u", base)
	require.NoError(t, err)

	bad := &core.Review{
		ID: 30, SessionID: "s1", Language: "go", CodeHash: "h", Summary: "s", CreatedAt: base,
		Suggestions: []core.Suggestion{
			{ID: 31, Type: core.IssueBug, Severity: core.SeverityHigh, Message: "ok"},
			{ID: 32, Type: "made-up", Severity: core.SeverityHigh, Message: "violates the type check"},
		},
	}
	err = store.SaveReview(ctx, bad)
	require.Error(t, err)

	_, err = store.GetReview(ctx, 30)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, store.SaveReview(ctx, &core.Review{SessionID: "s1"}), "unassigned ids are rejected")
}

func contents(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
