package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
	"github.com/sadir06/cf-ai-code-review-assistant/mocks"
)

const pythonSnippet = "import os\nos.system(user_input)\n"

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AIConfig{Provider: "openai", Model: "test-model"},
		Agent: config.AgentConfig{
			HistoryWindow:     10,
			ReviewTemperature: 0.1,
			ReviewMaxTokens:   1024,
			ChatTemperature:   0.7,
			ChatMaxTokens:     768,
			MaxSuggestions:    50,
			InboxSize:         16,
			CompletionTimeout: 5 * time.Second,
			StorageTimeout:    5 * time.Second,
			IdleTimeout:       time.Minute,
		},
	}
}

func newSQLiteStore(t *testing.T) storage.Store {
	t.Helper()
	conn, cleanup, err := db.NewDatabase(&config.DBConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "agent.db"),
	})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return storage.NewStore(conn.DB)
}

func newTestServices(t *testing.T, store storage.Store, completer core.Completer, cfg *config.Config) *Services {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	pm, err := llm.NewPromptManager()
	require.NoError(t, err)
	ids, err := id.NewGenerator(1)
	require.NoError(t, err)

	log := logger.Discard()
	return NewServices(store, completer, llm.NewPromptBuilder(pm, cfg, nil), llm.NewResponseParser(log), ids, cfg, log)
}

func reviewRequest(sessionID string) core.ReviewRequest {
	return core.ReviewRequest{SessionID: sessionID, UserID: "u1", Code: pythonSnippet, Language: "Python"}
}

func unavailable() error {
	return fmt.Errorf("%w: upstream returned 503", core.ErrServiceUnavailable)
}

func TestAgent_ReviewStrictResponse(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newSQLiteStore(t)
	completer := mocks.NewMockCompleter(ctrl)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.CompletionRequest) (string, error) {
			require.Len(t, req.Messages, 2)
			assert.Contains(t, req.Messages[1].Content, "```python")
			return "Line 2: SECURITY Command injection through os.system | Fix: use subprocess.run with an argument list", nil
		})

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	res, err := agent.Review(ctx, reviewRequest("s1"))
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, StateDone, agent.State())
	assert.InDelta(t, confidenceStrict, res.Confidence, 1e-9)
	assert.Equal(t, "Found 1 issue in the python code: 1 high.", res.Summary)
	require.Len(t, res.Suggestions, 1)
	s := res.Suggestions[0]
	assert.Equal(t, core.IssueSecurity, s.Type)
	assert.Equal(t, core.SeverityHigh, s.Severity)
	require.NotNil(t, s.Line)
	assert.Equal(t, 2, *s.Line)
	assert.NotZero(t, s.ID)
	assert.Equal(t, res.ReviewID, s.ReviewID)

	stored, err := store.GetReview(ctx, res.ReviewID)
	require.NoError(t, err)
	assert.Equal(t, res.Summary, stored.Summary)
	assert.Equal(t, core.Fingerprint(pythonSnippet), stored.CodeHash)
	require.Len(t, stored.Suggestions, 1)
	assert.Equal(t, s.ID, stored.Suggestions[0].ID)

	msgs, err := store.LoadRecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2, "a review writes exactly two turns")
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "Please review this python code.", msgs[0].Content)
	require.NotNil(t, msgs[0].Code)
	assert.Equal(t, pythonSnippet, *msgs[0].Code)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, res.Summary))
	assert.Contains(t, msgs[1].Content, "- Line 2 [security/high]")
	assert.True(t, msgs[1].CreatedAt.Equal(res.Timestamp))

	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
}

func TestAgent_ReviewConfidenceByTier(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"heuristic", "- The call on line 2 allows command injection. Use subprocess.run instead.", confidenceHeuristic},
		{"fallback", "Looks fine.", confidenceFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			completer := mocks.NewMockCompleter(ctrl)
			completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tt.response, nil)

			agent := NewAgent(newTestServices(t, newSQLiteStore(t), completer, nil), "s1")
			res, err := agent.Review(context.Background(), reviewRequest("s1"))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Confidence, 1e-9)
			assert.NotEmpty(t, res.Suggestions)
		})
	}
}

func TestAgent_ReviewDegradedOnCompletionFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newSQLiteStore(t)
	completer := mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", unavailable())

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	res, err := agent.Review(ctx, reviewRequest("s1"))
	require.NoError(t, err, "completion failures degrade instead of failing")

	assert.True(t, res.Degraded)
	assert.Equal(t, StateDegraded, agent.State())
	assert.Zero(t, res.Confidence)
	assert.Contains(t, res.Summary, "unavailable")
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, core.IssueStyle, res.Suggestions[0].Type)
	assert.Equal(t, core.SeverityLow, res.Suggestions[0].Severity)
	assert.Contains(t, res.Suggestions[0].Message, "unavailable")
	assert.NotContains(t, res.Suggestions[0].Message, "No specific issues")

	stored, err := store.GetLatestReview(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, stored.Suggestions, 1)
	assert.Equal(t, res.Suggestions[0].Message, stored.Suggestions[0].Message)

	msgs, err := store.LoadRecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "unavailable")
}

func TestAgent_ReviewCapsSuggestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)

	var response strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&response, "Line %d: STYLE issue number %d | Fix: rename\n", i, i)
	}
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(response.String(), nil)

	cfg := testConfig()
	cfg.Agent.MaxSuggestions = 2
	agent := NewAgent(newTestServices(t, newSQLiteStore(t), completer, cfg), "s1")

	req := reviewRequest("s1")
	req.Code = "a = 1\nb = 2\nc = 3\nd = 4\ne = 5\n"
	res, err := agent.Review(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, 1, *res.Suggestions[0].Line)
	assert.Equal(t, 2, *res.Suggestions[1].Line)
}

func TestAgent_ReviewSwallowsStorageFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	completer := mocks.NewMockCompleter(ctrl)
	writeErr := fmt.Errorf("%w: database is locked", core.ErrStorageWrite)

	store.EXPECT().TouchSession(gomock.Any(), "s1", "u1", gomock.Any()).Return(nil, writeErr)
	store.EXPECT().LoadRecentMessages(gomock.Any(), "s1", 1).Return(nil, errors.New("read failed"))
	store.EXPECT().SaveReview(gomock.Any(), gomock.Any()).Return(writeErr)
	store.EXPECT().AppendMessages(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, msgs []*core.Message) error {
			assert.Equal(t, core.RoleUser, msgs[0].Role)
			assert.Equal(t, core.RoleAssistant, msgs[1].Role)
			assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
			return writeErr
		})
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("Line 1: BUG unused import | Fix: remove it", nil)

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	res, err := agent.Review(context.Background(), reviewRequest("s1"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, agent.State())
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, core.IssueBug, res.Suggestions[0].Type)
}

func TestAgent_RejectsForeignSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	completer := mocks.NewMockCompleter(ctrl)
	store.EXPECT().TouchSession(gomock.Any(), "s1", "u1", gomock.Any()).
		Return(nil, fmt.Errorf("session s1: %w", core.ErrSessionOwnership)).Times(2)

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")

	_, err := agent.Review(context.Background(), reviewRequest("s1"))
	assert.True(t, errors.Is(err, core.ErrSessionOwnership))

	_, err = agent.Chat(context.Background(), core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "hi"})
	assert.True(t, errors.Is(err, core.ErrSessionOwnership))
}

func TestAgent_RejectsInvalidRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := NewAgent(newTestServices(t, mocks.NewMockStore(ctrl), mocks.NewMockCompleter(ctrl), nil), "s1")

	_, err := agent.Review(context.Background(), reviewRequest("s2"))
	assert.True(t, errors.Is(err, core.ErrInvalidRequest), "request routed to the wrong agent")

	empty := reviewRequest("s1")
	empty.Code = "  \n"
	_, err = agent.Review(context.Background(), empty)
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))

	_, err = agent.Chat(context.Background(), core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "   "})
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
}

func TestAgent_ChatAfterReview(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newSQLiteStore(t)
	completer := mocks.NewMockCompleter(ctrl)

	gomock.InOrder(
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return("Line 2: SECURITY Command injection through os.system | Fix: use subprocess.run", nil),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req core.CompletionRequest) (string, error) {
				require.Len(t, req.Messages, 4, "system, two review turns and the question")
				assert.Equal(t, core.RoleSystem, req.Messages[0].Role)
				assert.Contains(t, req.Messages[0].Content, "Found 1 issue in the python code")
				assert.Contains(t, req.Messages[0].Content, "[security/high]")
				assert.Contains(t, req.Messages[1].Content, "os.system(user_input)", "the reviewed code is part of the history")
				assert.Equal(t, "Why is line 2 dangerous?", req.Messages[3].Content)
				assert.InDelta(t, 0.7, req.Temperature, 1e-9)
				return "  Because the shell interprets user_input.\n", nil
			}),
	)

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	_, err := agent.Review(ctx, reviewRequest("s1"))
	require.NoError(t, err)

	res, err := agent.Chat(ctx, core.ChatRequest{SessionID: "s1", UserID: "u1", Message: " Why is line 2 dangerous? "})
	require.NoError(t, err)
	assert.Equal(t, "  Because the shell interprets user_input.\n", res.Response, "replies are returned verbatim")
	assert.True(t, res.Persisted)
	assert.False(t, res.Degraded)

	msgs, err := store.LoadRecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Why is line 2 dangerous?", msgs[2].Content)
	assert.Equal(t, res.Response, msgs[3].Content)
	assert.True(t, msgs[3].CreatedAt.Equal(res.Timestamp))
}

func TestAgent_ChatUsesSuppliedReviewContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.CompletionRequest) (string, error) {
			assert.Contains(t, req.Messages[0].Content, "Prior review of go code:")
			assert.Contains(t, req.Messages[0].Content, "client supplied summary")
			return "ok", nil
		})

	agent := NewAgent(newTestServices(t, newSQLiteStore(t), completer, nil), "s1")
	res, err := agent.Chat(context.Background(), core.ChatRequest{
		SessionID:   "s1",
		UserID:      "u1",
		Message:     "explain",
		PriorReview: &core.ReviewContext{Language: "go", Summary: "client supplied summary"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Response)
}

func TestAgent_ChatDegradedStillWritesBothTurns(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newSQLiteStore(t)
	completer := mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", unavailable())

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	res, err := agent.Chat(ctx, core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.True(t, res.Persisted)
	assert.Equal(t, UnavailableReply, res.Response)
	assert.Equal(t, StateDegraded, agent.State())

	msgs, err := store.LoadRecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, UnavailableReply, msgs[1].Content)
}

func TestAgent_ChatReportsPersistenceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	completer := mocks.NewMockCompleter(ctrl)

	store.EXPECT().TouchSession(gomock.Any(), "s1", "u1", gomock.Any()).Return(&core.Session{ID: "s1", UserID: "u1"}, nil)
	store.EXPECT().LoadRecentMessages(gomock.Any(), "s1", 10).Return(nil, nil)
	store.EXPECT().GetLatestReview(gomock.Any(), "s1").Return(nil, storage.ErrNotFound)
	store.EXPECT().AppendMessages(gomock.Any(), gomock.Len(2)).Return(fmt.Errorf("%w: disk full", core.ErrStorageWrite))
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("answer", nil)

	agent := NewAgent(newTestServices(t, store, completer, nil), "s1")
	res, err := agent.Chat(context.Background(), core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "question"})
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Response)
	assert.False(t, res.Persisted)
}

func TestAgent_TimestampsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := newSQLiteStore(t)
	completer := mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("reply", nil).AnyTimes()

	frozen := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	_, err := store.TouchSession(ctx, "s1", "u1", frozen)
	require.NoError(t, err)
	// A message written by an earlier process, ahead of the local clock.
	require.NoError(t, store.AppendMessages(ctx, []*core.Message{
		{ID: 1, SessionID: "s1", Role: core.RoleUser, Content: "earlier", CreatedAt: frozen.Add(time.Hour)},
	}))

	svc := newTestServices(t, store, completer, nil)
	svc.now = func() time.Time { return frozen }
	agent := NewAgent(svc, "s1")

	_, err = agent.Review(ctx, reviewRequest("s1"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = agent.Chat(ctx, core.ChatRequest{SessionID: "s1", UserID: "u1", Message: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}

	msgs, err := store.LoadRecentMessages(ctx, "s1", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 9)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt), "message %d is not after message %d", i, i-1)
	}
}

func TestSummarize(t *testing.T) {
	line := 1
	suggestions := []core.Suggestion{
		{Type: core.IssueBug, Severity: core.SeverityCritical, Line: &line},
		{Type: core.IssueBug, Severity: core.SeverityHigh},
		{Type: core.IssueStyle, Severity: core.SeverityLow},
		{Type: core.IssueStyle, Severity: core.SeverityLow},
	}
	assert.Equal(t, "Found 4 issues in the go code: 1 critical, 1 high, 2 low.", summarize("go", suggestions, llm.TierStrict))
	assert.Equal(t, "No specific issues detected in the go code.", summarize("go", suggestions[:1], llm.TierFallback))
}
