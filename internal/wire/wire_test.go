package wire

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/agent"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Database: config.DBConfig{Driver: db.DriverSQLite, Path: filepath.Join(t.TempDir(), "wire.db")},
		AI:       config.AIConfig{Provider: "openai", Model: "test-model", APIKey: "k", BaseURL: "http://127.0.0.1:1"},
		Agent:    config.AgentConfig{HistoryWindow: 10, MaxSuggestions: 50},
		Logging:  logger.Config{Level: "error", Format: "text", Output: "stderr"},
		NodeID:   5,
	}
}

func TestInitializeAppWithConfig(t *testing.T) {
	cfg := testConfig(t)
	a, cleanup, err := InitializeAppWithConfig(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, cfg, a.Cfg)
	require.NotNil(t, a.DB)
	assert.Equal(t, db.DriverSQLite, a.DB.Driver())
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.IDs)
	assert.NotNil(t, a.Server)
	require.NotNil(t, a.Dispatcher)

	session := &core.Session{ID: "s1", UserID: "u1", CreatedAt: time.Now().UTC(), LastActiveAt: time.Now().UTC()}
	require.NoError(t, a.Store.CreateSession(context.Background(), session))

	cleanup()
	_, err = a.Dispatcher.Chat(context.Background(), core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "hi"})
	assert.ErrorIs(t, err, agent.ErrDispatcherStopped, "cleanup stops the dispatcher")
	assert.Error(t, a.DB.Ping(), "cleanup closes the database")
}

func TestInitializeAppWithConfig_Errors(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AI.Provider = "nope"
		_, _, err := InitializeAppWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("invalid node id", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.NodeID = 5000
		_, _, err := InitializeAppWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("broken review profile", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ProfilePath = t.TempDir()
		_, _, err := InitializeAppWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})
}
