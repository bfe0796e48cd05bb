package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/agent"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/server"
	"github.com/sadir06/cf-ai-code-review-assistant/mocks"
)

func TestApp_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	log := logger.Discard()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Agent:  config.AgentConfig{HistoryWindow: 10, InboxSize: 4, IdleTimeout: time.Minute},
	}
	pm, err := llm.NewPromptManager()
	require.NoError(t, err)
	ids, err := id.NewGenerator(3)
	require.NoError(t, err)

	svc := agent.NewServices(store, mocks.NewMockCompleter(ctrl), llm.NewPromptBuilder(pm, cfg, nil), llm.NewResponseParser(log), ids, cfg, log)
	dispatcher := agent.NewDispatcher(svc)
	a := NewApp(cfg, nil, store, ids, dispatcher, server.NewServer(cfg, dispatcher, store, ids, log), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, err = dispatcher.Chat(context.Background(), core.ChatRequest{SessionID: "s1", UserID: "u1", Message: "hi"})
	assert.ErrorIs(t, err, agent.ErrDispatcherStopped)
}
