package wire

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/agent"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/app"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/server"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	provideDispatcher,
	agent.NewServices,
	logger.NewLogger,
	db.NewDatabase,
	storage.NewStore,
	llm.NewPromptManager,
	llm.NewPromptBuilder,
	llm.NewResponseParser,
	llm.NewCompleter,
	provideLoggerConfig,
	provideLogWriter,
	provideDBConfig,
	provideSQLX,
	provideIDGenerator,
	provideReviewProfile,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQLX(conn *db.DB) *sqlx.DB {
	return conn.DB
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.OpenOutput(cfg.Logging.Output)
}

// provideDispatcher stops the dispatcher during cleanup so queued reviews finish
// before the database is closed.
func provideDispatcher(svc *agent.Services) (*agent.Dispatcher, func()) {
	d := agent.NewDispatcher(svc)
	return d, d.Stop
}

func provideIDGenerator(cfg *config.Config) (*id.Generator, error) {
	return id.NewGenerator(cfg.NodeID)
}

// provideReviewProfile loads the optional review profile. A missing file means
// the default profile.
func provideReviewProfile(cfg *config.Config, logger *slog.Logger) (*core.ReviewProfile, error) {
	profile, err := config.LoadReviewProfile(cfg.ProfilePath)
	if errors.Is(err, config.ErrProfileNotFound) {
		logger.Debug("no review profile found, using defaults", "path", cfg.ProfilePath)
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review profile: %w", err)
	}
	logger.Info("loaded review profile",
		"path", cfg.ProfilePath,
		"instructions", len(profile.CustomInstructions),
		"focus_areas", len(profile.FocusAreas))
	return profile, nil
}
