// Package app holds the main components of the review assistant and runs
// their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/agent"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/server"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

// App holds the main application components.
type App struct {
	Cfg        *config.Config
	DB         *db.DB
	Store      storage.Store
	IDs        *id.Generator
	Dispatcher *agent.Dispatcher
	Server     *server.Server
	Logger     *slog.Logger
}

// NewApp creates a new App instance with the given dependencies.
func NewApp(
	cfg *config.Config,
	dbConn *db.DB,
	store storage.Store,
	ids *id.Generator,
	dispatcher *agent.Dispatcher,
	srv *server.Server,
	logger *slog.Logger,
) *App {
	return &App{
		Cfg:        cfg,
		DB:         dbConn,
		Store:      store,
		IDs:        ids,
		Dispatcher: dispatcher,
		Server:     srv,
		Logger:     logger,
	}
}

// Run serves HTTP traffic until ctx is cancelled or the server fails, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("starting review assistant",
		"server_port", a.Cfg.Server.Port,
		"llm_provider", a.Cfg.AI.Provider,
		"llm_model", a.Cfg.AI.Model,
		"db_driver", a.Cfg.Database.Driver)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.Start(); err != nil {
			a.Logger.Error("failed to start HTTP server", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop()
	})
	return g.Wait()
}

// Stop stops accepting requests and waits for in-flight reviews to finish.
func (a *App) Stop() error {
	a.Logger.Info("stopping review assistant")
	var errs []error
	if a.Server != nil {
		if err := a.Server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
		}
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	return errors.Join(errs...)
}
