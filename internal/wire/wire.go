//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/app"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
)

// InitializeApp builds the application from configuration loaded from the
// environment and .env.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(config.LoadConfig, AppSet)
	return &app.App{}, nil, nil
}

// InitializeAppWithConfig builds the application from an explicit configuration.
func InitializeAppWithConfig(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}
