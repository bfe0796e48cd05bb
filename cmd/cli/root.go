package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/app"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/db"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/wire"
)

var (
	verbose    bool
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "review-cli",
	Short: "review-cli reviews code and discusses the results from the terminal.",
	Long: `A CLI for the code review assistant. Reviews and conversations are kept in a
local SQLite database, so follow-up questions in the same session see earlier reviews.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("session", "s", "cli", "Session id the conversation is stored under")
	flags.StringP("user", "u", defaultUser(), "User id that owns the session")
	flags.String("db", "", "Path of the SQLite database (defaults to DB_PATH)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
	flags.BoolVar(&outputJSON, "json", false, "Print results as JSON")

	for key, flag := range map[string]string{"SESSION": "session", "USER": "user", "DB": "db"} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// initApp builds the application against the local database. Logs go to
// stderr so stdout stays clean for results.
func initApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w\n\nTip: set LLM_API_KEY (or CLOUDFLARE_API_TOKEN) in the environment or .env", err)
	}
	cfg.Logging.Output = "stderr"
	if !verbose {
		cfg.Logging.Level = "error"
	}
	if path := viper.GetString("DB"); path != "" {
		cfg.Database.Driver = db.DriverSQLite
		cfg.Database.Path = path
	}

	a, cleanup, err := wire.InitializeAppWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, cleanup, nil
}
