package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation stored for the session",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		sessionID := viper.GetString("SESSION")

		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		session, err := a.Store.GetSession(ctx, sessionID)
		if errors.Is(err, storage.ErrNotFound) {
			dimColor.Printf("Session %q has no history yet.\n", sessionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		if owner := viper.GetString("USER"); owner != session.UserID {
			return fmt.Errorf("session %s: %w", sessionID, core.ErrSessionOwnership)
		}

		msgs, err := a.Store.LoadRecentMessages(ctx, sessionID, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		if outputJSON {
			return printJSON(msgs)
		}

		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra command registration
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of most recent messages to show")
	rootCmd.AddCommand(historyCmd)
}

func printMessage(m core.Message) {
	stamp := m.CreatedAt.Local().Format("2006-01-02 15:04:05")
	switch m.Role {
	case core.RoleUser:
		titleColor.Printf("[%s] you\n", stamp)
	default:
		successColor.Printf("[%s] assistant\n", stamp)
	}
	fmt.Println(strings.TrimSpace(m.Content))
	if m.Code != nil {
		dimColor.Printf("(%d lines of code attached)\n", len(core.SplitLines(*m.Code)))
	}
	fmt.Println()
}
