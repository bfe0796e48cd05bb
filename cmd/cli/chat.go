package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a follow-up question about the latest review in the session",
	Example: `  review-cli review main.go
  review-cli chat "why is the error on line 12 critical?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := a.Dispatcher.Chat(ctx, core.ChatRequest{
		SessionID: viper.GetString("SESSION"),
		UserID:    viper.GetString("USER"),
		Message:   strings.Join(args, " "),
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}
	if result.Degraded {
		warnColor.Println(result.Response)
	} else {
		fmt.Print(renderMarkdown(result.Response))
	}
	if !result.Persisted {
		warnColor.Println("Note: this exchange could not be saved to the session history.")
	}
	return nil
}
