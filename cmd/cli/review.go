package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
)

var (
	reviewLanguage string
	reviewFocus    string
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a source file and print categorized suggestions",
	Long: `Review a source file and print categorized, line-anchored suggestions.

The language is detected from the file extension unless --language is given.
Use "-" to read the code from stdin.

Examples:
  review-cli review main.go
  review-cli review --focus security handlers/login.py
  cat query.sql | review-cli review --language sql -`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().StringVarP(&reviewLanguage, "language", "l", "", "Language of the code (detected from the file name by default)")
	reviewCmd.Flags().StringVarP(&reviewFocus, "focus", "f", "", "Area the review should focus on, e.g. security")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := args[0]
	code, err := readSource(path)
	if err != nil {
		return err
	}
	language := reviewLanguage
	if language == "" && path != "-" {
		language = llm.LanguageForPath(path)
	}

	a, cleanup, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !outputJSON {
		dimColor.Printf("Reviewing %s (%s)...\n", path, displayLanguage(language))
	}
	result, err := a.Dispatcher.Review(ctx, core.ReviewRequest{
		SessionID: viper.GetString("SESSION"),
		UserID:    viper.GetString("USER"),
		Code:      code,
		Language:  language,
		Context:   reviewFocus,
	})
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}
	printReview(result, core.SplitLines(code))
	return nil
}

func readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, core.MaxCodeBytes+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func displayLanguage(lang string) string {
	if lang == "" {
		return core.DefaultLanguage
	}
	return lang
}
