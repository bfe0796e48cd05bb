package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

const wrapWidth = 100

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printReview(result *core.ReviewResult, lines []string) {
	separator := strings.Repeat("=", 60)
	thinSeparator := strings.Repeat("-", 60)

	fmt.Println()
	titleColor.Println(separator)
	titleColor.Println("REVIEW SUMMARY")
	titleColor.Println(separator)
	fmt.Println()
	if result.Degraded {
		warnColor.Println(result.Summary)
		return
	}
	infoColor.Println(result.Summary)
	dimColor.Printf("Confidence: %.2f  Review: %d\n", result.Confidence, result.ReviewID)

	fmt.Println()
	warnColor.Println(thinSeparator)
	warnColor.Printf("SUGGESTIONS (%d)\n", len(result.Suggestions))
	warnColor.Println(thinSeparator)

	for i, s := range result.Suggestions {
		fmt.Println()
		printSeverityBadge(s.Severity)
		boldColor.Printf(" %s", s.Type)
		if s.HasLine() {
			dimColor.Printf("  line %d", *s.Line)
		}
		fmt.Println()
		infoColor.Println(s.Message)
		if s.HasLine() && *s.Line <= len(lines) {
			dimColor.Printf("   > %s\n", strings.TrimSpace(lines[*s.Line-1]))
		}
		if s.Fix != "" {
			successColor.Printf("   Fix: %s\n", s.Fix)
		}

		if i < len(result.Suggestions)-1 {
			fmt.Println()
			dimColor.Println(strings.Repeat("-", 40))
		}
	}
	fmt.Println()
}

func printSeverityBadge(severity core.Severity) {
	label := strings.ToUpper(string(severity))
	switch severity {
	case core.SeverityCritical:
		color.New(color.BgRed, color.FgWhite, color.Bold).Printf(" %s ", label)
	case core.SeverityHigh:
		color.New(color.BgHiRed, color.FgWhite).Printf(" %s ", label)
	case core.SeverityMedium:
		color.New(color.BgYellow, color.FgBlack).Printf(" %s ", label)
	case core.SeverityLow:
		color.New(color.BgGreen, color.FgWhite).Printf(" %s ", label)
	default:
		color.New(color.BgWhite, color.FgBlack).Printf(" %s ", label)
	}
}

// renderMarkdown renders a chat reply for the terminal, falling back to the
// raw text when rendering fails.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
