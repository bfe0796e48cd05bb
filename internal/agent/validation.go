package agent

import (
	"context"
	"log/slog"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
)

// finalizeSuggestions enforces the review invariants on parsed suggestions:
// every line reference lies within the reviewed code, every severity is one
// core.SeverityFor can produce and at most maxSuggestions are kept. The result
// is never empty; fellBack reports that nothing survived and the fallback
// suggestion was used instead.
func finalizeSuggestions(ctx context.Context, logger *slog.Logger, suggestions []core.Suggestion, lineCount, maxSuggestions int) (_ []core.Suggestion, fellBack bool) {
	valid := make([]core.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Line != nil && (*s.Line < 1 || *s.Line > lineCount) {
			logger.WarnContext(ctx, "dropping suggestion outside the reviewed code",
				"line", *s.Line,
				"line_count", lineCount,
				"type", s.Type,
			)
			continue
		}
		if !s.HasLine() {
			s.Column = nil
		}
		if !knownSeverity(s.Severity) {
			s.Severity = core.SeverityFor(s.Type, s.Message)
		}
		valid = append(valid, s)
	}

	if len(valid) == 0 {
		return llm.FallbackStrategy{}.Parse("", nil), true
	}
	if maxSuggestions > 0 && len(valid) > maxSuggestions {
		logger.InfoContext(ctx, "capping review suggestions", "parsed", len(valid), "kept", maxSuggestions)
		valid = valid[:maxSuggestions]
	}
	return valid, false
}

func knownSeverity(s core.Severity) bool {
	switch s {
	case core.SeverityLow, core.SeverityMedium, core.SeverityHigh, core.SeverityCritical:
		return true
	}
	return false
}
