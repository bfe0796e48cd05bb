package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
)

func intPtr(n int) *int { return &n }

func TestFinalizeSuggestions(t *testing.T) {
	tests := []struct {
		name        string
		suggestions []core.Suggestion
		lineCount   int
		max         int
		check       func(t *testing.T, got []core.Suggestion, fellBack bool)
	}{
		{
			name: "drops out of range anchors",
			suggestions: []core.Suggestion{
				{Type: core.IssueBug, Severity: core.SeverityHigh, Line: intPtr(3), Message: "ok"},
				{Type: core.IssueBug, Severity: core.SeverityHigh, Line: intPtr(4), Message: "past the end"},
				{Type: core.IssueBug, Severity: core.SeverityHigh, Line: intPtr(0), Message: "before the start"},
			},
			lineCount: 3,
			check: func(t *testing.T, got []core.Suggestion, fellBack bool) {
				require.Len(t, got, 1)
				assert.Equal(t, "ok", got[0].Message)
				assert.False(t, fellBack)
			},
		},
		{
			name: "caps the number of suggestions",
			suggestions: []core.Suggestion{
				{Type: core.IssueStyle, Severity: core.SeverityLow, Message: "a"},
				{Type: core.IssueStyle, Severity: core.SeverityLow, Message: "b"},
				{Type: core.IssueStyle, Severity: core.SeverityLow, Message: "c"},
			},
			lineCount: 1,
			max:       2,
			check: func(t *testing.T, got []core.Suggestion, fellBack bool) {
				require.Len(t, got, 2)
				assert.Equal(t, "b", got[1].Message)
			},
		},
		{
			name: "unknown severity is derived from the type",
			suggestions: []core.Suggestion{
				{Type: core.IssueSecurity, Severity: "urgent", Message: "severe injection"},
			},
			lineCount: 1,
			check: func(t *testing.T, got []core.Suggestion, fellBack bool) {
				assert.Equal(t, core.SeverityCritical, got[0].Severity)
			},
		},
		{
			name: "column without line is cleared",
			suggestions: []core.Suggestion{
				{Type: core.IssueStyle, Severity: core.SeverityLow, Column: intPtr(4), Message: "x"},
			},
			lineCount: 1,
			check: func(t *testing.T, got []core.Suggestion, fellBack bool) {
				assert.Nil(t, got[0].Column)
			},
		},
		{
			name: "nothing valid falls back to a single suggestion",
			suggestions: []core.Suggestion{
				{Type: core.IssueBug, Severity: core.SeverityHigh, Line: intPtr(10), Message: "gone"},
			},
			lineCount: 2,
			check: func(t *testing.T, got []core.Suggestion, fellBack bool) {
				assert.True(t, fellBack)
				require.Len(t, got, 1)
				assert.Equal(t, core.IssueStyle, got[0].Type)
				assert.Equal(t, core.SeverityLow, got[0].Severity)
				assert.Nil(t, got[0].Line)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fellBack := finalizeSuggestions(context.Background(), logger.Discard(), tt.suggestions, tt.lineCount, tt.max)
			tt.check(t, got, fellBack)
		})
	}
}
