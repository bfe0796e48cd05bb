package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictLineRegex_ReDoS(t *testing.T) {
	// A long line that almost matches the grammar but never reaches "| Fix:".
	payload := "Line 1: BUG " + strings.Repeat("a |", 20000)

	start := time.Now()
	matches := strictLineRegex.FindStringSubmatch(payload)
	duration := time.Since(start)

	if duration > 200*time.Millisecond {
		t.Errorf("Regex took too long: %v (potential ReDoS)", duration)
	}
	assert.Nil(t, matches)
}

func TestLineRefRegex_ReDoS(t *testing.T) {
	payload := "lines " + strings.Repeat("1, and ", 20000)

	start := time.Now()
	refs := lineReferences(payload)
	duration := time.Since(start)

	if duration > 200*time.Millisecond {
		t.Errorf("Regex took too long: %v (potential ReDoS)", duration)
	}
	assert.Equal(t, []int{1}, refs)
}

func TestResponseParser_HugeLineNumbers(t *testing.T) {
	parser := newTestParser()
	got := parser.Parse("Line 99999999999999999999999: BUG overflow | Fix: none", "a\nb")
	require.NotEmpty(t, got.Suggestions)
	for _, s := range got.Suggestions {
		assert.Nil(t, s.Line)
	}
}

func TestResponseParser_InjectedFenceInsideCode(t *testing.T) {
	// Code that itself contains the grammar must not be confused with model output.
	code := "// Line 1: BUG fake | Fix: fake\nx := 1"
	parser := newTestParser()
	got := parser.Parse("", code)
	assert.Equal(t, TierFallback, got.Tier)
}
