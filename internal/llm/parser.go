package llm

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

const (
	TierStrict    = "strict"
	TierHeuristic = "heuristic"
	TierFallback  = "fallback"

	minBlockLength    = 20
	maxMessageLength  = 200
	noIssuesMessage   = "No specific issues detected"
	noIssuesRationale = "The review response did not contain any recognizable issues for this code."
)

var (
	// Matches: Line 12: BUG Missing nil check | Fix: check err before use
	// Tolerates list markers, bold wrapping and bracketed tags that models like to add.
	strictLineRegex = regexp.MustCompile(`(?i)^\s*(?:[-*+]\s+|\d+[.)]\s+)?(?:\*\*)?line\s+(\d+)(?:\*\*)?\s*:\s*(?:\*\*)?\[?([a-z]+)\]?(?:\*\*)?:?\s+(.+?)\s*\|\s*fix\s*:\s*(.*?)\s*$`)

	blockStartRegex = regexp.MustCompile(`^\s*(?:#{1,6}\s|[-*+]\s|\d+[.)]\s)`)
	markerRegex     = regexp.MustCompile(`^\s*(?:#{1,6}\s+|[-*+]\s+|\d+[.)]\s+)`)
	lineRefRegex    = regexp.MustCompile(`(?i)\blines?\s+(\d+(?:\s*(?:,|and|&|-|to)\s*\d+)*)`)
	numberRegex     = regexp.MustCompile(`\d+`)
	sentenceEnd     = regexp.MustCompile(`[.!?](?:\s|$)`)

	// Paired wrappers only; a lone "*" or "_" belongs to the code being discussed.
	strongStarRegex  = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	strongUnderRegex = regexp.MustCompile(`__([^_\n]+?)__`)
	inlineCodeRegex  = regexp.MustCompile("`([^`\n]*)`")
	identifierRegex  = regexp.MustCompile(`^\w+$`)

	fixLeadIns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfix\s*:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)([^.\n]*\bshould\s+[^.\n]+)`),
		regexp.MustCompile(`(?i)\b(consider\s+[^.\n]+)`),
		regexp.MustCompile(`(?i)\b((?:use|try|replace)\s+[^.\n]+)`),
	}
)

// keywordRule classifies a heuristic block. Rules are evaluated in order.
type keywordRule struct {
	typ      core.IssueType
	keywords []string
}

var keywordRules = []keywordRule{
	{core.IssueSecurity, []string{"security", "vulnerab", "injection", "xss", "csrf", "unsanitized"}},
	{core.IssueBug, []string{"bug", "error", "exception", "missing", "null pointer", "crash"}},
	{core.IssuePerformance, []string{"performance", "slow", "memory", "allocation", "complexity"}},
	{core.IssueOptimization, []string{"improve", "refactor", "simplif", "optimi"}},
}

// CodeLines is the reviewed snippet split into lines. Line N is CodeLines[N-1].
type CodeLines []string

// InRange reports whether n is a valid 1-based line number.
func (c CodeLines) InRange(n int) bool {
	return n >= 1 && n <= len(c)
}

// At returns the source text of 1-based line n, or "" when out of range.
func (c CodeLines) At(n int) string {
	if !c.InRange(n) {
		return ""
	}
	return c[n-1]
}

// ParseStrategy is one tier of the response parsing pipeline.
type ParseStrategy interface {
	Name() string
	Parse(text string, code CodeLines) []core.Suggestion
}

// ParseResult is the outcome of running the pipeline.
type ParseResult struct {
	Suggestions []core.Suggestion
	Tier        string
}

// ResponseParser turns raw model text into suggestions by trying each strategy
// in order until one yields a result.
type ResponseParser struct {
	strategies []ParseStrategy
	logger     *slog.Logger
}

// NewResponseParser returns the default strict → heuristic → fallback pipeline.
func NewResponseParser(logger *slog.Logger) *ResponseParser {
	return NewResponseParserWith(logger, StrictStrategy{}, HeuristicStrategy{}, FallbackStrategy{})
}

// NewResponseParserWith builds a pipeline from explicit strategies. A fallback
// strategy is appended when the last one is not already a FallbackStrategy.
func NewResponseParserWith(logger *slog.Logger, strategies ...ParseStrategy) *ResponseParser {
	if len(strategies) == 0 {
		strategies = []ParseStrategy{FallbackStrategy{}}
	}
	if _, ok := strategies[len(strategies)-1].(FallbackStrategy); !ok {
		strategies = append(strategies, FallbackStrategy{})
	}
	return &ResponseParser{strategies: strategies, logger: logger}
}

// Parse never returns an empty suggestion list.
func (p *ResponseParser) Parse(text, code string) ParseResult {
	text = stripMarkdownFence(text)
	lines := CodeLines(core.SplitLines(code))

	for _, s := range p.strategies {
		suggestions := s.Parse(text, lines)
		if len(suggestions) > 0 {
			p.logger.Debug("parsed review response", "tier", s.Name(), "suggestions", len(suggestions))
			return ParseResult{Suggestions: suggestions, Tier: s.Name()}
		}
		p.logger.Debug("parse tier produced no suggestions", "tier", s.Name())
	}

	// Unreachable with a trailing FallbackStrategy.
	return ParseResult{Suggestions: FallbackStrategy{}.Parse(text, lines), Tier: TierFallback}
}

// StrictStrategy accepts only lines following the review grammar.
type StrictStrategy struct{}

func (StrictStrategy) Name() string { return TierStrict }

func (StrictStrategy) Parse(text string, code CodeLines) []core.Suggestion {
	var out []core.Suggestion
	for _, raw := range strings.Split(text, "\n") {
		m := strictLineRegex.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || !code.InRange(n) {
			// A wrong anchor is worse than none; the whole item is dropped.
			continue
		}

		typ := core.ParseIssueType(m[2])
		desc := cleanMarkup(m[3])
		fix := cleanMarkup(m[4])
		line := n
		out = append(out, core.Suggestion{
			Type:        typ,
			Severity:    core.SeverityFor(typ, desc),
			Line:        &line,
			Message:     desc,
			Fix:         fix,
			Explanation: buildExplanation(desc, code.At(n), fix),
		})
	}
	return out
}

// HeuristicStrategy classifies free-form markdown blocks by keyword.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return TierHeuristic }

func (HeuristicStrategy) Parse(text string, code CodeLines) []core.Suggestion {
	var out []core.Suggestion
	for _, block := range splitBlocks(text) {
		body := cleanMarkup(markerRegex.ReplaceAllString(block, ""))
		// Short blocks and lead-ins such as "Here are the issues:" carry no finding.
		if utf8.RuneCountInString(body) < minBlockLength || strings.HasSuffix(body, ":") {
			continue
		}

		typ := classifyBlock(body)
		message := firstSentence(body)
		if message == "" {
			continue
		}
		fix := extractFix(body)
		base := core.Suggestion{
			Type:        typ,
			Severity:    core.SeverityFor(typ, body),
			Message:     message,
			Fix:         fix,
			Explanation: buildExplanation(body, "", fix),
		}

		refs := lineReferences(body)
		anchored := 0
		for _, n := range refs {
			if !code.InRange(n) {
				continue
			}
			s := base
			line := n
			s.Line = &line
			s.Explanation = buildExplanation(body, code.At(n), fix)
			out = append(out, s)
			anchored++
		}
		if anchored == 0 {
			out = append(out, base)
		}
	}
	return out
}

// FallbackStrategy always yields exactly one low-severity placeholder.
type FallbackStrategy struct{}

func (FallbackStrategy) Name() string { return TierFallback }

func (FallbackStrategy) Parse(_ string, _ CodeLines) []core.Suggestion {
	return []core.Suggestion{{
		Type:        core.IssueStyle,
		Severity:    core.SeverityFor(core.IssueStyle, ""),
		Message:     noIssuesMessage,
		Explanation: noIssuesRationale,
	}}
}

// splitBlocks groups text into blocks that start at heading or list-marker lines.
// Text before the first marker forms its own block. Fenced code is skipped.
func splitBlocks(text string) []string {
	var blocks []string
	var current strings.Builder
	inFence := false

	flush := func() {
		if b := strings.TrimSpace(current.String()); b != "" {
			blocks = append(blocks, b)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if blockStartRegex.MatchString(line) {
			flush()
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(strings.TrimSpace(line))
	}
	flush()
	return blocks
}

func classifyBlock(body string) core.IssueType {
	lower := strings.ToLower(body)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.typ
			}
		}
	}
	return core.IssueStyle
}

// firstSentence returns the first sentence of s, truncated to maxMessageLength runes.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if loc := sentenceEnd.FindStringIndex(s); loc != nil {
		s = s[:loc[0]+1]
	}
	return truncate(strings.TrimSpace(s), maxMessageLength)
}

func extractFix(body string) string {
	for _, re := range fixLeadIns {
		if m := re.FindStringSubmatch(body); m != nil {
			fix := strings.TrimSpace(m[1])
			if fix == "" {
				continue
			}
			return truncate(capitalize(fix), maxMessageLength)
		}
	}
	return ""
}

// lineReferences returns the distinct line numbers mentioned as "line N",
// "lines N, M" or "lines N-M" in order of appearance. Ranges contribute their endpoints.
func lineReferences(body string) []int {
	seen := make(map[int]struct{})
	var refs []int
	for _, m := range lineRefRegex.FindAllStringSubmatch(body, -1) {
		for _, num := range numberRegex.FindAllString(m[1], -1) {
			n, err := strconv.Atoi(num)
			if err != nil {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			refs = append(refs, n)
		}
	}
	return refs
}

// buildExplanation gives every suggestion the same self-contained shape:
// description, quoted source line and suggested fix.
func buildExplanation(desc, sourceLine, fix string) string {
	var b strings.Builder
	b.WriteString(desc)
	if src := strings.TrimSpace(sourceLine); src != "" {
		fmt.Fprintf(&b, "\n\nCode: `%s`", src)
	}
	if fix != "" {
		fmt.Fprintf(&b, "\n\nSuggested fix: %s", fix)
	}
	return b.String()
}

// cleanMarkup unwraps bold and inline code spans. Dunder names such as
// __init__ look like underscore emphasis and are kept.
func cleanMarkup(s string) string {
	s = inlineCodeRegex.ReplaceAllString(s, "$1")
	s = strongStarRegex.ReplaceAllString(s, "$1")
	s = strongUnderRegex.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[2 : len(m)-2]
		if identifierRegex.MatchString(inner) {
			return m
		}
		return inner
	})
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes-3])) + "..."
}

// stripMarkdownFence removes ```markdown ... ``` wrapping that some LLMs add around their output.
func stripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return s
	}
	inner := trimmed[idx+1:]
	lastFence := strings.LastIndex(inner, "```")
	if lastFence < 0 {
		return s
	}
	// Only unwrap when the closing fence ends the response.
	if strings.TrimSpace(inner[lastFence+3:]) != "" {
		return s
	}
	return strings.TrimSpace(inner[:lastFence])
}
