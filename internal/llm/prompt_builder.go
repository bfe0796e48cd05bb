package llm

import (
	"fmt"
	"strings"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

// PromptBuilder turns review and chat requests into completion requests.
// It is stateless apart from its configuration and safe for concurrent use.
type PromptBuilder struct {
	prompts  *PromptManager
	provider ModelProvider
	profile  *core.ReviewProfile
	agent    config.AgentConfig
}

func NewPromptBuilder(prompts *PromptManager, cfg *config.Config, profile *core.ReviewProfile) *PromptBuilder {
	if profile == nil {
		profile = core.DefaultReviewProfile()
	}
	return &PromptBuilder{
		prompts:  prompts,
		provider: ModelProvider(cfg.AI.Provider),
		profile:  profile,
		agent:    cfg.Agent,
	}
}

// HistoryWindow is the number of prior turns included in chat prompts.
func (b *PromptBuilder) HistoryWindow() int {
	return b.agent.HistoryWindow
}

type reviewSystemData struct {
	Language  string
	LineCount int
	IssueTags []string
}

type reviewUserData struct {
	Language     string
	Code         string
	Focus        string
	Instructions []string
}

// BuildReview renders the review prompt. req must already be validated.
func (b *PromptBuilder) BuildReview(req core.ReviewRequest) (core.CompletionRequest, error) {
	system, err := b.prompts.Render(ReviewSystemPrompt, b.provider, reviewSystemData{
		Language:  req.Language,
		LineCount: len(core.SplitLines(req.Code)),
		IssueTags: issueTags(),
	})
	if err != nil {
		return core.CompletionRequest{}, err
	}

	focus := req.Context
	if focus == "" && len(b.profile.FocusAreas) > 0 {
		focus = strings.Join(b.profile.FocusAreas, ", ")
	}
	user, err := b.prompts.Render(ReviewUserPrompt, b.provider, reviewUserData{
		Language:     req.Language,
		Code:         strings.TrimRight(req.Code, "\n"),
		Focus:        focus,
		Instructions: b.profile.CustomInstructions,
	})
	if err != nil {
		return core.CompletionRequest{}, err
	}

	return core.CompletionRequest{
		Messages: []core.CompletionMessage{
			{Role: core.RoleSystem, Content: system},
			{Role: core.RoleUser, Content: user},
		},
		MaxTokens:   b.agent.ReviewMaxTokens,
		Temperature: b.agent.ReviewTemperature,
	}, nil
}

type chatSystemData struct {
	Review *core.ReviewContext
	Issues []string
}

// BuildChat renders the chat prompt: system instructions with the prior review,
// the most recent HistoryWindow turns of history (oldest first) and the new message.
func (b *PromptBuilder) BuildChat(message string, prior *core.ReviewContext, history []core.Message) (core.CompletionRequest, error) {
	data := chatSystemData{Review: prior}
	if prior != nil {
		for _, s := range prior.Suggestions {
			data.Issues = append(data.Issues, DescribeSuggestion(s))
		}
	}
	system, err := b.prompts.Render(ChatSystemPrompt, b.provider, data)
	if err != nil {
		return core.CompletionRequest{}, err
	}

	if n := b.agent.HistoryWindow; len(history) > n {
		history = history[len(history)-n:]
	}

	messages := make([]core.CompletionMessage, 0, len(history)+2)
	messages = append(messages, core.CompletionMessage{Role: core.RoleSystem, Content: system})
	for _, m := range history {
		if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
			continue
		}
		content := m.Content
		if m.Code != nil && *m.Code != "" {
			content += "\n\n```\n" + strings.TrimRight(*m.Code, "\n") + "\n```"
		}
		messages = append(messages, core.CompletionMessage{Role: m.Role, Content: content})
	}
	messages = append(messages, core.CompletionMessage{Role: core.RoleUser, Content: message})

	return core.CompletionRequest{
		Messages:    messages,
		MaxTokens:   b.agent.ChatMaxTokens,
		Temperature: b.agent.ChatTemperature,
	}, nil
}

func issueTags() []string {
	tags := make([]string, len(core.IssueTypes))
	for i, t := range core.IssueTypes {
		tags[i] = strings.ToUpper(string(t))
	}
	return tags
}

// DescribeSuggestion renders a suggestion as one line of review context.
func DescribeSuggestion(s core.Suggestion) string {
	var b strings.Builder
	if s.HasLine() {
		fmt.Fprintf(&b, "Line %d ", *s.Line)
	}
	fmt.Fprintf(&b, "[%s/%s] %s", s.Type, s.Severity, s.Message)
	if s.Fix != "" {
		fmt.Fprintf(&b, " (fix: %s)", s.Fix)
	}
	return b.String()
}
