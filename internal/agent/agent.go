// Package agent implements the per-session review agent and the dispatcher
// that routes requests to it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/llm"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

// State is the phase an agent is in while handling a request.
type State string

const (
	StateIdle               State = "idle"
	StateLoadingContext     State = "loading-context"
	StatePrompting          State = "prompting"
	StateAwaitingCompletion State = "awaiting-completion"
	StateParsing            State = "parsing"
	StatePersisting         State = "persisting"
	StateDone               State = "done"
	StateDegraded           State = "degraded"
)

const (
	confidenceStrict    = 0.85
	confidenceHeuristic = 0.6
	confidenceFallback  = 0.5
	confidenceDegraded  = 0.0

	unavailableMessage = "Review service unavailable; the code was not analyzed"

	// UnavailableReply is returned as the chat response when the completion service fails.
	UnavailableReply = "I'm sorry, the review assistant is temporarily unavailable. Please try again in a moment."
)

// Services bundles the collaborators shared by every agent.
type Services struct {
	store     storage.Store
	completer core.Completer
	prompts   *llm.PromptBuilder
	parser    *llm.ResponseParser
	ids       *id.Generator
	cfg       config.AgentConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewServices creates the shared agent dependencies.
func NewServices(
	store storage.Store,
	completer core.Completer,
	prompts *llm.PromptBuilder,
	parser *llm.ResponseParser,
	ids *id.Generator,
	cfg *config.Config,
	logger *slog.Logger,
) *Services {
	if store == nil {
		panic("store cannot be nil")
	}
	if completer == nil {
		panic("completer cannot be nil")
	}
	if prompts == nil || parser == nil {
		panic("prompt builder and parser cannot be nil")
	}
	if ids == nil {
		panic("id generator cannot be nil")
	}
	if cfg == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Services{
		store:     store,
		completer: completer,
		prompts:   prompts,
		parser:    parser,
		ids:       ids,
		cfg:       cfg.Agent,
		logger:    logger,
		now:       time.Now,
	}
}

// Agent owns the conversation of a single session. It is not safe for
// concurrent use; the Dispatcher runs at most one request per agent at a time.
type Agent struct {
	sessionID string
	svc       *Services
	state     State

	// last is the newest message timestamp of the session, used to keep
	// timestamps strictly increasing.
	last   time.Time
	seeded bool
}

func NewAgent(svc *Services, sessionID string) *Agent {
	return &Agent{sessionID: sessionID, svc: svc, state: StateIdle}
}

// SessionID returns the session this agent serves.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// State returns the phase of the most recent request.
func (a *Agent) State() State {
	return a.state
}

// Review analyzes a snippet and records the exchange as two conversation turns.
// A completion failure does not fail the review: a degraded result is returned instead.
func (a *Agent) Review(ctx context.Context, req core.ReviewRequest) (*core.ReviewResult, error) {
	if err := a.accept(&req); err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: a.sessionID, Component: "agent.review"})
	log := a.svc.logger

	a.state = StateLoadingContext
	if err := a.touch(ctx, req.UserID); err != nil {
		return nil, err
	}

	a.state = StatePrompting
	prompt, err := a.svc.prompts.BuildReview(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build review prompt: %w", err)
	}

	a.state = StateAwaitingCompletion
	raw, err := a.complete(ctx, prompt)

	var (
		suggestions []core.Suggestion
		summary     string
		confidence  float64
		degraded    bool
	)
	if err != nil {
		a.state = StateDegraded
		degraded = true
		log.WarnContext(ctx, "completion failed, returning degraded review", "error", err)
		suggestions = []core.Suggestion{unavailableSuggestion()}
		summary = degradedSummary(req.Language)
		confidence = confidenceDegraded
	} else {
		a.state = StateParsing
		parsed := a.svc.parser.Parse(raw, req.Code)
		tier := parsed.Tier
		var fellBack bool
		suggestions, fellBack = finalizeSuggestions(ctx, log, parsed.Suggestions, len(core.SplitLines(req.Code)), a.svc.cfg.MaxSuggestions)
		if fellBack {
			tier = llm.TierFallback
		}
		summary = summarize(req.Language, suggestions, tier)
		confidence = confidenceForTier(tier)
	}

	userAt := a.nextTimestamp(ctx)
	assistantAt := a.nextTimestamp(ctx)

	review := &core.Review{
		ID:          a.svc.ids.Next(),
		SessionID:   a.sessionID,
		Language:    req.Language,
		CodeHash:    core.Fingerprint(req.Code),
		Summary:     summary,
		Confidence:  core.ClampConfidence(confidence),
		CreatedAt:   assistantAt,
		Suggestions: suggestions,
	}
	for i := range review.Suggestions {
		review.Suggestions[i].ID = a.svc.ids.Next()
		review.Suggestions[i].ReviewID = review.ID
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReviewID: review.ID})

	a.state = StatePersisting
	code := req.Code
	turns := []*core.Message{
		{
			ID:        a.svc.ids.Next(),
			SessionID: a.sessionID,
			Role:      core.RoleUser,
			Content:   reviewRequestText(req),
			Code:      &code,
			CreatedAt: userAt,
		},
		{
			ID:        a.svc.ids.Next(),
			SessionID: a.sessionID,
			Role:      core.RoleAssistant,
			Content:   reviewReplyText(review),
			CreatedAt: assistantAt,
		},
	}
	a.persistReview(ctx, review, turns)

	if degraded {
		a.state = StateDegraded
	} else {
		a.state = StateDone
	}
	log.InfoContext(ctx, "review finished",
		"language", review.Language,
		"suggestions", len(review.Suggestions),
		"confidence", review.Confidence,
		"degraded", degraded)

	return &core.ReviewResult{
		ReviewID:    review.ID,
		Suggestions: review.Suggestions,
		Summary:     review.Summary,
		Confidence:  review.Confidence,
		Timestamp:   review.CreatedAt,
		Degraded:    degraded,
	}, nil
}

// Chat answers a follow-up question using the session history and the prior review.
func (a *Agent) Chat(ctx context.Context, req core.ChatRequest) (*core.ChatResult, error) {
	if err := a.accept(&req); err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: a.sessionID, Component: "agent.chat"})
	log := a.svc.logger

	a.state = StateLoadingContext
	if err := a.touch(ctx, req.UserID); err != nil {
		return nil, err
	}
	history := a.loadHistory(ctx)
	prior := req.PriorReview
	if prior == nil {
		prior = a.latestReview(ctx)
	}

	a.state = StatePrompting
	prompt, err := a.svc.prompts.BuildChat(req.Message, prior, history)
	if err != nil {
		return nil, fmt.Errorf("failed to build chat prompt: %w", err)
	}

	a.state = StateAwaitingCompletion
	reply, err := a.complete(ctx, prompt)
	degraded := false
	if err != nil {
		a.state = StateDegraded
		degraded = true
		log.WarnContext(ctx, "completion failed, returning unavailable reply", "error", err)
		reply = UnavailableReply
	}

	userAt := a.nextTimestamp(ctx)
	assistantAt := a.nextTimestamp(ctx)

	if !degraded {
		a.state = StatePersisting
	}
	persisted := a.appendTurns(ctx, []*core.Message{
		{ID: a.svc.ids.Next(), SessionID: a.sessionID, Role: core.RoleUser, Content: req.Message, CreatedAt: userAt},
		{ID: a.svc.ids.Next(), SessionID: a.sessionID, Role: core.RoleAssistant, Content: reply, CreatedAt: assistantAt},
	})

	if !degraded {
		a.state = StateDone
	}
	log.InfoContext(ctx, "chat turn finished", "history", len(history), "degraded", degraded, "persisted", persisted)

	return &core.ChatResult{
		Response:  reply,
		Timestamp: assistantAt,
		Degraded:  degraded,
		Persisted: persisted,
	}, nil
}

type sessionRequest interface {
	Validate() error
}

// accept validates a request and checks it addresses this agent's session.
func (a *Agent) accept(req sessionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	var sessionID string
	switch r := req.(type) {
	case *core.ReviewRequest:
		sessionID = r.SessionID
	case *core.ChatRequest:
		sessionID = r.SessionID
	}
	if sessionID != a.sessionID {
		return fmt.Errorf("%w: request for session %q sent to agent of session %q", core.ErrInvalidRequest, sessionID, a.sessionID)
	}
	return nil
}

// touch creates the session on first use and bumps its last-active time.
// Only an ownership conflict fails the request.
func (a *Agent) touch(ctx context.Context, userID string) error {
	sctx, cancel := a.storageContext(ctx)
	defer cancel()

	_, err := a.svc.store.TouchSession(sctx, a.sessionID, userID, a.svc.now().UTC())
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrSessionOwnership) {
		return err
	}
	a.svc.logger.ErrorContext(ctx, "failed to touch session", "error", err)
	return nil
}

func (a *Agent) loadHistory(ctx context.Context) []core.Message {
	sctx, cancel := a.storageContext(ctx)
	defer cancel()

	history, err := a.svc.store.LoadRecentMessages(sctx, a.sessionID, a.svc.prompts.HistoryWindow())
	if err != nil {
		a.svc.logger.ErrorContext(ctx, "failed to load conversation history", "error", err)
		return nil
	}
	a.observe(history)
	return history
}

func (a *Agent) latestReview(ctx context.Context) *core.ReviewContext {
	sctx, cancel := a.storageContext(ctx)
	defer cancel()

	review, err := a.svc.store.GetLatestReview(sctx, a.sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.svc.logger.ErrorContext(ctx, "failed to load latest review", "error", err)
		}
		return nil
	}
	return core.ReviewContextFrom(review)
}

func (a *Agent) complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if t := a.svc.cfg.CompletionTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return a.svc.completer.Complete(ctx, req)
}

// persistReview stores the review and the two turns that describe it. Failures
// are logged and swallowed.
func (a *Agent) persistReview(ctx context.Context, review *core.Review, turns []*core.Message) {
	sctx, cancel := a.storageContext(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.svc.store.SaveReview(sctx, review); err != nil {
		a.svc.logger.ErrorContext(ctx, "failed to save review", "error", err)
	}
	a.appendTurns(ctx, turns)
}

// appendTurns writes the turns in one transaction and reports whether they were stored.
func (a *Agent) appendTurns(ctx context.Context, turns []*core.Message) bool {
	sctx, cancel := a.storageContext(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.svc.store.AppendMessages(sctx, turns); err != nil {
		a.svc.logger.ErrorContext(ctx, "failed to append conversation turns", "error", err)
		return false
	}
	return true
}

func (a *Agent) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := a.svc.cfg.StorageTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// nextTimestamp returns a UTC timestamp strictly after every message already
// recorded for the session. The database keeps microsecond precision.
func (a *Agent) nextTimestamp(ctx context.Context) time.Time {
	if !a.seeded {
		sctx, cancel := a.storageContext(ctx)
		recent, err := a.svc.store.LoadRecentMessages(sctx, a.sessionID, 1)
		cancel()
		if err != nil {
			a.svc.logger.WarnContext(ctx, "failed to load last message timestamp", "error", err)
		} else {
			a.observe(recent)
		}
		a.seeded = true
	}

	ts := a.svc.now().UTC().Truncate(time.Microsecond)
	if !ts.After(a.last) {
		ts = a.last.Add(time.Microsecond)
	}
	a.last = ts
	return ts
}

func (a *Agent) observe(msgs []core.Message) {
	for _, m := range msgs {
		if m.CreatedAt.After(a.last) {
			a.last = m.CreatedAt
		}
	}
	a.seeded = true
}

func confidenceForTier(tier string) float64 {
	switch tier {
	case llm.TierStrict:
		return confidenceStrict
	case llm.TierHeuristic:
		return confidenceHeuristic
	default:
		return confidenceFallback
	}
}

var severityOrder = []core.Severity{core.SeverityCritical, core.SeverityHigh, core.SeverityMedium, core.SeverityLow}

func summarize(language string, suggestions []core.Suggestion, tier string) string {
	if tier == llm.TierFallback {
		return fmt.Sprintf("No specific issues detected in the %s code.", language)
	}

	counts := make(map[core.Severity]int, len(severityOrder))
	for _, s := range suggestions {
		counts[s.Severity]++
	}
	var parts []string
	for _, sev := range severityOrder {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}

	noun := "issues"
	if len(suggestions) == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("Found %d %s in the %s code: %s.", len(suggestions), noun, language, strings.Join(parts, ", "))
}

// unavailableSuggestion stands in for a review that never ran. It must not
// read as a clean result in later chat context.
func unavailableSuggestion() core.Suggestion {
	return core.Suggestion{
		Type:        core.IssueStyle,
		Severity:    core.SeverityFor(core.IssueStyle, ""),
		Message:     unavailableMessage,
		Explanation: "The completion service could not be reached, so the code was not analyzed. Submit the review again to get real findings.",
	}
}

func degradedSummary(language string) string {
	return fmt.Sprintf("The review service is currently unavailable, so the %s code could not be analyzed. Please try again later.", language)
}

func reviewRequestText(req core.ReviewRequest) string {
	text := fmt.Sprintf("Please review this %s code.", req.Language)
	if req.Context != "" {
		text += " Focus on: " + req.Context
	}
	return text
}

func reviewReplyText(review *core.Review) string {
	var b strings.Builder
	b.WriteString(review.Summary)
	for _, s := range review.Suggestions {
		b.WriteString("\n- ")
		b.WriteString(llm.DescribeSuggestion(s))
	}
	return b.String()
}
