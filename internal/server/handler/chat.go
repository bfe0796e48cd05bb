package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

const maxContextSuggestions = 50

// ChatHandler serves follow-up questions about a review.
type ChatHandler struct {
	service ReviewService
	logger  *slog.Logger
}

func NewChatHandler(service ReviewService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

type chatPayload struct {
	Message       string              `json:"message"`
	UserID        string              `json:"user_id"`
	ReviewContext *core.ReviewContext `json:"review_context"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	*core.ChatResult
}

// Chat handles POST /sessions/{sessionID}/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload chatPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	req := core.ChatRequest{
		SessionID:   chi.URLParam(r, "sessionID"),
		UserID:      payload.UserID,
		Message:     payload.Message,
		PriorReview: sanitizeReviewContext(payload.ReviewContext),
	}
	result, err := h.service.Chat(ctx, req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, ChatResult: result})
}

// sanitizeReviewContext coerces a client-supplied review into known types and
// severities. Suggestions beyond maxContextSuggestions are dropped.
func sanitizeReviewContext(rc *core.ReviewContext) *core.ReviewContext {
	if rc == nil {
		return nil
	}
	out := &core.ReviewContext{Summary: rc.Summary}
	if lang, err := core.NormalizeLanguage(rc.Language); err == nil && rc.Language != "" {
		out.Language = lang
	}

	for i, s := range rc.Suggestions {
		if i == maxContextSuggestions {
			break
		}
		typ := core.ParseIssueType(string(s.Type))
		sev := s.Severity
		switch sev {
		case core.SeverityLow, core.SeverityMedium, core.SeverityHigh, core.SeverityCritical:
		default:
			sev = core.SeverityFor(typ, s.Message)
		}
		if s.HasLine() && *s.Line < 1 {
			s.Line = nil
		}
		out.Suggestions = append(out.Suggestions, core.Suggestion{
			Type:        typ,
			Severity:    sev,
			Line:        s.Line,
			Message:     s.Message,
			Fix:         s.Fix,
			Explanation: s.Explanation,
		})
	}
	if out.Summary == "" && len(out.Suggestions) == 0 {
		return nil
	}
	return out
}
