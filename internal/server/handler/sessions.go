package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// SessionHandler creates sessions and serves their transcripts.
type SessionHandler struct {
	store  storage.Store
	ids    *id.Generator
	logger *slog.Logger
}

func NewSessionHandler(store storage.Store, ids *id.Generator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, ids: ids, logger: logger}
}

type createSessionPayload struct {
	UserID string `json:"user_id"`
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload createSessionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	if err := core.ValidateUserID(payload.UserID); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &core.Session{ID: h.ids.NextString(), UserID: payload.UserID, CreatedAt: now, LastActiveAt: now}

	if err := h.store.CreateSession(ctx, session); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	h.logger.InfoContext(ctx, "session created", "session_id", session.ID, "user_id", session.UserID)
	writeJSON(w, http.StatusCreated, session)
}

type messagesResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []core.Message `json:"messages"`
	// NextBefore is the cursor for the previous page, empty when there is none.
	NextBefore string `json:"next_before,omitempty"`
}

// Messages handles GET /sessions/{sessionID}/messages?limit=&before=&user_id=.
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"), defaultPageSize)
	if err != nil || limit < 1 {
		writeError(ctx, w, h.logger, fmt.Errorf("%w: limit must be a positive integer", core.ErrInvalidRequest))
		return
	}
	limit = min(limit, maxPageSize)

	var before int64
	if raw := query.Get("before"); raw != "" {
		before, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || before <= 0 {
			writeError(ctx, w, h.logger, fmt.Errorf("%w: before must be a message id", core.ErrInvalidRequest))
			return
		}
	}

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	if owner := query.Get("user_id"); owner != "" && owner != session.UserID {
		writeError(ctx, w, h.logger, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionOwnership))
		return
	}

	msgs, err := h.store.ListMessages(ctx, sessionID, limit, before)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	resp := messagesResponse{SessionID: sessionID, Messages: msgs}
	if resp.Messages == nil {
		resp.Messages = []core.Message{}
	}
	if len(msgs) == limit {
		resp.NextBefore = strconv.FormatInt(msgs[0].ID, 10)
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
