package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

// ReviewService runs review and chat requests against per-session agents.
type ReviewService interface {
	Review(ctx context.Context, req core.ReviewRequest) (*core.ReviewResult, error)
	Chat(ctx context.Context, req core.ChatRequest) (*core.ChatResult, error)
}

// ReviewHandler serves code review requests and stored reviews.
type ReviewHandler struct {
	service ReviewService
	store   storage.Store
	logger  *slog.Logger
}

func NewReviewHandler(service ReviewService, store storage.Store, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: service, store: store, logger: logger}
}

type reviewPayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	UserID   string `json:"user_id"`
	Context  string `json:"context"`
}

type reviewResponse struct {
	SessionID string `json:"session_id"`
	*core.ReviewResult
}

// Review handles POST /sessions/{sessionID}/review.
func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload reviewPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	req := core.ReviewRequest{
		SessionID: chi.URLParam(r, "sessionID"),
		UserID:    payload.UserID,
		Code:      payload.Code,
		Language:  payload.Language,
		Context:   payload.Context,
	}
	result, err := h.service.Review(ctx, req)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{SessionID: req.SessionID, ReviewResult: result})
}

// Get handles GET /reviews/{reviewID}.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil || reviewID <= 0 {
		writeError(ctx, w, h.logger, fmt.Errorf("%w: review id must be a positive integer", core.ErrInvalidRequest))
		return
	}

	review, err := h.store.GetReview(ctx, reviewID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
