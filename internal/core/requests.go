package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxCodeBytes       = 100_000
	MaxContextLength   = 2_000
	MaxChatMessageSize = 8_000
	maxIdentifierLen   = 128
	DefaultLanguage    = "plaintext"
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._:@-]+$`)
	languageRegex   = regexp.MustCompile(`^[a-z0-9+#._-]{1,32}$`)
)

// ReviewRequest asks the agent to review a snippet within a session.
type ReviewRequest struct {
	SessionID string
	UserID    string
	Code      string
	Language  string
	Context   string // optional focus-area hint
}

// ReviewResult is the structured outcome of a review request.
type ReviewResult struct {
	ReviewID    int64        `json:"review_id,string"`
	Suggestions []Suggestion `json:"suggestions"`
	Summary     string       `json:"summary"`
	Confidence  float64      `json:"confidence"`
	Timestamp   time.Time    `json:"timestamp"`
	Degraded    bool         `json:"degraded,omitempty"`
}

// ReviewContext is the prior review a chat turn refers to.
type ReviewContext struct {
	Language    string       `json:"language,omitempty"`
	Summary     string       `json:"summary"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// ReviewContextFrom builds a chat context from a stored review.
func ReviewContextFrom(r *Review) *ReviewContext {
	if r == nil {
		return nil
	}
	return &ReviewContext{
		Language:    r.Language,
		Summary:     r.Summary,
		Suggestions: r.Suggestions,
	}
}

// ChatRequest is a follow-up question within a session.
type ChatRequest struct {
	SessionID   string
	UserID      string
	Message     string
	PriorReview *ReviewContext // optional; the latest stored review is used when nil
}

// ChatResult carries the assistant's verbatim reply.
type ChatResult struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Degraded  bool      `json:"degraded,omitempty"`
	// Persisted is false when the user and assistant turns could not be stored.
	Persisted bool `json:"persisted"`
}

// Validate coerces the request into canonical form and rejects malformed input.
// It acts as an anti-corruption layer between loosely-typed request bodies and the agent.
func (r *ReviewRequest) Validate() error {
	if err := validateIdentifiers(r.SessionID, r.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidRequest)
	}
	if len(r.Code) > MaxCodeBytes {
		return fmt.Errorf("%w: code exceeds %d bytes", ErrInvalidRequest, MaxCodeBytes)
	}
	if !utf8.ValidString(r.Code) {
		return fmt.Errorf("%w: code must be valid UTF-8", ErrInvalidRequest)
	}

	lang, err := NormalizeLanguage(r.Language)
	if err != nil {
		return err
	}
	r.Language = lang

	r.Context = strings.TrimSpace(r.Context)
	if utf8.RuneCountInString(r.Context) > MaxContextLength {
		return fmt.Errorf("%w: context exceeds %d characters", ErrInvalidRequest, MaxContextLength)
	}
	return nil
}

// Validate coerces the request into canonical form and rejects malformed input.
func (r *ChatRequest) Validate() error {
	if err := validateIdentifiers(r.SessionID, r.UserID); err != nil {
		return err
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return fmt.Errorf("%w: message cannot be empty", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(r.Message) > MaxChatMessageSize {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidRequest, MaxChatMessageSize)
	}
	return nil
}

// NormalizeLanguage lowercases a language tag. An empty tag becomes DefaultLanguage.
func NormalizeLanguage(tag string) (string, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return DefaultLanguage, nil
	}
	if !languageRegex.MatchString(tag) {
		return "", fmt.Errorf("%w: unsupported language tag %q", ErrInvalidRequest, tag)
	}
	return tag, nil
}

func validateIdentifiers(sessionID, userID string) error {
	if err := validateIdentifier("session id", sessionID); err != nil {
		return err
	}
	return validateIdentifier("user id", userID)
}

func validateIdentifier(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidRequest, name)
	}
	if len(value) > maxIdentifierLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRequest, name, maxIdentifierLen)
	}
	if !identifierRegex.MatchString(value) {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidRequest, name)
	}
	return nil
}

// ValidateUserID checks a user id with the rules applied to every request.
func ValidateUserID(userID string) error {
	return validateIdentifier("user id", userID)
}
