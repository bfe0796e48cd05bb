// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"errors"
)

var (
	// ErrServiceUnavailable is returned by a Completer when the completion
	// service cannot be reached or refuses the request.
	ErrServiceUnavailable = errors.New("completion service unavailable")

	// ErrStorageWrite wraps a failed persistence call.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrInvalidRequest marks a request rejected at the boundary.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSessionOwnership is returned when a session is addressed by a user that does not own it.
	ErrSessionOwnership = errors.New("session belongs to another user")
)

// CompletionMessage is one chat-style message sent to the completion service.
type CompletionMessage struct {
	Role    Role
	Content string
}

// CompletionRequest carries a prompt and its sampling policy.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float64
}

// Completer defines the contract for a text-completion service.
//
//go:generate mockgen -destination=../../mocks/mock_completer.go -package=mocks . Completer
type Completer interface {
	// Complete returns the raw model text for the request. Transport and quota
	// failures are reported as errors wrapping ErrServiceUnavailable.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
