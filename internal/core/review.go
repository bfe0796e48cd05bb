package core

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// Session is the unit of conversational continuity.
type Session struct {
	ID           string    `json:"session_id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActiveAt time.Time `json:"last_active_at" db:"last_active_at"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one append-only turn of a session's conversation.
type Message struct {
	ID        int64     `json:"id,string" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Code      *string   `json:"code,omitempty" db:"code"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Review represents a single analysis pass over a submitted snippet.
type Review struct {
	ID          int64        `json:"review_id,string" db:"id"`
	SessionID   string       `json:"session_id" db:"session_id"`
	Language    string       `json:"language" db:"language"`
	CodeHash    string       `json:"code_hash" db:"code_hash"`
	Summary     string       `json:"summary" db:"summary"`
	Confidence  float64      `json:"confidence" db:"confidence"`
	CreatedAt   time.Time    `json:"timestamp" db:"created_at"`
	Suggestions []Suggestion `json:"suggestions" db:"-"`
}

// Fingerprint returns the hex sha256 of a code snippet.
func Fingerprint(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// SplitLines splits code into lines, treating CRLF as LF and ignoring a single
// trailing newline. Line N of the code is element N-1.
func SplitLines(code string) []string {
	if code == "" {
		return nil
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.TrimSuffix(code, "\n")
	return strings.Split(code, "\n")
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0 || math.IsNaN(c):
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
