package core

import (
	"regexp"
	"strings"
)

// IssueType is the category of a review suggestion.
type IssueType string

const (
	IssueSecurity     IssueType = "security"
	IssuePerformance  IssueType = "performance"
	IssueStyle        IssueType = "style"
	IssueBug          IssueType = "bug"
	IssueOptimization IssueType = "optimization"
)

// Severity ranks how urgently a suggestion should be addressed.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IssueTypes lists every supported issue type in prompt order.
var IssueTypes = []IssueType{IssueSecurity, IssuePerformance, IssueStyle, IssueBug, IssueOptimization}

var escalationRegex = regexp.MustCompile(`(?i)\b(critical|severe)\b`)

// ParseIssueType maps a model-provided tag onto a known type. Unknown tags become IssueStyle.
func ParseIssueType(tag string) IssueType {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(tag), "[]*_`:")) {
	case "security", "sec", "vulnerability":
		return IssueSecurity
	case "performance", "perf":
		return IssuePerformance
	case "bug", "error", "bugs":
		return IssueBug
	case "optimization", "optimisation", "optimize", "refactor":
		return IssueOptimization
	default:
		return IssueStyle
	}
}

// IsEscalated reports whether text carries an explicit severity escalation keyword.
func IsEscalated(text string) bool {
	return escalationRegex.MatchString(text)
}

// SeverityFor derives the severity of a suggestion from its type and the text that
// describes it. It is the only place severities are assigned.
func SeverityFor(t IssueType, text string) Severity {
	switch t {
	case IssueSecurity, IssueBug:
		if IsEscalated(text) {
			return SeverityCritical
		}
		return SeverityHigh
	case IssuePerformance, IssueOptimization:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Suggestion is a single typed, severity-tagged issue extracted from model output.
type Suggestion struct {
	ID          int64     `json:"id,string,omitempty" db:"id"`
	ReviewID    int64     `json:"review_id,string,omitempty" db:"review_id"`
	Type        IssueType `json:"type" db:"type"`
	Severity    Severity  `json:"severity" db:"severity"`
	Line        *int      `json:"line,omitempty" db:"line_number"`   // 1-based, within the reviewed code
	Column      *int      `json:"column,omitempty" db:"column_number"` // 1-based, optional
	Message     string    `json:"message" db:"message"`
	Fix         string    `json:"suggested_fix,omitempty" db:"fix"`
	Explanation string    `json:"explanation" db:"explanation"`
}

// HasLine reports whether the suggestion is anchored to a line.
func (s Suggestion) HasLine() bool {
	return s.Line != nil
}
