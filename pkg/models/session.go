package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxReasonLength is the longest reason the grid accepts for a status update
const MaxReasonLength = 255

// SessionStatus is the pass/fail mark stored on a remote session
type SessionStatus string

const (
	StatusPassed SessionStatus = "passed"
	StatusFailed SessionStatus = "failed"
)

// ParseSessionStatus accepts the wire values case-insensitively
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPassed:
		return StatusPassed, nil
	case StatusFailed:
		return StatusFailed, nil
	}
	return "", fmt.Errorf("invalid session status %q: must be passed or failed", s)
}

// StatusUpdate is the body of a session status write
type StatusUpdate struct {
	SessionID string        `json:"-"`
	Status    SessionStatus `json:"status"`
	Reason    string        `json:"reason"`
}

// NewStatusUpdate builds an update with the reason cut to MaxReasonLength characters
func NewStatusUpdate(sessionID string, status SessionStatus, reason string) StatusUpdate {
	return StatusUpdate{
		SessionID: sessionID,
		Status:    status,
		Reason:    TruncateReason(reason),
	}
}

// TruncateReason keeps at most MaxReasonLength runes of reason
func TruncateReason(reason string) string {
	if utf8.RuneCountInString(reason) <= MaxReasonLength {
		return reason
	}
	runes := []rune(reason)
	return string(runes[:MaxReasonLength])
}

// SessionDetails is the grid's record of a remote browser session
type SessionDetails struct {
	Name           string    `json:"name"`
	HashedID       string    `json:"hashed_id"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	BuildName      string    `json:"build_name,omitempty"`
	BuildHashedID  string    `json:"build_hashed_id,omitempty"`
	ProjectName    string    `json:"project_name,omitempty"`
	Browser        string    `json:"browser,omitempty"`
	BrowserVersion string    `json:"browser_version,omitempty"`
	OS             string    `json:"os,omitempty"`
	OSVersion      string    `json:"os_version,omitempty"`
	Device         string    `json:"device,omitempty"`
	Duration       int       `json:"duration,omitempty"`
	BrowserURL     string    `json:"browser_url,omitempty"`
	PublicURL      string    `json:"public_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionEnvelope is how the grid wraps a session record on the wire
type SessionEnvelope struct {
	AutomationSession SessionDetails `json:"automation_session"`
}
