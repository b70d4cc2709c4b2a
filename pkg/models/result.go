package models

import (
	"fmt"
	"strings"
)

// Outcome is what the test runner observed locally for one test
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeUnknown Outcome = "unknown"
)

// TestResult pairs a remote session with its local outcome
type TestResult struct {
	SessionID string  `json:"session_id"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
}

// UnknownPolicy decides what an unknown outcome is reported as
type UnknownPolicy string

const (
	UnknownSkip   UnknownPolicy = "skip"
	UnknownPassed UnknownPolicy = "passed"
	UnknownFailed UnknownPolicy = "failed"
)

// ParseUnknownPolicy validates a configured policy; empty means skip
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UnknownSkip, nil
	case UnknownSkip, UnknownPassed, UnknownFailed:
		return p, nil
	}
	return "", fmt.Errorf("invalid unknown-outcome policy %q: must be skip, passed or failed", s)
}

// Resolve maps an outcome to the status to send. ok is false when nothing
// should be reported.
func (p UnknownPolicy) Resolve(o Outcome) (status SessionStatus, ok bool) {
	switch o {
	case OutcomePassed:
		return StatusPassed, true
	case OutcomeFailed:
		return StatusFailed, true
	}
	switch p {
	case UnknownPassed:
		return StatusPassed, true
	case UnknownFailed:
		return StatusFailed, true
	}
	return "", false
}
