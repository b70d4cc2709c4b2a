package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateReason(t *testing.T) {
	assert.Equal(t, "short", TruncateReason("short"))

	exact := strings.Repeat("a", MaxReasonLength)
	assert.Equal(t, exact, TruncateReason(exact))

	long := strings.Repeat("b", 300)
	assert.Len(t, TruncateReason(long), MaxReasonLength)
}

func TestTruncateReasonKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := TruncateReason(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxReasonLength, utf8.RuneCountInString(got))
}

func TestNewStatusUpdate(t *testing.T) {
	u := NewStatusUpdate("abc", StatusFailed, strings.Repeat("z", 400))
	assert.Equal(t, "abc", u.SessionID)
	assert.Equal(t, StatusFailed, u.Status)
	assert.Len(t, u.Reason, MaxReasonLength)
}

func TestParseSessionStatus(t *testing.T) {
	s, err := ParseSessionStatus(" Passed ")
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, s)

	s, err = ParseSessionStatus("FAILED")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, s)

	_, err = ParseSessionStatus("skipped")
	assert.Error(t, err)
}

func TestCredentialsConfigured(t *testing.T) {
	assert.True(t, Credentials{Username: "u", AccessKey: "k"}.Configured())
	assert.False(t, Credentials{Username: "u"}.Configured())
	assert.False(t, Credentials{AccessKey: "k"}.Configured())
	assert.False(t, Credentials{}.Configured())
}

func TestUnknownPolicyResolve(t *testing.T) {
	tests := []struct {
		policy  UnknownPolicy
		outcome Outcome
		want    SessionStatus
		ok      bool
	}{
		{UnknownSkip, OutcomePassed, StatusPassed, true},
		{UnknownSkip, OutcomeFailed, StatusFailed, true},
		{UnknownSkip, OutcomeUnknown, "", false},
		{UnknownPassed, OutcomeUnknown, StatusPassed, true},
		{UnknownFailed, OutcomeUnknown, StatusFailed, true},
		{UnknownFailed, OutcomePassed, StatusPassed, true},
		{UnknownSkip, "", "", false},
	}

	for _, tt := range tests {
		got, ok := tt.policy.Resolve(tt.outcome)
		assert.Equal(t, tt.want, got, "%s/%s", tt.policy, tt.outcome)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.policy, tt.outcome)
	}
}

func TestParseUnknownPolicy(t *testing.T) {
	p, err := ParseUnknownPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnknownSkip, p)

	p, err = ParseUnknownPolicy("FAILED")
	require.NoError(t, err)
	assert.Equal(t, UnknownFailed, p)

	_, err = ParseUnknownPolicy("optimistic")
	assert.Error(t, err)
}
