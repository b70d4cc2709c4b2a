package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/gridstatus/internal/grid"
	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultLongBackoff  = 5 * time.Second
	DefaultShortBackoff = 2 * time.Second
	DefaultMaxWait      = 30 * time.Second
	DefaultRetryCount   = 3
)

// Grid is the subset of the grid REST API the reporter needs
type Grid interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionDetails, error)
	SetSessionStatus(ctx context.Context, update models.StatusUpdate) error
	ListBuildSessions(ctx context.Context, buildID string) ([]models.SessionDetails, error)
}

// SessionStatusReporter marks remote sessions passed or failed.
// It never returns errors to the caller: failures come back as a Result and a log line.
type SessionStatusReporter struct {
	grid         Grid
	creds        models.Credentials
	clock        Clock
	logger       zerolog.Logger
	metrics      *observability.ReporterMetrics
	pollInterval time.Duration
	longBackoff  time.Duration
	shortBackoff time.Duration
	maxWait      time.Duration
}

// Option customises a SessionStatusReporter
type Option func(*SessionStatusReporter)

// WithClock replaces the real clock, mostly for tests
func WithClock(c Clock) Option {
	return func(r *SessionStatusReporter) { r.clock = c }
}

// WithLogger sets the logger used for every attempt and poll
func WithLogger(l zerolog.Logger) Option {
	return func(r *SessionStatusReporter) { r.logger = l }
}

// WithMetrics sets the counters updated by the reporter; nil disables them
func WithMetrics(m *observability.ReporterMetrics) Option {
	return func(r *SessionStatusReporter) { r.metrics = m }
}

// WithPollInterval sets the gap between visibility polls
func WithPollInterval(d time.Duration) Option {
	return func(r *SessionStatusReporter) { r.pollInterval = d }
}

// WithBackoff sets the delays after a not-found write and after any other failed write
func WithBackoff(notFound, other time.Duration) Option {
	return func(r *SessionStatusReporter) {
		r.longBackoff = notFound
		r.shortBackoff = other
	}
}

// WithMaxWait sets how long UpdateSessionStatus waits for the session to appear
func WithMaxWait(d time.Duration) Option {
	return func(r *SessionStatusReporter) { r.maxWait = d }
}

// New creates a reporter. creds are only checked for presence; the grid
// client does the actual authentication.
func New(g Grid, creds models.Credentials, opts ...Option) *SessionStatusReporter {
	r := &SessionStatusReporter{
		grid:         g,
		creds:        creds,
		clock:        RealClock{},
		logger:       zerolog.Nop(),
		pollInterval: DefaultPollInterval,
		longBackoff:  DefaultLongBackoff,
		shortBackoff: DefaultShortBackoff,
		maxWait:      DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetSessionDetails does one best-effort read. It returns nil on any failure.
func (r *SessionStatusReporter) GetSessionDetails(ctx context.Context, sessionID string) *models.SessionDetails {
	logger := observability.WithSession(r.logger, sessionID)

	details, err := r.grid.GetSession(ctx, sessionID)
	if err != nil {
		if grid.IsNotFound(err) {
			logger.Debug().Msg("session not visible yet")
		} else {
			logger.Warn().Err(err).Msg("failed to get session details")
		}
		return nil
	}
	return details
}

// ListBuildSessions does one best-effort read of a build's sessions. It returns nil on failure.
func (r *SessionStatusReporter) ListBuildSessions(ctx context.Context, buildID string) []models.SessionDetails {
	sessions, err := r.grid.ListBuildSessions(ctx, buildID)
	if err != nil {
		logger := observability.WithBuild(r.logger, buildID)
		logger.Warn().Err(err).Msg("failed to list build sessions")
		return nil
	}
	return sessions
}

// WaitForSession polls until the grid can see the session or maxWait elapses.
// The grid registers sessions asynchronously, so a fresh id may 404 for a while.
func (r *SessionStatusReporter) WaitForSession(ctx context.Context, sessionID string, maxWait time.Duration) bool {
	logger := observability.WithSession(r.logger, sessionID)
	start := r.clock.Now()

	for polls := 1; ; polls++ {
		if r.GetSessionDetails(ctx, sessionID) != nil {
			r.metrics.IncPoll("visible")
			logger.Debug().Int("polls", polls).Msg("session visible")
			return true
		}
		r.metrics.IncPoll("missing")

		remaining := maxWait - r.clock.Now().Sub(start)
		if remaining <= 0 || ctx.Err() != nil {
			logger.Warn().Int("polls", polls).Dur("max_wait", maxWait).Msg("session never became visible")
			return false
		}
		r.clock.Sleep(ctx, min(r.pollInterval, remaining))
	}
}

// UpdateSessionStatus marks the session passed or failed, waiting for it to
// become visible first and retrying the write up to retryCount times.
func (r *SessionStatusReporter) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus, reason string, retryCount int) Result {
	result := r.updateSessionStatus(ctx, sessionID, status, reason, retryCount)
	r.metrics.IncUpdate(string(result.Outcome))
	return result
}

func (r *SessionStatusReporter) updateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus, reason string, retryCount int) Result {
	logger := observability.WithSession(r.logger, sessionID)
	result := Result{SessionID: sessionID}

	if sessionID == "" {
		logger.Error().Msg("session id is required")
		result.Outcome = OutcomeInvalidSession
		return result
	}
	if !r.creds.Configured() {
		logger.Error().Msg("grid credentials not configured, skipping status update")
		result.Outcome = OutcomeMissingCredentials
		result.Err = grid.ErrMissingCredentials
		return result
	}
	if retryCount <= 0 {
		retryCount = DefaultRetryCount
	}

	if !r.WaitForSession(ctx, sessionID, r.maxWait) {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("status update cancelled while waiting for session")
			result.Outcome = OutcomeCancelled
			result.Err = err
			return result
		}
		result.Outcome = OutcomeNeverVisible
		result.Err = grid.ErrSessionNotFound
		return result
	}

	update := models.NewStatusUpdate(sessionID, status, reason)
	for attempt := 1; attempt <= retryCount; attempt++ {
		result.Attempts = attempt

		err := r.grid.SetSessionStatus(ctx, update)
		if err == nil {
			r.metrics.IncAttempt("ok")
			logger.Info().Str("status", string(status)).Int("attempt", attempt).Msg("session status updated")
			result.Outcome = OutcomeSucceeded
			result.Err = nil
			return result
		}
		result.Err = err

		backoff := r.shortBackoff
		if grid.IsNotFound(err) {
			backoff = r.longBackoff
			r.metrics.IncAttempt("not_found")
		} else {
			r.metrics.IncAttempt("error")
		}

		logger.Warn().Err(err).Int("attempt", attempt).Int("of", retryCount).Msg("status update failed")

		if attempt == retryCount {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn().Err(ctxErr).Int("attempts", attempt).Msg("status update cancelled")
			result.Outcome = OutcomeCancelled
			result.Err = fmt.Errorf("%w after %d of %d attempts: %v", ctxErr, attempt, retryCount, err)
			return result
		}
		r.clock.Sleep(ctx, backoff)
	}

	logger.Error().Err(result.Err).Int("attempts", result.Attempts).Msg("giving up on status update")
	result.Outcome = OutcomeExhausted
	return result
}
