package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shehryarbajwa/gridstatus/internal/grid"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

var errBoom = errors.New("connection reset by peer")

var testCreds = models.Credentials{Username: "alice", AccessKey: "secret"}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// fakeGrid answers calls from scripted error sequences. Once a script runs
// out, the last entry repeats; an empty script means success.
type fakeGrid struct {
	clock      *fakeClock
	getErrs    []error
	setErrs    []error
	getCalls   []time.Time
	setCalls   []models.StatusUpdate
	buildCalls int
}

func (g *fakeGrid) GetSession(_ context.Context, sessionID string) (*models.SessionDetails, error) {
	g.getCalls = append(g.getCalls, g.clock.Now())
	if err := pick(g.getErrs, len(g.getCalls)); err != nil {
		return nil, err
	}
	return &models.SessionDetails{HashedID: sessionID, Status: "running"}, nil
}

func (g *fakeGrid) SetSessionStatus(_ context.Context, update models.StatusUpdate) error {
	g.setCalls = append(g.setCalls, update)
	return pick(g.setErrs, len(g.setCalls))
}

func (g *fakeGrid) ListBuildSessions(_ context.Context, buildID string) ([]models.SessionDetails, error) {
	g.buildCalls++
	if buildID == "missing" {
		return nil, fmt.Errorf("GET /builds/missing/sessions.json: %w", grid.ErrSessionNotFound)
	}
	return []models.SessionDetails{{HashedID: "s1"}, {HashedID: "s2"}}, nil
}

func (g *fakeGrid) calls() int {
	return len(g.getCalls) + len(g.setCalls) + g.buildCalls
}

func pick(script []error, call int) error {
	if len(script) == 0 {
		return nil
	}
	if call > len(script) {
		return script[len(script)-1]
	}
	return script[call-1]
}

func notFound() error {
	return fmt.Errorf("GET /sessions/x.json: %w", grid.ErrSessionNotFound)
}

func serverError() error {
	return &grid.StatusError{Method: "PUT", Path: "/sessions/x.json", StatusCode: 500}
}
