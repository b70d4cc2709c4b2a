package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrClosed        = errors.New("session already closed")
	ErrLimitReached  = errors.New("parallel session limit reached")
	ErrInvalidStatus = errors.New("status must be passed or failed")
)

// Remote session states as the grid reports them
const (
	StateRunning = "running"
	StateDone    = "done"
	StateTimeout = "timeout"
)

// Options tune the simulated grid
type Options struct {
	// RegistrationDelay hides new sessions from reads and writes for this long
	RegistrationDelay time.Duration
	// IdleTimeout closes sessions left open this long; zero disables it
	IdleTimeout time.Duration
	// ParallelLimit caps open sessions per account; zero means 10
	ParallelLimit int64
	// Now overrides the clock
	Now    func() time.Time
	Logger *zerolog.Logger
}

type record struct {
	owner     string
	details   models.SessionDetails
	visibleAt time.Time
	closed    bool
}

// Manager keeps the simulated grid's sessions and builds in memory
type Manager struct {
	sessions    sync.Map // map[sessionID]*record
	builds      sync.Map // map[owner/buildName]*models.Build
	concurrency map[string]*semaphore.Weighted
	mu          sync.RWMutex
	opts        Options
}

// NewManager creates a new session manager
func NewManager(opts Options) *Manager {
	if opts.ParallelLimit <= 0 {
		opts.ParallelLimit = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Manager{
		concurrency: make(map[string]*semaphore.Weighted),
		opts:        opts,
	}
}

func newHashedID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateSession opens a session for owner. It becomes visible after the registration delay.
func (m *Manager) CreateSession(owner string, req models.CreateSessionRequest) (*models.SessionDetails, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := m.acquireSlot(owner); err != nil {
		return nil, err
	}

	now := m.opts.Now()
	build := m.buildFor(owner, req)

	rec := &record{
		owner:     owner,
		visibleAt: now.Add(m.opts.RegistrationDelay),
		details: models.SessionDetails{
			Name:          req.Name,
			HashedID:      newHashedID(),
			Status:        StateRunning,
			BuildName:     build.Name,
			BuildHashedID: build.ID,
			ProjectName:   req.ProjectName,
			Browser:       req.Browser,
			OS:            req.OS,
			OSVersion:     req.OSVersion,
			Device:        req.Device,
			CreatedAt:     now,
		},
	}
	rec.details.BrowserURL = "https://automate.browserstack.com/builds/" + build.ID + "/sessions/" + rec.details.HashedID

	m.sessions.Store(rec.details.HashedID, rec)
	m.opts.Logger.Debug().Str("session_id", rec.details.HashedID).Str("owner", owner).Msg("session created")

	if m.opts.IdleTimeout > 0 {
		id := rec.details.HashedID
		time.AfterFunc(m.opts.IdleTimeout, func() { m.handleTimeout(id) })
	}

	details := rec.details
	return &details, nil
}

func (m *Manager) buildFor(owner string, req models.CreateSessionRequest) *models.Build {
	name := req.BuildName
	if name == "" {
		name = "Untitled Build"
	}
	candidate := &models.Build{
		ID:          newHashedID(),
		Name:        name,
		ProjectName: req.ProjectName,
		CreatedAt:   m.opts.Now(),
	}
	actual, _ := m.builds.LoadOrStore(owner+"/"+name, candidate)
	return actual.(*models.Build)
}

// lookup returns the record if owner can see it right now
func (m *Manager) lookup(owner, id string) (*record, error) {
	value, ok := m.sessions.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	rec := value.(*record)
	if rec.owner != owner || m.opts.Now().Before(rec.visibleAt) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// GetSession returns a copy of a visible session
func (m *Manager) GetSession(owner, id string) (*models.SessionDetails, error) {
	rec, err := m.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	details := rec.details
	if !rec.closed {
		details.Duration = int(m.opts.Now().Sub(rec.details.CreatedAt).Seconds())
	}
	return &details, nil
}

// SetStatus marks a running session passed or failed
func (m *Manager) SetStatus(owner string, update models.StatusUpdate) (*models.SessionDetails, error) {
	if _, err := models.ParseSessionStatus(string(update.Status)); err != nil {
		return nil, ErrInvalidStatus
	}

	rec, err := m.lookup(owner, update.SessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.closed {
		return nil, ErrClosed
	}
	rec.details.Status = string(update.Status)
	rec.details.Reason = models.TruncateReason(update.Reason)

	details := rec.details
	return &details, nil
}

// CloseSession ends a session; later status writes are rejected
func (m *Manager) CloseSession(owner, id string) error {
	rec, err := m.lookup(owner, id)
	if err != nil {
		return err
	}
	if !m.close(rec, StateDone) {
		return ErrClosed
	}
	return nil
}

// close finalises rec. It returns false if rec was already closed.
func (m *Manager) close(rec *record, state string) bool {
	m.mu.Lock()
	if rec.closed {
		m.mu.Unlock()
		return false
	}
	rec.closed = true
	rec.details.Duration = int(m.opts.Now().Sub(rec.details.CreatedAt).Seconds())
	if rec.details.Status == StateRunning {
		rec.details.Status = state
	}
	m.mu.Unlock()

	m.releaseSlot(rec.owner)
	return true
}

// ListBuildSessions returns visible sessions of a build, oldest first
func (m *Manager) ListBuildSessions(owner, buildID string) ([]models.SessionDetails, error) {
	found := false
	m.builds.Range(func(_, value interface{}) bool {
		if value.(*models.Build).ID == buildID {
			found = true
			return false
		}
		return true
	})
	if !found {
		return nil, fmt.Errorf("build %s: %w", buildID, ErrNotFound)
	}

	now := m.opts.Now()
	var sessions []models.SessionDetails

	m.mu.RLock()
	m.sessions.Range(func(_, value interface{}) bool {
		rec := value.(*record)
		if rec.owner == owner && rec.details.BuildHashedID == buildID && !now.Before(rec.visibleAt) {
			sessions = append(sessions, rec.details)
		}
		return true
	})
	m.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b models.SessionDetails) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return sessions, nil
}

// acquireSlot tries to acquire a parallel session slot for the account
func (m *Manager) acquireSlot(owner string) error {
	m.mu.Lock()
	sem, exists := m.concurrency[owner]
	if !exists {
		sem = semaphore.NewWeighted(m.opts.ParallelLimit)
		m.concurrency[owner] = sem
	}
	m.mu.Unlock()

	if !sem.TryAcquire(1) {
		return fmt.Errorf("%w for %s", ErrLimitReached, owner)
	}

	return nil
}

// releaseSlot releases a parallel session slot for the account
func (m *Manager) releaseSlot(owner string) {
	m.mu.RLock()
	sem := m.concurrency[owner]
	m.mu.RUnlock()

	if sem != nil {
		sem.Release(1)
	}
}

// handleTimeout closes a session nobody closed within the idle timeout
func (m *Manager) handleTimeout(id string) {
	value, ok := m.sessions.Load(id)
	if !ok {
		return
	}
	if m.close(value.(*record), StateTimeout) {
		m.opts.Logger.Info().Str("session_id", id).Msg("session timed out")
	}
}
