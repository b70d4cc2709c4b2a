package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/gridstatus/internal/reporter"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

// StatusUpdater is implemented by reporter.SessionStatusReporter
type StatusUpdater interface {
	UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus, reason string, retryCount int) reporter.Result
}

// Entry is the outcome of reporting one test result
type Entry struct {
	TestResult models.TestResult
	Skipped    bool
	Result     reporter.Result
}

// Summary aggregates a batch run
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Entries   []Entry
}

// OK reports whether nothing failed
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Reporter reports many sessions in parallel, one status update per session
type Reporter struct {
	updater    StatusUpdater
	policy     models.UnknownPolicy
	workers    int64
	retryCount int
	logger     zerolog.Logger
}

// NewReporter creates a batch reporter running at most workers updates at once
func NewReporter(updater StatusUpdater, policy models.UnknownPolicy, workers, retryCount int, logger zerolog.Logger) *Reporter {
	if workers < 1 {
		workers = 1
	}
	return &Reporter{
		updater:    updater,
		policy:     policy,
		workers:    int64(workers),
		retryCount: retryCount,
		logger:     logger,
	}
}

// ReportAll sends every result and returns once all updates have finished.
// Entries keep the order of results.
func (r *Reporter) ReportAll(ctx context.Context, results []models.TestResult) Summary {
	entries := make([]Entry, len(results))
	sem := semaphore.NewWeighted(r.workers)
	var wg sync.WaitGroup

	for i, tr := range results {
		entries[i].TestResult = tr

		status, ok := r.policy.Resolve(tr.Outcome)
		if !ok {
			r.logger.Info().Str("session_id", tr.SessionID).Str("outcome", string(tr.Outcome)).Msg("outcome unknown, not reporting")
			entries[i].Skipped = true
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			entries[i].Result = reporter.Result{SessionID: tr.SessionID, Outcome: reporter.OutcomeCancelled, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, tr models.TestResult, status models.SessionStatus) {
			defer wg.Done()
			defer sem.Release(1)

			entries[i].Result = r.updater.UpdateSessionStatus(ctx, tr.SessionID, status, reasonFor(tr, status), r.retryCount)
		}(i, tr, status)
	}

	wg.Wait()

	summary := Summary{Entries: entries}
	for _, e := range entries {
		switch {
		case e.Skipped:
			summary.Skipped++
		case e.Result.OK():
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}

	r.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("batch report finished")

	return summary
}

func reasonFor(tr models.TestResult, status models.SessionStatus) string {
	if tr.Reason != "" {
		return tr.Reason
	}
	if tr.Outcome == models.OutcomeUnknown {
		return "Outcome unknown, reported as " + string(status)
	}
	if status == models.StatusFailed {
		return "Test failed"
	}
	return "Test passed"
}
