package reporter

// Outcome tags how a status update ended
type Outcome string

const (
	OutcomeSucceeded          Outcome = "succeeded"
	OutcomeInvalidSession     Outcome = "invalid_session"
	OutcomeMissingCredentials Outcome = "missing_credentials"
	OutcomeNeverVisible       Outcome = "never_visible"
	// OutcomeExhausted means every one of the retryCount writes failed
	OutcomeExhausted          Outcome = "exhausted"
	// OutcomeCancelled means ctx ended before the wait or the retries finished
	OutcomeCancelled          Outcome = "cancelled"
)

// Result is the tagged outcome of UpdateSessionStatus
type Result struct {
	SessionID string
	Outcome   Outcome
	// Attempts is the number of status writes sent
	Attempts int
	// Err is the last error seen, nil on success
	Err error
}

// OK reports whether the grid accepted the status
func (r Result) OK() bool {
	return r.Outcome == OutcomeSucceeded
}
