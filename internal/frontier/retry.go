package frontier

import (
	"time"

	"go.uber.org/zap"
)

// Retry policy shared by queue reads and deletes: up to ten attempts with
// linearly growing delay between them.
const RetryAttempts = 10

// BackoffFunc returns the delay before retrying after attempt i
// (zero-based).
type BackoffFunc func(attempt int) time.Duration

// SleepFunc blocks for d. Injectable so tests do not wait out the
// multi-minute production backoff.
type SleepFunc func(d time.Duration)

// LinearBackoff is the production backoff: 60s, 120s, 180s, ...
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * 60 * time.Second
}

// Retryer runs operations against an unreliable remote, retrying
// transient failures up to a fixed ceiling. Exhaustion is reported to the
// caller as ok=false rather than an error; degrading to "no data" is the
// contract, not a failure mode.
type Retryer struct {
	Attempts int
	Backoff  BackoffFunc
	Sleep    SleepFunc
	Logger   *zap.Logger
}

// NewRetryer builds a Retryer with the production policy.
func NewRetryer(logger *zap.Logger) *Retryer {
	return &Retryer{
		Attempts: RetryAttempts,
		Backoff:  LinearBackoff,
		Sleep:    time.Sleep,
		Logger:   logger,
	}
}

// Do runs fn until it succeeds, fails fatally, or the attempt ceiling is
// reached. It returns true on success. Fatal errors stop retrying
// immediately; both outcomes degrade silently per the frontier contract.
func (r *Retryer) Do(label string, fn func() error) bool {
	for i := 0; i < r.Attempts; i++ {
		err := fn()
		if err == nil {
			return true
		}
		if !IsTransient(err) {
			r.Logger.Error("giving up on non-transient error",
				zap.String("op", label),
				zap.Error(err),
			)
			return false
		}
		r.Logger.Error("transient failure",
			zap.String("op", label),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", r.Attempts),
			zap.Error(err),
		)
		r.Sleep(r.Backoff(i))
	}
	return false
}
