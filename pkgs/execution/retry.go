package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/aledsdavies/do2json/pkgs/diag"
	"github.com/aledsdavies/do2json/pkgs/errors"
)

// DefaultRetryDelay is the pause between attempts when none is configured
const DefaultRetryDelay = time.Second

// RetryRunner re-runs commands that failed to execute or timed out.
// Configuration errors and empty results are returned at once.
type RetryRunner struct {
	next     Runner
	attempts int
	delay    time.Duration
	log      *diag.Logger
}

// NewRetryRunner wraps next. attempts below 1 are treated as 1.
func NewRetryRunner(next Runner, attempts int, delay time.Duration, log *diag.Logger) *RetryRunner {
	if attempts < 1 {
		attempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	if log == nil {
		log = diag.Discard()
	}
	return &RetryRunner{next: next, attempts: attempts, delay: delay, log: log}
}

// Run implements Runner
func (r *RetryRunner) Run(ctx context.Context, command string) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lines, err := r.next.Run(ctx, command)
		if err == nil || !retryable(err) {
			return lines, err
		}
		lastErr = err
		r.log.Warnf("attempt %d/%d failed: %v", attempt, r.attempts, err)

		// Don't delay after the last attempt
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}

	if r.attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("all %d attempts failed, last error: %w", r.attempts, lastErr)
}

func retryable(err error) bool {
	return errors.IsErrorType(err, errors.ErrCommandExecution) || errors.IsErrorType(err, errors.ErrTimeout)
}
