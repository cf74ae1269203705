// internal/retry/retry.go
// Full-run resilience. This is the only retry point in the system: step
// executors and todo runners never retry, they surface failures upward,
// and this wrapper decides whether an entire run is worth redoing.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/tasker"
)

// Policy is an explicit retry policy value object. No implicit or global
// retry state exists anywhere else.
type Policy struct {
	// MaxAttempts is the total number of run attempts, including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// MaxDelay caps the backoff: delay = min(base * 2^(attempt-1), max).
	MaxDelay time.Duration
	// Retryable classifies a run's causal error. Nil means the default
	// transient classification (tasker.IsTransient).
	Retryable func(error) bool
}

// Validate rejects unusable policies at construction time.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("retry policy: base delay must be >= 0, got %s", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry policy: max delay %s must be >= base delay %s", p.MaxDelay, p.BaseDelay)
	}
	return nil
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return tasker.IsTransient(err)
}

// newBackOff builds a deterministic exponential backoff for one Run call.
// Randomization is disabled so the delay sequence is exactly
// base, 2*base, 4*base, ... capped at max.
func (p Policy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // The attempt budget, not elapsed time, bounds us.
	bo.Reset()
	return bo
}

// RunFunc executes one full orchestration run from scratch.
type RunFunc func(ctx context.Context) (*schemas.RunResult, error)

// Run attempts fn up to policy.MaxAttempts times. A returned error is a
// fatal programming or configuration fault and propagates immediately
// without consuming the attempt budget. A result whose Cause satisfies the
// retryable predicate triggers a backoff wait and a complete rerun; any
// other result (success, budget exhaustion, permanent failure) is final.
// The wrapper is stateless across calls.
func Run(ctx context.Context, policy Policy, fn RunFunc, logger *zap.Logger) (*schemas.RunResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("retry")

	bo := policy.newBackOff()

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if result.Success || result.Cause == nil || !policy.retryable(result.Cause) {
			return result, nil
		}
		if attempt >= policy.MaxAttempts {
			logger.Warn("Attempt budget exhausted, returning failed run",
				zap.Int("attempts", attempt),
				zap.Error(result.Cause),
			)
			return result, nil
		}

		delay := bo.NextBackOff()
		logger.Info("Transient failure, retrying full run",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(result.Cause),
		)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}
}
