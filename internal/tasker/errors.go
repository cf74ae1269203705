// internal/tasker/errors.go
package tasker

import (
	"errors"
	"fmt"
)

// StepFailure marks a collaborator error that broke one step. The executor
// wraps, never retries; the cause stays reachable through errors.As/Is.
type StepFailure struct {
	// Stage names the collaborator call that failed: "capture", "decide"
	// or "dispatch".
	Stage string
	Cause error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step failed during %s: %v", e.Stage, e.Cause)
}

func (e *StepFailure) Unwrap() error { return e.Cause }

// TodoFailure marks a todo whose run was terminated by a broken step, as
// opposed to one that merely ran out of steps.
type TodoFailure struct {
	TodoIndex int
	Todo      string
	Cause     error
}

func (e *TodoFailure) Error() string {
	return fmt.Sprintf("todo %d (%q) failed: %v", e.TodoIndex, e.Todo, e.Cause)
}

func (e *TodoFailure) Unwrap() error { return e.Cause }

// transienter is implemented by collaborator errors that are expected to be
// recoverable by rerunning the whole task (e.g. an upstream 5xx).
type transienter interface {
	Transient() bool
}

// IsTransient walks the error chain for a transience marker. Errors that do
// not carry one are treated as permanent.
func IsTransient(err error) bool {
	var te transienter
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
