// internal/tasker/runner.go
package tasker

import (
	"context"

	"go.uber.org/zap"
)

// TodoRunner drives the step executor for a single todo, bounded by a step
// budget. The budget is the only cancellation lever below the run level: a
// soft deadline measured in steps, not wall-clock time.
type TodoRunner struct {
	executor *StepExecutor
	logger   *zap.Logger
}

// NewTodoRunner wraps the given executor.
func NewTodoRunner(executor *StepExecutor, logger *zap.Logger) *TodoRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoRunner{executor: executor, logger: logger.Named("todo_runner")}
}

// Reset clears per-run state held below the runner.
func (r *TodoRunner) Reset() {
	r.executor.Reset()
}

// Run invokes the executor at most maxSteps times. It returns true the
// first time a step reports the todo complete, and false when the budget
// is exhausted without completion. A step failure is not swallowed: the
// todo's run ends immediately and the failure is re-raised as a
// *TodoFailure, so the caller can tell "ran out of steps" apart from
// "a step itself broke".
func (r *TodoRunner) Run(ctx context.Context, instruction string, todoIndex int, todo string, maxSteps int) (bool, error) {
	for step := 1; step <= maxSteps; step++ {
		outcome, err := r.executor.Step(ctx, instruction, todo)
		if err != nil {
			r.logger.Warn("Step broke, abandoning todo",
				zap.Int("todo_index", todoIndex),
				zap.Int("step", step),
				zap.Error(err),
			)
			return false, &TodoFailure{TodoIndex: todoIndex, Todo: todo, Cause: err}
		}

		if outcome.TodoCompleted {
			r.logger.Info("Todo completed",
				zap.Int("todo_index", todoIndex),
				zap.Int("steps_used", step),
			)
			return true, nil
		}
	}

	r.logger.Warn("Step budget exhausted without completion",
		zap.Int("todo_index", todoIndex),
		zap.Int("max_steps", maxSteps),
	)
	return false, nil
}
