// internal/tasker/tasker.go
// The orchestrator: a state machine over the todo ledger. It is the
// ledger's only mutator and the engine's only event emitter. One run is
// strictly sequential; the suspension points are the three collaborator
// calls inside each step.
package tasker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/memory"
)

// RunState is the orchestrator's phase for the current run.
type RunState string

const (
	StateIdle     RunState = "idle"
	StateRunning  RunState = "running"
	StateFinished RunState = "finished" // Every todo reached completed.
	StateAborted  RunState = "aborted"  // A todo was skipped and processing stopped.
)

// Options configures one orchestrator instance.
type Options struct {
	// MaxStepsPerTodo is the per-todo step budget. Must be positive.
	MaxStepsPerTodo int
	// ContinueOnFailure continues to the next todo after a skip instead of
	// aborting the run. Todos in this domain are usually sequentially
	// dependent, so the default (false) fails fast.
	ContinueOnFailure bool
	// OnTodoCompleted, when set, runs synchronously after each todo is
	// marked completed and before the next one starts. Verification hooks
	// use it to observe the page state at completion time; the hook owns
	// its own errors and cannot fail the run.
	OnTodoCompleted func(ctx context.Context, index int, todo schemas.Todo)
}

// Tasker iterates the ledger in order, delegating each todo to the runner
// and absorbing domain failures into the run result.
type Tasker struct {
	task     schemas.Task
	ledger   *memory.Ledger
	runner   *TodoRunner
	observer schemas.EventObserver
	opts     Options
	logger   *zap.Logger
	state    RunState
}

// New validates the task and configuration up front; a Tasker that
// constructs successfully can always produce a RunResult.
func New(
	task schemas.Task,
	runner *TodoRunner,
	observer schemas.EventObserver,
	opts Options,
	logger *zap.Logger,
) (*Tasker, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("todo runner is required")
	}
	if opts.MaxStepsPerTodo <= 0 {
		return nil, fmt.Errorf("max steps per todo must be positive, got %d", opts.MaxStepsPerTodo)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tasker{
		task:     task,
		ledger:   memory.NewLedger(task.Todos),
		runner:   runner,
		observer: observer,
		opts:     opts,
		logger:   logger.Named("tasker"),
		state:    StateIdle,
	}, nil
}

// State returns the orchestrator's current run state.
func (t *Tasker) State() RunState { return t.state }

// Ledger exposes the run's ledger for read-after-run summaries.
func (t *Tasker) Ledger() *memory.Ledger { return t.ledger }

// Execute performs one full orchestration run. Ordinary domain failures
// (capture, dispatch, inference) are absorbed: the result carries
// Success=false and the causal error in Cause for the retry layer to
// classify. A non-nil returned error means a programming or configuration
// fault (e.g. an illegal ledger transition) and is fatal to the run.
func (t *Tasker) Execute(ctx context.Context) (*schemas.RunResult, error) {
	// Each Execute is a fresh run from todo 0. There is no resumable
	// checkpoint: partial external side effects cannot be undone either
	// way, so a retried run restarts the whole todo list, ledger and
	// action history both.
	t.ledger = memory.NewLedger(t.task.Todos)
	t.runner.Reset()
	t.state = StateRunning
	t.logger.Info("Starting task execution",
		zap.String("instruction", t.task.Instruction),
		zap.Int("todos", t.ledger.Len()),
	)

	var cause error

	for {
		idx := t.ledger.NextPending()
		if idx < 0 {
			break
		}
		todo := t.ledger.Todo(idx)

		if err := t.ledger.MarkInProgress(idx); err != nil {
			return nil, err
		}
		t.emit(schemas.EventTodoStart, fmt.Sprintf("Start of todo %d: %s", idx+1, todo.Description))
		t.logger.Info("Executing todo", zap.Int("todo_index", idx), zap.String("description", todo.Description))

		done, err := t.runner.Run(ctx, t.task.Instruction, idx, todo.Description, t.opts.MaxStepsPerTodo)

		if done && err == nil {
			if markErr := t.ledger.MarkCompleted(idx); markErr != nil {
				return nil, markErr
			}
			t.emit(schemas.EventTodoEnd, fmt.Sprintf("End of todo %d: %s", idx+1, todo.Description))
			if t.opts.OnTodoCompleted != nil {
				// The page still shows the completed todo's end state here;
				// the next todo has not started mutating it.
				t.opts.OnTodoCompleted(ctx, idx, t.ledger.Todo(idx))
			}
			continue
		}

		// Either a step broke (err != nil) or the budget ran out. Both
		// skip the todo; a broken step additionally records its cause so
		// the retry layer can classify it. Nothing above that layer ever
		// sees the failure raised.
		if err != nil && cause == nil {
			cause = err
		}
		if markErr := t.ledger.MarkSkipped(idx); markErr != nil {
			return nil, markErr
		}
		t.emit(schemas.EventTodoEnd, fmt.Sprintf("End of todo %d: %s", idx+1, todo.Description))

		if !t.opts.ContinueOnFailure {
			break
		}
	}

	summary := t.ledger.StatusSummary()
	success := summary[schemas.TodoSkipped] == 0 && summary[schemas.TodoPending] == 0

	if success {
		t.state = StateFinished
	} else {
		t.state = StateAborted
	}

	t.logger.Info("Task execution finished",
		zap.String("state", string(t.state)),
		zap.Bool("success", success),
		zap.Int("completed", summary[schemas.TodoCompleted]),
		zap.Int("skipped", summary[schemas.TodoSkipped]),
		zap.Int("pending", summary[schemas.TodoPending]),
	)

	return &schemas.RunResult{
		Success: success,
		Todos:   t.ledger.Todos(),
		Summary: summary,
		Cause:   cause,
	}, nil
}

func (t *Tasker) emit(kind schemas.EventKind, label string) {
	if t.observer == nil {
		return
	}
	t.observer.OnEvent(schemas.Event{Kind: kind, Label: label, Timestamp: time.Now()})
}
