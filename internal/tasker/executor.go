// internal/tasker/executor.go
package tasker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// StepExecutor runs one perception->decide->act cycle: capture an
// observation, ask the actor model for the next action, dispatch it.
// It never retries; any collaborator error surfaces as a *StepFailure and
// resilience is handled at full-run granularity above it.
type StepExecutor struct {
	images  schemas.ImageProvider
	model   schemas.ModelClient
	actions schemas.ActionHandler
	logger  *zap.Logger

	// history accumulates dispatched actions across the whole run and is
	// passed through to the model opaquely on every step.
	history []schemas.ActionRecord
}

// NewStepExecutor wires the three collaborators. All of them are required.
func NewStepExecutor(
	images schemas.ImageProvider,
	model schemas.ModelClient,
	actions schemas.ActionHandler,
	logger *zap.Logger,
) (*StepExecutor, error) {
	if images == nil || model == nil || actions == nil {
		return nil, fmt.Errorf("step executor requires image provider, model client and action handler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StepExecutor{
		images:  images,
		model:   model,
		actions: actions,
		logger:  logger.Named("step_executor"),
	}, nil
}

// Reset clears the accumulated action history. A rerun restarts the todo
// list from scratch, so the model must not see actions from an abandoned
// attempt as if they applied to this one.
func (e *StepExecutor) Reset() {
	e.history = nil
}

// Step executes one cycle for the given todo. Actions already dispatched to
// the environment are irreversible, so a failure mid-cycle leaves prior
// side effects in place; the caller decides what the failure means.
func (e *StepExecutor) Step(ctx context.Context, instruction, todo string) (schemas.StepOutcome, error) {
	obs, err := e.images.Capture(ctx)
	if err != nil {
		return schemas.StepOutcome{}, &StepFailure{Stage: "capture", Cause: err}
	}

	decision, err := e.model.Decide(ctx, schemas.StepRequest{
		Instruction: instruction,
		Todo:        todo,
		Observation: obs,
		History:     e.history,
	})
	if err != nil {
		return schemas.StepOutcome{}, &StepFailure{Stage: "decide", Cause: err}
	}

	action := decision.Action
	if action.ID == "" {
		action.ID = uuid.NewString()
	}

	e.logger.Debug("Dispatching action",
		zap.String("todo", todo),
		zap.String("action_type", string(action.Type)),
		zap.Bool("todo_completed", decision.TodoCompleted),
	)

	if err := e.actions.Dispatch(ctx, action); err != nil {
		return schemas.StepOutcome{}, &StepFailure{Stage: "dispatch", Cause: err}
	}

	e.history = append(e.history, schemas.ActionRecord{
		Todo:   todo,
		Type:   action.Type,
		Detail: actionDetail(action),
	})

	return schemas.StepOutcome{Action: action, TodoCompleted: decision.TodoCompleted}, nil
}

// actionDetail renders the one-line history entry for a dispatched action.
func actionDetail(a schemas.Action) string {
	switch a.Type {
	case schemas.ActionClick, schemas.ActionDoubleClick:
		return fmt.Sprintf("(%.0f, %.0f)", a.X, a.Y)
	case schemas.ActionType_:
		return a.Text
	case schemas.ActionNavigate:
		return a.Text
	case schemas.ActionScroll:
		return fmt.Sprintf("delta_y=%.0f", a.DeltaY)
	case schemas.ActionHotkey:
		return fmt.Sprintf("%v", a.Keys)
	case schemas.ActionWait:
		return fmt.Sprintf("%dms", a.DurationMS)
	default:
		return ""
	}
}
