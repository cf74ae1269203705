// internal/vlm/verifier.go
package vlm

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// Verifier answers each completed todo's check question against the page
// state at completion time. It hangs off the orchestrator's post-todo hook,
// so the screenshot it questions is taken before the next todo starts
// mutating the page. Verification is advisory: answers and errors land in
// the report without changing the run outcome.
type Verifier struct {
	images  schemas.ImageProvider
	checker schemas.Checker
	logger  *zap.Logger

	mu      sync.Mutex
	results []schemas.CheckResult
}

// NewVerifier wires the screenshot source and the vision checker.
func NewVerifier(images schemas.ImageProvider, checker schemas.Checker, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		images:  images,
		checker: checker,
		logger:  logger.Named("verifier"),
	}
}

// OnTodoCompleted captures the current page and asks the todo's check
// question, if it has one. Matches the tasker post-todo hook signature.
func (v *Verifier) OnTodoCompleted(ctx context.Context, index int, todo schemas.Todo) {
	if todo.Check == "" {
		return
	}

	result := schemas.CheckResult{TodoIndex: index, Question: todo.Check}

	obs, err := v.images.Capture(ctx)
	if err != nil {
		v.logger.Warn("Cannot capture screenshot for verification",
			zap.Int("todo_index", index),
			zap.Error(err),
		)
		result.Err = err.Error()
		v.record(result)
		return
	}

	answer, err := v.checker.AnalyzeScreenshot(ctx, obs.PNG, todo.Check)
	if err != nil {
		v.logger.Warn("Verification question failed",
			zap.Int("todo_index", index),
			zap.Error(err),
		)
		result.Err = err.Error()
	} else {
		result.Answer = answer
	}
	v.record(result)
}

// Reset discards recorded answers. Called at the start of each run attempt
// so a rerun's report does not mix answers from an abandoned attempt.
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = nil
}

// Results returns a snapshot of the recorded answers in completion order.
func (v *Verifier) Results() []schemas.CheckResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]schemas.CheckResult, len(v.results))
	copy(out, v.results)
	return out
}

func (v *Verifier) record(result schemas.CheckResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = append(v.results, result)
}
