// api/schemas/tasks.go
package schemas

import (
	"fmt"
	"strings"
)

// TodoStatus is the lifecycle state of a single todo within a run.
// Transitions are strictly forward: pending -> in_progress -> {completed, skipped}.
// A todo never returns to pending, and completed/skipped are terminal.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoSkipped    TodoStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s TodoStatus) Terminal() bool {
	return s == TodoCompleted || s == TodoSkipped
}

// Todo is one ordered sub-task of a task. The description is immutable once
// a run starts; only the status changes, and only through the ledger.
type Todo struct {
	Description string     `json:"description"`
	Status      TodoStatus `json:"status"`
	// Check is an optional verification question asked of the vision model
	// after the todo completes. Empty means no verification.
	Check string `json:"check,omitempty"`
}

// Task pairs a high-level instruction with its caller-supplied decomposition
// into ordered todos. Decomposition is an input, never computed here.
type Task struct {
	Instruction string `json:"instruction"`
	Todos       []Todo `json:"todos"`
}

// Validate rejects tasks that cannot be run. These are construction-time
// errors and are fatal; they never reach the retry layer.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Instruction) == "" {
		return fmt.Errorf("task instruction must not be empty")
	}
	if len(t.Todos) == 0 {
		return fmt.Errorf("task must contain at least one todo")
	}
	for i, todo := range t.Todos {
		if strings.TrimSpace(todo.Description) == "" {
			return fmt.Errorf("todo %d has an empty description", i)
		}
	}
	return nil
}

// StepOutcome is the transient result of one perception->decide->act cycle.
// It is consumed by the todo runner and not persisted beyond the step.
type StepOutcome struct {
	Action        Action `json:"action"`
	TodoCompleted bool   `json:"todo_completed"`
}

// RunResult is the terminal artifact of one orchestration run. Ordinary
// domain failures (capture, dispatch, inference) are absorbed into it:
// Success is false and Cause carries the originating error so the retry
// layer can classify it. Cause is nil when the run finished cleanly or a
// todo merely exhausted its step budget.
type RunResult struct {
	Success bool               `json:"success"`
	Todos   []Todo             `json:"todos"`
	Summary map[TodoStatus]int `json:"summary"`
	Cause   error              `json:"-"`
}

// CheckResult records the answer of a post-hoc verification question.
type CheckResult struct {
	TodoIndex int    `json:"todo_index"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Err       string `json:"error,omitempty"`
}
