// internal/memory/memory.go
// The ledger is the single source of truth for run progress. It owns the
// ordered todo sequence and is mutated exclusively by the orchestrator;
// everything else reads it after the run has stopped.
package memory

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// ErrInvalidTransition is wrapped by every rejected status change. A
// rejected transition is a programming error in the caller, not a
// recoverable domain failure, so it is never absorbed into a run result.
var ErrInvalidTransition = fmt.Errorf("invalid todo status transition")

// Ledger tracks the statuses of an ordered todo list for a single run.
// It performs no locking: the concurrency model is single writer during
// the run, read-after-run for summaries.
type Ledger struct {
	todos []schemas.Todo
}

// NewLedger copies the given todos and initializes every status to pending.
// The copy keeps the caller's task definition immutable during the run.
func NewLedger(todos []schemas.Todo) *Ledger {
	owned := make([]schemas.Todo, len(todos))
	copy(owned, todos)
	for i := range owned {
		owned[i].Status = schemas.TodoPending
	}
	return &Ledger{todos: owned}
}

// Len returns the number of todos in the ledger.
func (l *Ledger) Len() int { return len(l.todos) }

// Todo returns a copy of the todo at index i.
func (l *Ledger) Todo(i int) schemas.Todo { return l.todos[i] }

// Todos returns a copy of the full todo sequence in order.
func (l *Ledger) Todos() []schemas.Todo {
	out := make([]schemas.Todo, len(l.todos))
	copy(out, l.todos)
	return out
}

// NextPending returns the index of the lowest-index todo still pending,
// or -1 when none remain. The ledger never reorders.
func (l *Ledger) NextPending() int {
	for i := range l.todos {
		if l.todos[i].Status == schemas.TodoPending {
			return i
		}
	}
	return -1
}

// MarkInProgress moves the todo at index i from pending to in_progress.
// At most one todo may be in_progress at a time.
func (l *Ledger) MarkInProgress(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	for j := range l.todos {
		if l.todos[j].Status == schemas.TodoInProgress {
			return fmt.Errorf("%w: todo %d is already in_progress", ErrInvalidTransition, j)
		}
	}
	return l.transition(i, schemas.TodoPending, schemas.TodoInProgress)
}

// MarkCompleted moves the todo at index i from in_progress to completed.
func (l *Ledger) MarkCompleted(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	return l.transition(i, schemas.TodoInProgress, schemas.TodoCompleted)
}

// MarkSkipped moves the todo at index i from in_progress to skipped.
func (l *Ledger) MarkSkipped(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	return l.transition(i, schemas.TodoInProgress, schemas.TodoSkipped)
}

func (l *Ledger) checkIndex(i int) error {
	if i < 0 || i >= len(l.todos) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidTransition, i, len(l.todos))
	}
	return nil
}

func (l *Ledger) transition(i int, from, to schemas.TodoStatus) error {
	if current := l.todos[i].Status; current != from {
		return fmt.Errorf("%w: todo %d is %s, cannot become %s", ErrInvalidTransition, i, current, to)
	}
	l.todos[i].Status = to
	return nil
}

// StatusSummary derives a count per status. Statuses with zero todos are
// included so consumers do not need to special-case missing keys.
func (l *Ledger) StatusSummary() map[schemas.TodoStatus]int {
	summary := map[schemas.TodoStatus]int{
		schemas.TodoPending:    0,
		schemas.TodoInProgress: 0,
		schemas.TodoCompleted:  0,
		schemas.TodoSkipped:    0,
	}
	for i := range l.todos {
		summary[l.todos[i].Status]++
	}
	return summary
}

// ExecutionSummary renders a short natural-language account of the run so
// far: an aggregate line followed by one line per todo.
func (l *Ledger) ExecutionSummary() string {
	summary := l.StatusSummary()
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d of %d todos: %d completed, %d skipped, %d pending.\n",
		summary[schemas.TodoCompleted]+summary[schemas.TodoSkipped],
		len(l.todos),
		summary[schemas.TodoCompleted],
		summary[schemas.TodoSkipped],
		summary[schemas.TodoPending],
	)
	for i := range l.todos {
		fmt.Fprintf(&b, "  [%d] %s - %s\n", i+1, l.todos[i].Description, l.todos[i].Status)
	}
	return strings.TrimRight(b.String(), "\n")
}
