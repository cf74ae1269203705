// api/schemas/events.go
package schemas

import "time"

// EventKind labels the lifecycle point an event was emitted at.
type EventKind string

const (
	// EventTodoStart marks the transition of a todo to in_progress.
	EventTodoStart EventKind = "todo-start"
	// EventTodoEnd marks a todo reaching a terminal status.
	EventTodoEnd EventKind = "todo-end"
)

// Event is one append-only lifecycle record. Ownership transfers to the
// observer on emission; the engine never reads an event back.
type Event struct {
	Kind      EventKind `json:"kind"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}
