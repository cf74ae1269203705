// api/schemas/actions.go
package schemas

import "time"

// ActionType enumerates the concrete interactions the actor model may
// request. The vocabulary is deliberately small; the browser session maps
// each type onto raw CDP primitives.
type ActionType string

const (
	ActionClick       ActionType = "CLICK"        // Single left click at X/Y.
	ActionDoubleClick ActionType = "DOUBLE_CLICK" // Double left click at X/Y.
	ActionType_       ActionType = "TYPE"         // Type Text into the focused element.
	ActionScroll      ActionType = "SCROLL"       // Scroll by DeltaY at X/Y.
	ActionHotkey      ActionType = "HOTKEY"       // Press the key chord in Keys.
	ActionNavigate    ActionType = "NAVIGATE"     // Load the URL in Text.
	ActionWait        ActionType = "WAIT"         // Pause for DurationMS.
	ActionFinish      ActionType = "FINISH"       // No-op; the model signals completion.
)

// Action is a single concrete step decided by the actor model. Which fields
// are meaningful depends on Type; unused fields stay at their zero value.
type Action struct {
	ID   string     `json:"id"`
	Type ActionType `json:"type"`

	// Thought is the model's reasoning for this action, kept for the run
	// report. Never interpreted by the engine.
	Thought string `json:"thought,omitempty"`

	X          float64  `json:"x,omitempty"`
	Y          float64  `json:"y,omitempty"`
	DeltaY     float64  `json:"delta_y,omitempty"`
	Text       string   `json:"text,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
}

// Observation is one captured view of the environment, handed opaquely to
// the actor model. PNG holds the raw screenshot bytes; Path is set when the
// capture was also persisted to the artifact directory.
type Observation struct {
	PNG       []byte    `json:"-"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionRecord is a compact history entry of a previously dispatched action,
// replayed to the model as context on subsequent steps.
type ActionRecord struct {
	Todo   string     `json:"todo"`
	Type   ActionType `json:"type"`
	Detail string     `json:"detail,omitempty"`
}

// StepRequest carries everything the actor model needs to decide the next
// action for the active todo. History is opaque context accumulated by the
// engine; the engine itself never inspects it.
type StepRequest struct {
	Instruction string         `json:"instruction"`
	Todo        string         `json:"todo"`
	Observation Observation    `json:"observation"`
	History     []ActionRecord `json:"history,omitempty"`
}

// Decision is the actor model's answer for one step: the action to take and
// whether the active todo is complete after it.
type Decision struct {
	Action        Action `json:"action"`
	TodoCompleted bool   `json:"todo_completed"`
}
