// api/schemas/interfaces.go
// Capability contracts consumed by the orchestration engine. Concrete
// implementations live under internal/ and are injected at construction,
// which keeps the engine decoupled and testable.
package schemas

import "context"

// ImageProvider acquires one observation of the environment.
type ImageProvider interface {
	Capture(ctx context.Context) (Observation, error)
}

// ActionHandler dispatches one decided action against the environment.
// Dispatched actions are irreversible; there is no rollback.
type ActionHandler interface {
	Dispatch(ctx context.Context, action Action) error
}

// ModelClient submits an observation plus context to the remote actor model
// and returns its decision. Implementations make exactly one inference
// attempt per call; retrying is the resilience layer's job.
type ModelClient interface {
	Decide(ctx context.Context, req StepRequest) (Decision, error)
}

// EventObserver receives lifecycle events as they are emitted. OnEvent must
// not block the run materially.
type EventObserver interface {
	OnEvent(event Event)
}

// Exporter serializes an accumulated event stream plus final ledger state
// to a durable report. Only well-defined after the run has stopped.
type Exporter interface {
	Export(format string, path string) error
}

// Checker answers a free-form question about a screenshot. Used for
// post-hoc verification of completed todos; never part of the step loop.
type Checker interface {
	AnalyzeScreenshot(ctx context.Context, png []byte, question string) (string, error)
}
