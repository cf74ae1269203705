// internal/eventing/sink.go
package eventing

import (
	"sync"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// Sink is an append-only, in-memory event observer. Writes come from the
// single orchestrator flow during the run; reads happen after writes cease
// (export time). The mutex makes out-of-band reads safe regardless.
type Sink struct {
	mu     sync.RWMutex
	events []schemas.Event
}

var _ schemas.EventObserver = (*Sink)(nil)

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{events: make([]schemas.Event, 0)}
}

// OnEvent appends the event. It never blocks the caller materially.
func (s *Sink) OnEvent(event schemas.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a snapshot of the accumulated events in emission order.
func (s *Sink) Events() []schemas.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schemas.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of accumulated events.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
