// internal/actorclient/errors.go
package actorclient

import "fmt"

// InferenceError reports a failed inference attempt against the actor
// endpoint. Transience drives the full-run retry decision: upstream
// overload (429/5xx) and network errors are worth rerunning, anything else
// (bad request, auth, malformed response) is permanent.
type InferenceError struct {
	StatusCode int
	Message    string
	transient  bool
}

func (e *InferenceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("actor inference failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("actor inference failed: %s", e.Message)
}

// Transient reports whether rerunning the task may succeed.
func (e *InferenceError) Transient() bool { return e.transient }

func newTransient(statusCode int, format string, args ...interface{}) *InferenceError {
	return &InferenceError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...), transient: true}
}

func newPermanent(statusCode int, format string, args ...interface{}) *InferenceError {
	return &InferenceError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}
