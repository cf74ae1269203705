// internal/browser/errors.go
package browser

import "fmt"

// CaptureError reports a failed observation capture.
type CaptureError struct {
	Cause error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screenshot capture unavailable: %v", e.Cause)
}

func (e *CaptureError) Unwrap() error { return e.Cause }

// DispatchError reports a failed action dispatch. The action may have had
// partial effect on the page; dispatched input is irreversible.
type DispatchError struct {
	ActionType string
	Cause      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to dispatch %s action: %v", e.ActionType, e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }
