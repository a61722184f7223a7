package cleanup

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is logged when Start is called on a running manager.
	ErrAlreadyRunning = errors.New("cleanup monitor already running")
	// ErrNotRunning is logged when Stop is called on a stopped manager.
	ErrNotRunning = errors.New("cleanup monitor not running")
	// ErrInvalidMode is returned for modes a caller may not request.
	ErrInvalidMode = errors.New("invalid cleanup mode")
)

// SchedulingError wraps a failure that escaped a monitor cycle.
type SchedulingError struct {
	CycleID string
	Err     error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("cleanup cycle %s: %v", e.CycleID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}
