package demand

import (
	"errors"
	"fmt"
)

// ValidationError rejects a whole request before any query runs. Index is
// the offending monitor position, or -1 for request-level problems.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("monitor at index %d: %s", e.Index, e.Reason)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// MonitorError records a per-monitor execution failure inside a batch.
type MonitorError struct {
	Index     int    `json:"index"`
	MonitorID string `json:"id"`
	Message   string `json:"error"`
}
