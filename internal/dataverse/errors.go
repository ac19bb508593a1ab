package dataverse

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceError reports a failed call to the dataset service: a transport
// failure, a non-success status, or a response that could not be decoded.
type ServiceError struct {
	Op         string
	PID        string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("dataverse ")
	b.WriteString(e.Op)
	if e.PID != "" {
		fmt.Fprintf(&b, " %s", e.PID)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err is or wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
