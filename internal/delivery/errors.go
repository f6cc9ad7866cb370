package delivery

import (
	"errors"
	"fmt"
)

// Fault classes of a single attempt. Use errors.Is on the error returned by Send.
var (
	ErrTransport     = errors.New("transport fault")
	ErrServerStatus  = errors.New("server fault")
	ErrUnknownStatus = errors.New("unrecognized status")
	ErrClientStatus  = errors.New("client fault")
)

// Error is returned by Send when a payload could not be delivered. It wraps the
// cause of the last attempt.
type Error struct {
	Attempts int
	// Status is the HTTP status of the last attempt, 0 if no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("delivery failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether err is a fault class that another attempt could fix.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrServerStatus) ||
		errors.Is(err, ErrUnknownStatus)
}
