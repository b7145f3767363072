package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionStopped is returned when polling is requested on a stopped session.
	ErrSessionStopped = errors.New("progress: session stopped")

	// ErrOperationInFlight is returned when a start is requested while another
	// operation owns the controller.
	ErrOperationInFlight = errors.New("progress: operation already in flight")
)

// TransportError wraps a network or HTTP failure reaching an endpoint.
// Recoverable; drives interval backoff in the poller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a malformed or empty response where a snapshot was
// expected. Recoverable up to the failure threshold.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Op, e.Reason)
}

// OperationFailedError is a terminal error status from the backend, or an
// escalated transport/protocol failure past the threshold.
type OperationFailedError struct {
	Message string
	Detail  string
}

func (e *OperationFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("operation failed: %s (%s)", e.Message, e.Detail)
	}
	return fmt.Sprintf("operation failed: %s", e.Message)
}

// StartRejectedError indicates the start-operation call failed or returned an
// unexpected shape. No session is created; the user must re-trigger.
type StartRejectedError struct {
	Reason string
	Err    error
}

func (e *StartRejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("start rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("start rejected: %s", e.Reason)
}

func (e *StartRejectedError) Unwrap() error { return e.Err }

// SaveConflictError indicates a save-deltas call failed. The editor stays
// dirty; the user must retry or discard.
type SaveConflictError struct {
	Err error
}

func (e *SaveConflictError) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *SaveConflictError) Unwrap() error { return e.Err }
