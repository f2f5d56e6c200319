package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers match with errors.Is.
var (
	// ErrInvalidSchedule reports an attempt to schedule an event before the
	// current simulation time. It is fatal: the run aborts.
	ErrInvalidSchedule = errors.New("event scheduled in the past")

	// ErrInvalidConnection reports a connection whose source or destination
	// is not a valid endpoint in the topology. The connection is rejected;
	// other connections are unaffected.
	ErrInvalidConnection = errors.New("connection endpoints are not valid")

	// ErrExternalSolver reports a timeout or malformed response from the
	// external path solver. The round is skipped and prior assignments stay
	// in effect.
	ErrExternalSolver = errors.New("external solver exchange failed")

	// ErrUnroutable reports that no viable path exists between a
	// connection's endpoints under the current failure set. The connection
	// stays pending with zero flows and is retried on topology changes.
	ErrUnroutable = errors.New("no viable path for connection")
)

// InvalidScheduleError wraps ErrInvalidSchedule with scheduling detail.
type InvalidScheduleError struct {
	Now   int64
	Delay int64
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: delay %d at time %d", e.Delay, e.Now)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// InvalidConnectionError wraps ErrInvalidConnection with the offending endpoints.
type InvalidConnectionError struct {
	ConnID int
	Src    int
	Dst    int
}

func (e *InvalidConnectionError) Error() string {
	return fmt.Sprintf("connection %d: endpoints %d -> %d are not valid endpoints", e.ConnID, e.Src, e.Dst)
}

func (e *InvalidConnectionError) Unwrap() error { return ErrInvalidConnection }
