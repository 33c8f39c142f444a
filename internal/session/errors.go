package session

import (
	"errors"
	"fmt"
)

// DataStoppedError is signalled when a connected device stops sending
// telemetry or drops the link.
type DataStoppedError struct {
	Extension string
	Cause     error
}

func (e *DataStoppedError) Error() string {
	return fmt.Sprintf("%s extension stopped receiving data", e.Extension)
}

func (e *DataStoppedError) Unwrap() error {
	return e.Cause
}

// ErrWatchdogExpired is the cause recorded when no telemetry arrived in time.
var ErrWatchdogExpired = errors.New("no telemetry within watchdog timeout")

// IsDataStopped reports whether err carries a DataStoppedError.
func IsDataStopped(err error) bool {
	var ds *DataStoppedError
	return errors.As(err, &ds)
}
