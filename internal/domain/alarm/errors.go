package alarm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode is returned when a disarm code does not match the stored code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrCommandRejected is returned when the vendor accepted the call but did not change the state.
	ErrCommandRejected = errors.New("could not change alarm state")
	// ErrUnknownCommand is returned for a target keyword outside the state table.
	ErrUnknownCommand = errors.New("unknown alarm command")
)

// CommandError reports a vendor failure while changing the panel state.
type CommandError struct {
	// Device is the configured panel name.
	Device string
	// Err is the vendor error.
	Err error
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("could not set alarm for %s: %v", e.Device, e.Err)
}

// Unwrap returns the vendor error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err came from the vendor during a command.
func IsCommandError(err error) bool {
	var commandErr *CommandError

	return errors.As(err, &commandErr)
}
