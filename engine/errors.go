package engine

import (
	"errors"
	"fmt"

	"github.com/milk9111/mapengine/rmp"
)

var (
	// ErrFormat reports a malformed or unsupported map file.
	ErrFormat = rmp.ErrFormat
	// ErrIO reports a map file that could not be read.
	ErrIO = rmp.ErrIO
	// ErrNotFound reports a person name that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument reports a bad enum value or out of range argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPrecondition reports an operation that needs a running map engine.
	ErrPrecondition = errors.New("map engine not running")
	// ErrFatalHost reports that the host frame clock aborted. It unwinds every
	// nested run loop.
	ErrFatalHost = errors.New("host aborted")
)

func notRunning(op string) error {
	return fmt.Errorf("%s: %w", op, ErrPrecondition)
}

func personNotFound(op, name string) error {
	return fmt.Errorf("%s: person %q: %w", op, name, ErrNotFound)
}

func invalidArgument(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
}

// IsFatal reports whether err must stop every run loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalHost)
}
