package describes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout is returned when a test, including its fixture setup, runs past its timeout.
	ErrTimeout = errors.New("test timed out")

	// ErrEmptyName is raised when a suite is registered without a name.
	ErrEmptyName = errors.New("suite name must not be empty")
)

// SetupError reports the fixture whose setup failed.
type SetupError struct {
	Fixture string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setting up fixture %s: %v", e.Fixture, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// TeardownError collects every teardown failure of one test.
type TeardownError struct {
	Errs []error
}

func (e *TeardownError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("tearing down fixtures: %s", strings.Join(msgs, "; "))
}

func (e *TeardownError) Unwrap() []error {
	return e.Errs
}

// PanicError wraps a value recovered from a panicking fixture, hook or test body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected panic: %+v\n%s", e.Value, e.Stack)
}
