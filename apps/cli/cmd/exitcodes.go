package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// Exit codes for hitconn CLI
const (
	// ExitSuccess indicates the exchange completed with a non-error status
	ExitSuccess = 0

	// ExitHTTPError indicates the server answered with a 4xx or 5xx status
	ExitHTTPError = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExit(code int, err error) error {
	return &exitError{code: code, err: err}
}

func configError(err error) error {
	return withExit(ExitConfigError, err)
}

func usageError(err error) error {
	return withExit(ExitUsageError, err)
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return classify(err)
}

// classify maps connection error kinds to exit codes
func classify(err error) int {
	switch {
	case errors.Is(err, conn.ErrIOFailure), errors.Is(err, conn.ErrRetryRequired):
		return ExitNetworkError
	case errors.Is(err, conn.ErrPermissionDenied):
		return ExitConfigError
	case errors.Is(err, conn.ErrInvalidArgument),
		errors.Is(err, conn.ErrProtocolViolation),
		errors.Is(err, conn.ErrInvalidState):
		return ExitUsageError
	}
	return ExitHTTPError
}
