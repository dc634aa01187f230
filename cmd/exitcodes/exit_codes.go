// Package exitcodes defines the process exit codes the CLI reports and an error wrapper carrying one.
package exitcodes

import "errors"

const (
	// ExitCodeSuccess indicates no errors or failures occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some untyped error occurred.
	ExitCodeGeneralError = 1

	// ExitCodeHandledError indicates an error occurred which was already reported through logging, so the
	// top-level handler should not print it again.
	ExitCodeHandledError = 2

	// ExitCodeTestFailed indicates the fuzzing campaign completed but at least one test failed.
	ExitCodeTestFailed = 7
)

// ErrorWithExitCode wraps an error with the process exit code it should produce.
type ErrorWithExitCode struct {
	// Err describes the underlying error, which may be nil when only an exit code should be reported.
	Err error

	// ExitCode describes the exit code the process should return.
	ExitCode int
}

// NewErrorWithExitCode creates an error wrapping the provided error and exit code.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		Err:      err,
		ExitCode: exitCode,
	}
}

// Error implements the error interface.
func (e *ErrorWithExitCode) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ErrorWithExitCode) Unwrap() error {
	return e.Err
}

// GetInnerErrorAndExitCode unwraps the provided error into the error to report and the process exit code to
// return. A nil error yields success.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	}
	var exitErr *ErrorWithExitCode
	if errors.As(err, &exitErr) {
		return exitErr.Err, exitErr.ExitCode
	}
	return err, ExitCodeGeneralError
}
