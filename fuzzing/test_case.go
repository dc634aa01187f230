package fuzzing

import "github.com/charybdis-fuzz/charybdis/logging"

// TestCaseStatus defines the status of a TestCase as a string-represented enum.
type TestCaseStatus string

const (
	// TestCaseStatusNotStarted describes a test case which has not yet begun execution.
	TestCaseStatusNotStarted TestCaseStatus = "NOT STARTED"
	// TestCaseStatusRunning describes a test case which is currently being fuzzed.
	TestCaseStatusRunning TestCaseStatus = "RUNNING"
	// TestCaseStatusPassed describes a test case which completed its campaign without a failure.
	TestCaseStatusPassed TestCaseStatus = "PASSED"
	// TestCaseStatusFailed describes a test case for which a failing call sequence was found.
	TestCaseStatusFailed TestCaseStatus = "FAILED"
)

// TestCase describes a test being run by the Fuzzer.
type TestCase interface {
	// Status describes the current status of the test case.
	Status() TestCaseStatus

	// Name describes the name of the test case.
	Name() string

	// ID describes a stable unique identifier for the test case, usable as a map key.
	ID() string

	// Message obtains a plain text result message describing the test outcome, or an empty string if the test has
	// not concluded.
	Message() string

	// LogMessage obtains the result message as a LogBuffer so it can be rendered with or without colors.
	LogMessage() *logging.LogBuffer
}
