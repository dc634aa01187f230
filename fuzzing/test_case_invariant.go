package fuzzing

import (
	"fmt"

	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/corpus"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/logging/colors"
)

// Counterexample describes a failing call sequence: the sequence as originally discovered, its shrunk form and
// the reason both fail. Shrunk is always a subsequence or argument simplification of Original reproducing the
// same reason.
type Counterexample struct {
	// Original describes the failing call sequence as discovered by the campaign.
	Original calls.CallSequence

	// Shrunk describes the minimized failing call sequence. When shrinking is disabled it equals Original.
	Shrunk calls.CallSequence

	// Reason describes why the sequences fail.
	Reason corpus.FailureReason

	// ShrinkExhausted indicates the shrink replay budget ran out before minimization reached a fixed point, so
	// Shrunk may not be minimal.
	ShrinkExhausted bool
}

// InvariantTestCase describes one invariant method being fuzzed against its declaring test contract.
type InvariantTestCase struct {
	// contractName describes the name of the test contract declaring the invariant.
	contractName string

	// invariantName describes the name of the invariant method under test.
	invariantName string

	// status describes the current status of the test case.
	status TestCaseStatus

	// counterexample describes the failing call sequence, set when the test case fails.
	counterexample *Counterexample

	// metrics describes the campaign counters of this test.
	metrics *TestMetrics

	// showSolidity indicates counterexamples should be rendered as replayable Solidity statements.
	showSolidity bool
}

// newInvariantTestCase creates a test case for one invariant method of a test contract.
func newInvariantTestCase(contractName string, invariantName string, showSolidity bool) *InvariantTestCase {
	return &InvariantTestCase{
		contractName:  contractName,
		invariantName: invariantName,
		status:        TestCaseStatusNotStarted,
		metrics:       newTestMetrics(),
		showSolidity:  showSolidity,
	}
}

// Status describes the current status of the test case.
func (t *InvariantTestCase) Status() TestCaseStatus {
	return t.status
}

// Name describes the name of the test case.
func (t *InvariantTestCase) Name() string {
	return fmt.Sprintf("Invariant Test: %s.%s", t.contractName, t.invariantName)
}

// ID describes a stable unique identifier for the test case.
func (t *InvariantTestCase) ID() string {
	return fmt.Sprintf("%s.%s", t.contractName, t.invariantName)
}

// InvariantName describes the name of the invariant method under test.
func (t *InvariantTestCase) InvariantName() string {
	return t.invariantName
}

// Metrics returns the campaign counters of this test.
func (t *InvariantTestCase) Metrics() *TestMetrics {
	return t.metrics
}

// Counterexample returns the failing call sequence, or nil if the test case has not failed.
func (t *InvariantTestCase) Counterexample() *Counterexample {
	return t.counterexample
}

// markRunning flags the test case as actively being fuzzed.
func (t *InvariantTestCase) markRunning() {
	t.status = TestCaseStatusRunning
}

// markPassed flags the test case as having completed its campaign without a failure.
func (t *InvariantTestCase) markPassed() {
	t.status = TestCaseStatusPassed
}

// markFailed flags the test case as failed with the provided counterexample.
func (t *InvariantTestCase) markFailed(counterexample *Counterexample) {
	t.status = TestCaseStatusFailed
	t.counterexample = counterexample
}

// describeReason renders a failure reason as a human-readable line.
func describeReason(reason corpus.FailureReason) string {
	switch reason.Kind {
	case corpus.FailureKindInvariantViolation:
		if reason.Message != "" {
			return fmt.Sprintf("invariant %s violated: %s", reason.Name, reason.Message)
		}
		return fmt.Sprintf("invariant %s violated", reason.Name)
	case corpus.FailureKindHandlerRevert:
		if reason.Message != "" {
			return fmt.Sprintf("%s reverted: %s", reason.Name, reason.Message)
		}
		return fmt.Sprintf("%s reverted", reason.Name)
	case corpus.FailureKindAssumeRejectionsExceeded:
		return fmt.Sprintf("%s rejected too many inputs via assume", reason.Name)
	default:
		return fmt.Sprintf("%s: %s", reason.Kind, reason.Message)
	}
}

// Message obtains a plain text result message describing the test outcome.
func (t *InvariantTestCase) Message() string {
	return t.LogMessage().String()
}

// LogMessage obtains the result message as a LogBuffer so it can be rendered with or without colors.
func (t *InvariantTestCase) LogMessage() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	switch t.status {
	case TestCaseStatusPassed:
		buffer.Append(colors.GreenBold, fmt.Sprintf("[%s] ", t.status), colors.Reset, t.Name())
		buffer.Append(fmt.Sprintf("\nruns: %d, calls: %d, reverts: %d, discards: %d",
			t.metrics.Runs, t.metrics.Calls, t.metrics.Reverts, t.metrics.Discards))
	case TestCaseStatusFailed:
		buffer.Append(colors.RedBold, fmt.Sprintf("[%s] ", t.status), colors.Reset, t.Name())
		buffer.Append("\n", describeReason(t.counterexample.Reason))
		shrinkNote := ""
		if t.counterexample.ShrinkExhausted {
			shrinkNote = ", shrink budget exhausted"
		}
		buffer.Append(colors.Bold, fmt.Sprintf("\n[Call Sequence] (original length %d, shrunk length %d%s)\n",
			len(t.counterexample.Original), len(t.counterexample.Shrunk), shrinkNote), colors.Reset)
		if t.showSolidity {
			for _, statement := range t.counterexample.Shrunk.SolidityStatements() {
				buffer.Append(statement, "\n")
			}
		} else {
			buffer.Append(t.counterexample.Shrunk.Log().Args()...)
		}
	default:
		buffer.Append(fmt.Sprintf("[%s] ", t.status), t.Name())
	}
	return buffer
}
