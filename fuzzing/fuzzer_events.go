package fuzzing

import (
	"github.com/charybdis-fuzz/charybdis/events"
	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
)

// FuzzerStartingEvent describes an event where the Fuzzer is starting its campaign.
type FuzzerStartingEvent struct {
	// Fuzzer represents the Fuzzer instance which is starting.
	Fuzzer *Fuzzer
}

// FuzzerStoppingEvent describes an event where the Fuzzer has concluded its campaign.
type FuzzerStoppingEvent struct {
	// Fuzzer represents the Fuzzer instance which is stopping.
	Fuzzer *Fuzzer

	// Err describes the setup error which stopped the campaign, if any.
	Err error
}

// FuzzerWorkerCreatedEvent describes an event where a worker was created to run one test's campaign.
type FuzzerWorkerCreatedEvent struct {
	// Worker represents the worker which was created.
	Worker *FuzzerWorker
}

// FuzzerWorkerDestroyedEvent describes an event where a worker concluded its test's campaign.
type FuzzerWorkerDestroyedEvent struct {
	// Worker represents the worker which concluded.
	Worker *FuzzerWorker
}

// CallSequenceTestedEvent describes an event where a worker finished executing one call sequence, whether or not
// it failed.
type CallSequenceTestedEvent struct {
	// Worker represents the worker which executed the sequence.
	Worker *FuzzerWorker

	// Sequence represents the executed call sequence with its observed outcomes.
	Sequence calls.CallSequence
}

// TestCaseFinishedEvent describes an event where a test case concluded with a final status.
type TestCaseFinishedEvent struct {
	// TestCase represents the test case which concluded.
	TestCase TestCase
}

// FuzzerEvents defines the event emitters of a Fuzzer.
type FuzzerEvents struct {
	// FuzzerStarting emits when the Fuzzer begins its campaign.
	FuzzerStarting events.EventEmitter[FuzzerStartingEvent]

	// FuzzerStopping emits when the Fuzzer concludes its campaign.
	FuzzerStopping events.EventEmitter[FuzzerStoppingEvent]

	// WorkerCreated emits when a worker is created to run one test's campaign.
	WorkerCreated events.EventEmitter[FuzzerWorkerCreatedEvent]

	// WorkerDestroyed emits when a worker concludes its test's campaign.
	WorkerDestroyed events.EventEmitter[FuzzerWorkerDestroyedEvent]

	// CallSequenceTested emits when a worker finishes executing one call sequence.
	CallSequenceTested events.EventEmitter[CallSequenceTestedEvent]

	// TestCaseFinished emits when a test case concludes with a final status.
	TestCaseFinished events.EventEmitter[TestCaseFinishedEvent]
}
