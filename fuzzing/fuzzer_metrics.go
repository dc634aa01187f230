package fuzzing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/logging/colors"
	"github.com/shopspring/decimal"
)

// MethodMetrics describes the call outcome counters of a single fuzzable method.
type MethodMetrics struct {
	// Calls describes the number of times the method was called, including reverted calls and calls the backend
	// reported as nested sub-calls.
	Calls uint64

	// Reverts describes the number of calls to the method which reverted.
	Reverts uint64

	// Discards describes the number of calls to the method which were discarded by an assume rejection.
	Discards uint64
}

// TestMetrics describes the campaign counters of a single invariant test, mutated only by the worker running the
// test and read by the reporter after the campaign concludes.
type TestMetrics struct {
	// Runs describes the number of call sequences executed, including partial sequences cut short by a timeout.
	Runs uint64

	// Calls describes the number of calls attempted across all sequences.
	Calls uint64

	// Reverts describes the number of attempted calls which reverted.
	Reverts uint64

	// Discards describes the number of attempted calls discarded by assume rejections.
	Discards uint64

	// methods maps a canonical "Contract.signature" name to its per-method counters.
	methods map[string]*MethodMetrics
}

// newTestMetrics creates an empty metrics table for one invariant test.
func newTestMetrics() *TestMetrics {
	return &TestMetrics{
		methods: make(map[string]*MethodMetrics),
	}
}

// Method returns the counters of the provided canonical method name, creating them if needed.
func (m *TestMetrics) Method(canonicalName string) *MethodMetrics {
	methodMetrics := m.methods[canonicalName]
	if methodMetrics == nil {
		methodMetrics = &MethodMetrics{}
		m.methods[canonicalName] = methodMetrics
	}
	return methodMetrics
}

// RecordCall records one attempted call to the provided canonical method name and its outcome.
func (m *TestMetrics) RecordCall(canonicalName string, reverted bool) {
	m.Calls++
	methodMetrics := m.Method(canonicalName)
	methodMetrics.Calls++
	if reverted {
		m.Reverts++
		methodMetrics.Reverts++
	}
}

// RecordDiscard records one attempted call to the provided canonical method name which was discarded by an
// assume rejection.
func (m *TestMetrics) RecordDiscard(canonicalName string) {
	m.Calls++
	m.Discards++
	methodMetrics := m.Method(canonicalName)
	methodMetrics.Calls++
	methodMetrics.Discards++
}

// rate renders part/total as a percentage with two decimal places.
func rate(part uint64, total uint64) string {
	if total == 0 {
		return "0.00%"
	}
	percentage := decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(total))).Mul(decimal.NewFromInt(100))
	return percentage.StringFixed(2) + "%"
}

// Log renders the per-method metrics table sorted by canonical method name.
func (m *TestMetrics) Log() *logging.LogBuffer {
	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	sort.Strings(names)

	buffer := logging.NewLogBuffer()
	buffer.Append(colors.Bold, fmt.Sprintf("%-48s %10s %10s %10s %12s %12s", "selector", "calls", "reverts", "discards", "revert rate", "discard rate"), colors.Reset)
	for _, name := range names {
		methodMetrics := m.methods[name]
		buffer.Append(fmt.Sprintf("\n%-48s %10d %10d %10d %12s %12s",
			name, methodMetrics.Calls, methodMetrics.Reverts, methodMetrics.Discards,
			rate(methodMetrics.Reverts, methodMetrics.Calls), rate(methodMetrics.Discards, methodMetrics.Calls)))
	}
	return buffer
}

// FuzzerMetrics describes the campaign-wide counters of a Fuzzer, aggregated across workers.
type FuzzerMetrics struct {
	// lock guards the counters, which are written by concurrent workers.
	lock sync.Mutex

	// sequencesTested describes the number of call sequences executed across all tests.
	sequencesTested uint64

	// callsTested describes the number of calls attempted across all tests.
	callsTested uint64

	// failedTests describes the number of tests which concluded with a failure.
	failedTests uint64

	// workerStartupCount describes the number of workers which were spawned during the campaign.
	workerStartupCount uint64
}

// newFuzzerMetrics creates an empty campaign-wide metrics aggregate.
func newFuzzerMetrics() *FuzzerMetrics {
	return &FuzzerMetrics{}
}

// WorkerStarted records the startup of one worker.
func (m *FuzzerMetrics) WorkerStarted() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.workerStartupCount++
}

// TestConcluded folds one test's counters into the campaign-wide aggregate.
func (m *FuzzerMetrics) TestConcluded(testMetrics *TestMetrics, failed bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sequencesTested += testMetrics.Runs
	m.callsTested += testMetrics.Calls
	if failed {
		m.failedTests++
	}
}

// SequencesTested returns the number of call sequences executed across all tests.
func (m *FuzzerMetrics) SequencesTested() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sequencesTested
}

// CallsTested returns the number of calls attempted across all tests.
func (m *FuzzerMetrics) CallsTested() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.callsTested
}

// FailedTests returns the number of tests which concluded with a failure.
func (m *FuzzerMetrics) FailedTests() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.failedTests
}

// WorkerStartupCount returns the number of workers spawned during the campaign.
func (m *FuzzerMetrics) WorkerStartupCount() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.workerStartupCount
}
