// Package fuzzing provides the invariant fuzzing engine: campaign orchestration across workers, sequence
// generation and execution, failure shrinking and result reporting.
package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/config"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/logging/colors"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/charybdis-fuzz/charybdis/utils/randomutils"
	"github.com/pkg/errors"
)

// TestDefinition describes one test contract whose declared invariants should be fuzzed.
type TestDefinition struct {
	// NewBackend constructs a fresh execution backend holding the test contract's deployed setup state. The
	// fuzzer creates one backend per invariant so parallel tests share no mutable state.
	NewBackend func() (backend.Backend, error)
}

// testJob pairs one invariant of a test definition with the backend instance its worker will own.
type testJob struct {
	executor     backend.Backend
	declarations *backend.Declarations
	testCase     *InvariantTestCase
}

// Fuzzer represents an invariant fuzzing provider. It discovers the invariants each registered test contract
// declares, distributes them across workers and aggregates their results.
type Fuzzer struct {
	// config describes the project configuration the campaign runs under.
	config config.ProjectConfig

	// logger describes the Fuzzer's log object, usable anywhere within the module.
	logger *logging.Logger

	// tests describes the registered test definitions.
	tests []TestDefinition

	// testCases describes the test cases discovered from the registered definitions, in discovery order.
	testCases []TestCase

	// metrics describes the campaign-wide counters aggregated across workers.
	metrics *FuzzerMetrics

	// randomProvider describes the campaign's root source of random data. Workers fork their own providers from
	// it under randomProviderLock so campaigns stay reproducible under a fixed seed.
	randomProvider     *rand.Rand
	randomProviderLock sync.Mutex

	// ctx describes the campaign context, carrying the configured wall-clock timeout.
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Hooks describes the replaceable constructors consulted when building per-worker components.
	Hooks FuzzerHooks

	// Events describes the event emitters of the Fuzzer.
	Events FuzzerEvents
}

// NewFuzzer creates a Fuzzer for the provided project configuration.
func NewFuzzer(projectConfig config.ProjectConfig) (*Fuzzer, error) {
	if err := projectConfig.Validate(); err != nil {
		logging.GlobalLogger.Error("Invalid configuration", err)
		return nil, err
	}
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}

	logger := logging.NewLogger(projectConfig.Logging.Level, true)
	if projectConfig.Logging.LogDirectory != "" {
		file, err := utils.CreateFile(projectConfig.Logging.LogDirectory, "charybdis.log")
		if err != nil {
			return nil, err
		}
		logger.AddWriter(file, logging.STRUCTURED)
	}
	logging.GlobalLogger = logger

	return &Fuzzer{
		config:  projectConfig,
		logger:  logger,
		metrics: newFuzzerMetrics(),
		Hooks: FuzzerHooks{
			NewValueGeneratorFunc:        defaultNewValueGeneratorFunc,
			NewShrinkingValueMutatorFunc: defaultNewShrinkingValueMutatorFunc,
		},
	}, nil
}

// Config returns the project configuration the campaign runs under.
func (f *Fuzzer) Config() config.ProjectConfig {
	return f.config
}

// Logger returns the Fuzzer's log object.
func (f *Fuzzer) Logger() *logging.Logger {
	return f.logger
}

// Metrics returns the campaign-wide counters aggregated across workers.
func (f *Fuzzer) Metrics() *FuzzerMetrics {
	return f.metrics
}

// TestCases returns the test cases discovered from the registered definitions.
func (f *Fuzzer) TestCases() []TestCase {
	return f.testCases
}

// TestCasesWithStatus returns the discovered test cases currently carrying the provided status.
func (f *Fuzzer) TestCasesWithStatus(status TestCaseStatus) []TestCase {
	return utils.SliceWhere(f.testCases, func(testCase TestCase) bool {
		return testCase.Status() == status
	})
}

// AddTest registers a test definition whose invariants will be fuzzed when the campaign starts.
func (f *Fuzzer) AddTest(definition TestDefinition) {
	f.tests = append(f.tests, definition)
}

// forkRandomProvider creates a new random provider derived from the campaign's root provider, so concurrent
// workers draw reproducible yet independent random streams.
func (f *Fuzzer) forkRandomProvider() *rand.Rand {
	f.randomProviderLock.Lock()
	defer f.randomProviderLock.Unlock()
	return randomutils.ForkRandomProvider(f.randomProvider)
}

// Stop cancels a running campaign. Work completed so far is reported as usual.
func (f *Fuzzer) Stop() {
	if f.cancelFunc != nil {
		f.cancelFunc()
	}
}

// discoverJobs scans every registered definition for its declared invariants and creates a test case and backend
// per invariant.
func (f *Fuzzer) discoverJobs() ([]*testJob, error) {
	var jobs []*testJob
	for _, definition := range f.tests {
		executor, err := definition.NewBackend()
		if err != nil {
			return nil, err
		}
		declarations, err := executor.ScanDeclarations()
		if err != nil {
			return nil, err
		}
		if len(declarations.Invariants) == 0 {
			f.logger.Warn("Test contract ", declarations.TestContractName, " declares no invariant methods, skipping")
			continue
		}

		for i, invariantName := range declarations.Invariants {
			jobExecutor, jobDeclarations := executor, declarations
			if i > 0 {
				// Every invariant gets its own backend so parallel workers never share simulated state.
				if jobExecutor, err = definition.NewBackend(); err != nil {
					return nil, err
				}
				if jobDeclarations, err = jobExecutor.ScanDeclarations(); err != nil {
					return nil, err
				}
			}
			testCase := newInvariantTestCase(declarations.TestContractName, invariantName, f.config.Fuzzing.ShowSolidity)
			f.testCases = append(f.testCases, testCase)
			jobs = append(jobs, &testJob{
				executor:     jobExecutor,
				declarations: jobDeclarations,
				testCase:     testCase,
			})
		}
	}
	return jobs, nil
}

// Start begins the fuzzing campaign and blocks until every test concluded or the configured timeout expired.
// Returns an error for setup or backend faults only; failing test cases are reported through TestCases and the
// exit reporting, not as an error.
func (f *Fuzzer) Start() error {
	// Derive the campaign seed, falling back onto the clock when none is configured.
	seed := f.config.Fuzzing.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f.randomProvider = rand.New(rand.NewSource(seed))
	f.logger.Info("Starting fuzzing campaign with seed ", seed)

	if f.config.Fuzzing.Timeout > 0 {
		f.logger.Info("Campaign will run for ", f.config.Fuzzing.Timeout, " seconds")
		f.ctx, f.cancelFunc = context.WithTimeout(context.Background(), time.Duration(f.config.Fuzzing.Timeout)*time.Second)
	} else {
		f.ctx, f.cancelFunc = context.WithCancel(context.Background())
	}
	defer f.cancelFunc()

	if err := f.Events.FuzzerStarting.Publish(FuzzerStartingEvent{Fuzzer: f}); err != nil {
		return err
	}

	jobs, err := f.discoverJobs()
	if err == nil && len(jobs) == 0 {
		err = errors.New("no invariant tests were discovered across the registered test contracts")
	}

	if err == nil {
		workerCount := f.config.Fuzzing.Workers
		if workerCount > len(jobs) {
			workerCount = len(jobs)
		}
		jobQueue := make(chan *testJob, len(jobs))
		for _, job := range jobs {
			jobQueue <- job
		}
		close(jobQueue)

		// Distribute one test per worker slot; a worker picks up the next test when its campaign concludes.
		var wg sync.WaitGroup
		var errLock sync.Mutex
		for i := 0; i < workerCount; i++ {
			wg.Add(1)
			go func(workerIndex int) {
				defer wg.Done()
				for job := range jobQueue {
					worker := newFuzzerWorker(f, workerIndex, job.testCase, job.executor, job.declarations)
					f.metrics.WorkerStarted()
					if publishErr := f.Events.WorkerCreated.Publish(FuzzerWorkerCreatedEvent{Worker: worker}); publishErr != nil {
						f.logger.Error("A worker created event subscriber returned an error", publishErr)
					}
					if runErr := worker.run(f.ctx); runErr != nil {
						f.logger.Error("Test ", job.testCase.ID(), " aborted", runErr)
						errLock.Lock()
						if err == nil {
							err = runErr
						}
						errLock.Unlock()
					}
					if publishErr := f.Events.WorkerDestroyed.Publish(FuzzerWorkerDestroyedEvent{Worker: worker}); publishErr != nil {
						f.logger.Error("A worker destroyed event subscriber returned an error", publishErr)
					}
				}
			}(i)
		}
		wg.Wait()
	}

	if publishErr := f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: err}); publishErr != nil && err == nil {
		err = publishErr
	}
	if err != nil {
		f.logger.Error("Fuzzing campaign aborted", err)
	}
	f.printResults()
	return err
}

// printResults renders every test case's outcome, the campaign totals and, when enabled, the per-selector
// metrics tables.
func (f *Fuzzer) printResults() {
	f.logger.Info("Fuzzing campaign complete: ", f.metrics.SequencesTested(), " sequences, ", f.metrics.CallsTested(), " calls")
	for _, testCase := range f.testCases {
		f.logger.Info(testCase.LogMessage().Args()...)
		if invariantTestCase, ok := testCase.(*InvariantTestCase); ok && f.config.Fuzzing.ShowMetrics {
			f.logger.Info(colors.Bold, fmt.Sprintf("[Metrics] %s", invariantTestCase.ID()), colors.Reset)
			f.logger.Info(invariantTestCase.Metrics().Log().Args()...)
		}
	}

	passed := len(f.TestCasesWithStatus(TestCaseStatusPassed))
	failed := len(f.TestCasesWithStatus(TestCaseStatusFailed))
	f.logger.Info("Test summary: ", passed, " test(s) passed, ", failed, " test(s) failed")
}
