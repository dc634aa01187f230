package fuzzing

import (
	"context"
	"math/big"
	"math/rand"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/corpus"
	"github.com/charybdis-fuzz/charybdis/fuzzing/targeting"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
)

// afterInvariantHookName is the name failures raised by the afterInvariant hook are attributed to.
const afterInvariantHookName = "afterInvariant"

// FuzzerWorker runs the entire campaign of a single invariant test: universe resolution, sequence generation and
// execution, invariant checking, shrinking and persistence. A worker owns its backend, dictionary and random
// provider exclusively, so no locking occurs on the hot path.
type FuzzerWorker struct {
	// fuzzer describes the Fuzzer this worker runs a test for.
	fuzzer *Fuzzer

	// workerIndex describes the index the worker was spawned with.
	workerIndex int

	// testCase describes the invariant test this worker runs.
	testCase *InvariantTestCase

	// executor describes the execution backend owning the test's persistent simulated state.
	executor backend.Backend

	// declarations describes the capability declarations scanned from the test contract.
	declarations *backend.Declarations

	// universe describes the resolved set of contracts, methods and senders calls are sampled from.
	universe *targeting.Universe

	// valueSet describes the campaign dictionary, grown by scraping call results.
	valueSet *valuegeneration.ValueSet

	// valueGenerator generates argument values during sequence generation.
	valueGenerator valuegeneration.ValueGenerator

	// shrinkingMutator simplifies argument values during shrinking.
	shrinkingMutator valuegeneration.ValueMutator

	// sequenceGenerator produces the calls executed during fresh runs.
	sequenceGenerator *CallSequenceGenerator

	// corpusStore persists interesting sequences and the value dictionary for this test.
	corpusStore *corpus.Store

	// failureStore persists the latest failing sequence for replay on the next invocation.
	failureStore *corpus.FailureStore

	// pendingCorpusSequences holds loaded corpus sequences not yet replayed; they are consumed before random
	// generation begins.
	pendingCorpusSequences []calls.CallSequence

	// corpusHashes tracks the hashes of sequences already present in the corpus to avoid duplicates.
	corpusHashes map[common.Hash]struct{}

	// setupSnapshot describes the backend state snapshot taken after setup, restored between runs and before
	// every shrink replay.
	setupSnapshot backend.StateID

	// randomProvider describes the worker's deterministic source of random data, forked from the Fuzzer's.
	randomProvider *rand.Rand

	// logger describes the worker's sub-logger.
	logger *logging.Logger
}

// newFuzzerWorker creates a worker for the provided invariant test.
func newFuzzerWorker(fuzzer *Fuzzer, workerIndex int, testCase *InvariantTestCase, executor backend.Backend, declarations *backend.Declarations) *FuzzerWorker {
	return &FuzzerWorker{
		fuzzer:       fuzzer,
		workerIndex:  workerIndex,
		testCase:     testCase,
		executor:     executor,
		declarations: declarations,
		corpusHashes: make(map[common.Hash]struct{}),
		logger:       fuzzer.logger.NewSubLogger("test", testCase.ID()),
	}
}

// Fuzzer returns the Fuzzer this worker runs a test for.
func (fw *FuzzerWorker) Fuzzer() *Fuzzer {
	return fw.fuzzer
}

// TestCase returns the invariant test this worker runs.
func (fw *FuzzerWorker) TestCase() *InvariantTestCase {
	return fw.testCase
}

// WorkerIndex returns the index the worker was spawned with.
func (fw *FuzzerWorker) WorkerIndex() int {
	return fw.workerIndex
}

// setup resolves the universe, seeds the dictionary and constructs the worker's generation components. Returns a
// setup error if the test cannot be fuzzed at all.
func (fw *FuzzerWorker) setup() error {
	fuzzingConfig := fw.fuzzer.config.Fuzzing

	configSenders, err := utils.HexStringsToAddresses(fuzzingConfig.SenderAddresses)
	if err != nil {
		return err
	}
	fw.universe, err = targeting.Resolve(fw.executor.Deployments(), fw.declarations, configSenders)
	if err != nil {
		return err
	}

	// Seed the dictionary with the universe's addresses and the declared fixture literals, then layer the
	// persisted dictionary from prior invocations on top.
	fw.randomProvider = fw.fuzzer.forkRandomProvider()
	fw.valueSet = valuegeneration.NewValueSet()
	for _, sender := range fw.universe.Senders {
		fw.valueSet.AddAddress(sender)
	}
	for _, target := range fw.universe.Targets {
		fw.valueSet.AddAddress(target.Address)
	}
	fixtures := valuegeneration.NewFixtureMap(fw.declarations.Fixtures)
	for _, candidates := range fixtures {
		for _, candidate := range candidates {
			fw.seedValueSetWithFixture(candidate)
		}
	}

	fw.corpusStore, err = corpus.NewStore(fuzzingConfig.CorpusDirectory, fw.declarations.TestContractName, fw.testCase.InvariantName(), fw.logger)
	if err != nil {
		return err
	}
	fw.failureStore, err = corpus.NewFailureStore(fuzzingConfig.FailureDirectory, fw.declarations.TestContractName, fw.testCase.InvariantName(), fw.logger)
	if err != nil {
		return err
	}
	if err = fw.corpusStore.SeedValueSet(fw.valueSet); err != nil {
		return err
	}

	fw.valueGenerator, err = fw.fuzzer.Hooks.NewValueGeneratorFunc(fw.fuzzer, fw.valueSet, fw.randomProvider)
	if err != nil {
		return err
	}
	fw.shrinkingMutator, err = fw.fuzzer.Hooks.NewShrinkingValueMutatorFunc(fw.fuzzer, fw.valueSet, fw.randomProvider)
	if err != nil {
		return err
	}
	fw.sequenceGenerator = NewCallSequenceGenerator(fw.universe, fixtures, fw.valueGenerator, fuzzingConfig.ValueGeneration.FixtureBias, fw.randomProvider)

	fw.pendingCorpusSequences, err = fw.corpusStore.LoadSequences(fw.universe)
	if err != nil {
		return err
	}
	for _, sequence := range fw.pendingCorpusSequences {
		if hash, hashErr := sequence.Hash(); hashErr == nil {
			fw.corpusHashes[hash] = struct{}{}
		}
	}
	return nil
}

// seedValueSetWithFixture adds one decoded fixture literal to the dictionary, keyed by its Go representation.
func (fw *FuzzerWorker) seedValueSetWithFixture(candidate any) {
	switch v := candidate.(type) {
	case common.Address:
		fw.valueSet.AddAddress(v)
	case *big.Int:
		fw.valueSet.AddInteger(v)
	case uint8:
		fw.valueSet.AddInteger(new(big.Int).SetUint64(uint64(v)))
	case uint16:
		fw.valueSet.AddInteger(new(big.Int).SetUint64(uint64(v)))
	case uint32:
		fw.valueSet.AddInteger(new(big.Int).SetUint64(uint64(v)))
	case uint64:
		fw.valueSet.AddInteger(new(big.Int).SetUint64(v))
	case int8:
		fw.valueSet.AddInteger(big.NewInt(int64(v)))
	case int16:
		fw.valueSet.AddInteger(big.NewInt(int64(v)))
	case int32:
		fw.valueSet.AddInteger(big.NewInt(int64(v)))
	case int64:
		fw.valueSet.AddInteger(big.NewInt(v))
	case string:
		fw.valueSet.AddString(v)
	case []byte:
		fw.valueSet.AddBytes(v)
	}
}

// fetchFromSequence returns a fetch function replaying the calls of an existing sequence in order.
func fetchFromSequence(sequence calls.CallSequence) func() (*calls.Call, error) {
	next := 0
	return func() (*calls.Call, error) {
		if next >= len(sequence) {
			return nil, nil
		}
		call := sequence[next].Call
		next++
		return call, nil
	}
}

// executeSequence executes calls obtained from the provided fetch function against the backend's current state,
// applying the assume, revert and invariant policies after each call, until maxCalls calls were performed, fetch
// is exhausted, a failure occurs, or (when record is set) the campaign context expires. When record is set,
// metrics and dictionary scraping are updated for every attempted call.
//
// Returns the executed sequence with observed results, the failure reason which halted it (nil if none), and any
// backend-level error.
func (fw *FuzzerWorker) executeSequence(ctx context.Context, fetch func() (*calls.Call, error), maxCalls int, record bool) (calls.CallSequence, *corpus.FailureReason, error) {
	fuzzingConfig := fw.fuzzer.config.Fuzzing
	sequence := make(calls.CallSequence, 0, maxCalls)
	assumeRejects := 0
	timedOut := false

	for performed := 0; performed < maxCalls; {
		// The timeout is cooperative and only observed between calls, never interrupting one in flight.
		if record && utils.CheckContextDone(ctx) {
			timedOut = true
			break
		}

		call, err := fetch()
		if err != nil {
			return sequence, nil, err
		}
		if call == nil {
			break
		}
		msg, err := call.ToMessage()
		if err != nil {
			return sequence, nil, err
		}
		result, err := fw.executor.ExecuteCall(msg)
		if err != nil {
			return sequence, nil, err
		}
		canonicalName := call.CanonicalMethodName()

		// An assume-rejected call is discarded: it does not join the sequence or consume a depth slot, but the
		// per-run rejection budget bounds how often this may happen.
		if result.AssumeRejected {
			if record {
				fw.testCase.Metrics().RecordDiscard(canonicalName)
			}
			assumeRejects++
			if assumeRejects >= fuzzingConfig.MaxAssumeRejects {
				return sequence, &corpus.FailureReason{
					Kind: corpus.FailureKindAssumeRejectionsExceeded,
					Name: canonicalName,
				}, nil
			}
			continue
		}

		element := calls.NewCallSequenceElement(call)
		element.Result = result
		sequence = append(sequence, element)
		performed++

		if record {
			fw.testCase.Metrics().RecordCall(canonicalName, result.Reverted)
			for _, subCall := range result.SubCalls {
				fw.testCase.Metrics().RecordCall(subCall.ContractName+"."+subCall.MethodSignature, subCall.Reverted)
			}
			fw.valueSet.AddCallResultValues(call.Method, result)
		}

		if result.Reverted && fuzzingConfig.FailOnRevert {
			return sequence, &corpus.FailureReason{
				Kind:    corpus.FailureKindHandlerRevert,
				Name:    canonicalName,
				Message: result.RevertReason,
			}, nil
		}

		invariantResult, err := fw.executor.EvaluateInvariant(fw.testCase.InvariantName())
		if err != nil {
			return sequence, nil, err
		}
		if !invariantResult.Holds {
			return sequence, &corpus.FailureReason{
				Kind:    corpus.FailureKindInvariantViolation,
				Name:    fw.testCase.InvariantName(),
				Message: invariantResult.Message,
			}, nil
		}
	}

	// The hook runs at the end of a completed sequence and may itself fail the run. A timed out run is a success
	// path, so the hook is skipped there.
	if fw.declarations.HasAfterInvariant && !timedOut {
		hookResult, err := fw.executor.AfterInvariant()
		if err != nil {
			return sequence, nil, err
		}
		if !hookResult.Holds {
			return sequence, &corpus.FailureReason{
				Kind:    corpus.FailureKindInvariantViolation,
				Name:    afterInvariantHookName,
				Message: hookResult.Message,
			}, nil
		}
	}
	return sequence, nil, nil
}

// replayPersistedFailure loads any stored counterexample and replays it verbatim against the setup snapshot.
// Returns true if the failure reproduced and the test case was failed, so no new campaign runs are needed. Stale
// or non-reproducing failures are discarded with a warning.
func (fw *FuzzerWorker) replayPersistedFailure(ctx context.Context) (bool, error) {
	failure, err := fw.failureStore.Load(fw.universe, fw.executor)
	if err != nil || failure == nil {
		return false, err
	}
	if failure.Stale {
		fw.logger.Warn("Discarding persisted failure: contract bytecode changed since it was recorded")
		return false, nil
	}

	if err = fw.executor.Restore(fw.setupSnapshot); err != nil {
		return false, err
	}
	observed, reason, err := fw.executeSequence(ctx, fetchFromSequence(failure.Sequence), len(failure.Sequence), false)
	if err != nil {
		return false, err
	}
	if reason == nil || !reason.Equal(failure.Reason) {
		fw.logger.Warn("Persisted failure no longer reproduces, resuming normal fuzzing")
		return false, nil
	}

	fw.testCase.markFailed(&Counterexample{
		Original: observed,
		Shrunk:   observed,
		Reason:   *reason,
	})
	return true, nil
}

// run drives the whole campaign of the worker's test. Test outcomes are recorded on the test case; a returned
// error indicates a setup or backend fault rather than a test failure.
func (fw *FuzzerWorker) run(ctx context.Context) error {
	fuzzingConfig := fw.fuzzer.config.Fuzzing
	if err := fw.setup(); err != nil {
		return err
	}
	fw.testCase.markRunning()
	defer fw.conclude()

	// The invariant must hold over the setup state before any calls are generated.
	initialResult, err := fw.executor.EvaluateInvariant(fw.testCase.InvariantName())
	if err != nil {
		return err
	}
	if !initialResult.Holds {
		fw.testCase.markFailed(&Counterexample{
			Original: calls.CallSequence{},
			Shrunk:   calls.CallSequence{},
			Reason: corpus.FailureReason{
				Kind:    corpus.FailureKindInvariantViolation,
				Name:    fw.testCase.InvariantName(),
				Message: initialResult.Message,
			},
		})
		return nil
	}

	fw.setupSnapshot, err = fw.executor.Snapshot()
	if err != nil {
		return err
	}

	// A matching persisted failure fast-fails the test without running new campaigns.
	reproduced, err := fw.replayPersistedFailure(ctx)
	if err != nil || reproduced {
		return err
	}

	for runIndex := 0; runIndex < fuzzingConfig.Runs; runIndex++ {
		if utils.CheckContextDone(ctx) {
			break
		}
		if err = fw.executor.Restore(fw.setupSnapshot); err != nil {
			return err
		}
		fw.testCase.Metrics().Runs++

		// Loaded corpus sequences are replayed verbatim before random generation begins.
		fetch := fw.sequenceGenerator.GenerateCall
		maxCalls := fuzzingConfig.Depth
		fromCorpus := false
		if len(fw.pendingCorpusSequences) > 0 {
			replaySequence := fw.pendingCorpusSequences[0]
			fw.pendingCorpusSequences = fw.pendingCorpusSequences[1:]
			fetch = fetchFromSequence(replaySequence)
			maxCalls = len(replaySequence)
			fromCorpus = true
		}

		dictionarySizeBefore := fw.valueSet.Size()
		sequence, failureReason, err := fw.executeSequence(ctx, fetch, maxCalls, true)
		if err != nil {
			// A backend fault is fatal to the current run only; state is restored before the next one.
			fw.logger.Warn("Run aborted by a backend fault", err)
			continue
		}
		if publishErr := fw.fuzzer.Events.CallSequenceTested.Publish(CallSequenceTestedEvent{Worker: fw, Sequence: sequence}); publishErr != nil {
			return publishErr
		}

		if failureReason != nil {
			shrunk, exhausted := fw.shrinkCallSequence(ctx, sequence, *failureReason)
			fw.testCase.markFailed(&Counterexample{
				Original:        sequence,
				Shrunk:          shrunk,
				Reason:          *failureReason,
				ShrinkExhausted: exhausted,
			})
			if saveErr := fw.failureStore.Save(shrunk, *failureReason, fw.executor); saveErr != nil {
				fw.logger.Warn("Could not persist the failing call sequence", saveErr)
			}
			return nil
		}

		// A run which scraped new dictionary values is considered interesting and joins the corpus.
		if !fromCorpus && fw.valueSet.Size() > dictionarySizeBefore && len(sequence) > 0 {
			fw.addSequenceToCorpus(sequence)
		}
	}

	fw.testCase.markPassed()
	return nil
}

// addSequenceToCorpus stages a sequence for corpus persistence unless an identical one is already present.
func (fw *FuzzerWorker) addSequenceToCorpus(sequence calls.CallSequence) {
	hash, err := sequence.Hash()
	if err != nil {
		return
	}
	if _, known := fw.corpusHashes[hash]; known {
		return
	}
	fw.corpusHashes[hash] = struct{}{}
	if err = fw.corpusStore.AddSequence(sequence); err != nil {
		fw.logger.Warn("Could not stage a call sequence for the corpus", err)
	}
}

// conclude flushes and closes the worker's persistence stores and folds its counters into the campaign
// aggregate.
func (fw *FuzzerWorker) conclude() {
	if fw.corpusStore != nil {
		if err := fw.corpusStore.Flush(fw.valueSet); err != nil {
			fw.logger.Warn("Could not flush the corpus to disk", err)
		}
		if err := fw.corpusStore.Close(); err != nil {
			fw.logger.Warn("Could not close the corpus value dictionary", err)
		}
	}
	fw.fuzzer.metrics.TestConcluded(fw.testCase.Metrics(), fw.testCase.Status() == TestCaseStatusFailed)
	if err := fw.fuzzer.Events.TestCaseFinished.Publish(TestCaseFinishedEvent{TestCase: fw.testCase}); err != nil {
		fw.logger.Error("A test case finished event subscriber returned an error", err)
	}
}
