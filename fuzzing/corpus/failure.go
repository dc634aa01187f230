package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/targeting"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Failure reason kinds persisted alongside a counterexample.
const (
	// FailureKindInvariantViolation indicates an invariant method returned false or reverted.
	FailureKindInvariantViolation = "invariant_violation"
	// FailureKindHandlerRevert indicates a handler call reverted while fail-on-revert was enabled.
	FailureKindHandlerRevert = "handler_revert"
	// FailureKindAssumeRejectionsExceeded indicates a sequence exceeded its assume rejection budget.
	FailureKindAssumeRejectionsExceeded = "assume_rejections_exceeded"
)

// FailureReason describes why a persisted call sequence was recorded as a failure.
type FailureReason struct {
	// Kind describes which failure policy tripped, one of the FailureKind constants.
	Kind string `json:"kind"`

	// Name describes the invariant name or canonical method name the failure is attributed to.
	Name string `json:"name"`

	// Message describes the human-readable failure detail, such as a revert reason.
	Message string `json:"message"`
}

// Equal reports whether two failure reasons describe the same failure, including the message, so shrinking
// rejects candidate sequences which fail for a different reason than the original.
func (r FailureReason) Equal(other FailureReason) bool {
	return r.Kind == other.Kind && r.Name == other.Name && r.Message == other.Message
}

// Failure describes a counterexample loaded from the failure store.
type Failure struct {
	// Sequence describes the failing call sequence, resolved against the current universe.
	Sequence calls.CallSequence

	// Reason describes why the sequence was recorded as a failure.
	Reason FailureReason

	// Stale indicates the bytecode of at least one contract in the sequence changed since the failure was
	// recorded, so a replay no longer exercises the code that failed.
	Stale bool
}

// persistedFailure describes the JSON model of a recorded counterexample.
type persistedFailure struct {
	// Reason describes why the sequence was recorded as a failure.
	Reason FailureReason `json:"reason"`

	// Sequence describes the failing call sequence.
	Sequence persistedSequence `json:"sequence"`

	// BytecodeHashes maps the hex address of each contract called by the sequence to the hex hash of its
	// deployed bytecode at the time of recording.
	BytecodeHashes map[string]string `json:"bytecodeHashes"`
}

// FailureStore manages the single persisted counterexample slot of an invariant test, located at
// ⟨failuresRoot⟩/⟨contractName⟩/⟨testName⟩.json. A new failure overwrites the previous one.
type FailureStore struct {
	// logger describes the logger used to report unresolvable persisted failures.
	logger *logging.Logger

	// filePath describes the path of the failure slot, or an empty string when the store is disabled.
	filePath string
}

// NewFailureStore creates a failure store for the given test. Providing an empty failuresRoot yields a disabled
// store which performs no I/O.
func NewFailureStore(failuresRoot string, contractName string, testName string, logger *logging.Logger) (*FailureStore, error) {
	if failuresRoot == "" {
		return &FailureStore{logger: logger}, nil
	}
	dir := filepath.Join(failuresRoot, contractName)
	if err := utils.MakeDirectory(dir); err != nil {
		return nil, errors.Wrap(err, "could not create failure directory")
	}
	return &FailureStore{
		logger:   logger,
		filePath: filepath.Join(dir, testName+".json"),
	}, nil
}

// Disabled reports whether this store was created without a failure directory and performs no I/O.
func (s *FailureStore) Disabled() bool {
	return s.filePath == ""
}

// Load reads the persisted counterexample, if one exists, and resolves it against the current universe. Staleness
// is determined by comparing each recorded bytecode hash against the backend's current deployment. Returns nil
// when no failure is recorded or the recorded one no longer resolves.
func (s *FailureStore) Load(universe *targeting.Universe, executor backend.Backend) (*Failure, error) {
	if s.Disabled() {
		return nil, nil
	}
	b, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "could not read persisted failure")
	}

	var persisted persistedFailure
	if err = json.Unmarshal(b, &persisted); err != nil {
		return nil, errors.Wrap(err, "could not parse persisted failure")
	}

	sequence, err := resolvePersistedSequence(universe, persisted.Sequence)
	if err != nil {
		s.logger.Warn("Ignoring persisted failure which no longer resolves: ", err.Error())
		return nil, nil
	}

	failure := &Failure{
		Sequence: sequence,
		Reason:   persisted.Reason,
	}
	for addrHex, hashHex := range persisted.BytecodeHashes {
		currentHash, hashErr := executor.BytecodeHash(common.HexToAddress(addrHex))
		if hashErr != nil || currentHash != common.HexToHash(hashHex) {
			failure.Stale = true
			break
		}
	}
	return failure, nil
}

// Save records the provided counterexample, overwriting any previous one. Bytecode hashes are captured for every
// contract the sequence calls so later runs can detect staleness. Returns an IOError on persistence failure;
// callers report it without aborting the campaign.
func (s *FailureStore) Save(sequence calls.CallSequence, reason FailureReason, executor backend.Backend) error {
	if s.Disabled() {
		return nil
	}

	persisted := persistedFailure{
		Reason:         reason,
		BytecodeHashes: make(map[string]string),
	}
	var err error
	persisted.Sequence, err = encodePersistedSequence(sequence)
	if err != nil {
		return err
	}
	for _, element := range sequence {
		addr := element.Call.To
		if _, recorded := persisted.BytecodeHashes[addr.Hex()]; recorded {
			continue
		}
		hash, hashErr := executor.BytecodeHash(addr)
		if hashErr != nil {
			return hashErr
		}
		persisted.BytecodeHashes[addr.Hex()] = hash.Hex()
	}

	b, err := json.MarshalIndent(persisted, "", " ")
	if err != nil {
		return &IOError{Err: err}
	}
	if err = os.WriteFile(s.filePath, b, 0644); err != nil {
		return &IOError{Err: err}
	}
	return nil
}

// Clear removes the persisted counterexample, if any.
func (s *FailureStore) Clear() error {
	if s.Disabled() {
		return nil
	}
	if err := utils.DeleteFile(s.filePath); err != nil {
		return &IOError{Err: err}
	}
	return nil
}
