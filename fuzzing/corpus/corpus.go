// Package corpus persists interesting call sequences, scraped dictionary values and failing counterexamples
// across fuzzing campaigns.
package corpus

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/targeting"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FormatVersion is the semantic version of the on-disk corpus format. Entries written under a different major
// version are ignored on load.
const FormatVersion = "1.0.0"

// IOError wraps a corpus persistence failure. Persistence failures are reported to the user but never abort a
// fuzzing campaign or invalidate its results.
type IOError struct {
	// Err describes the underlying persistence failure.
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("corpus persistence failure: %v", e.Err)
}

// Unwrap returns the underlying persistence failure.
func (e *IOError) Unwrap() error {
	return e.Err
}

// corpusMetadata describes the contents of the corpus meta file.
type corpusMetadata struct {
	// Version describes the semantic version of the corpus format the directory was written with.
	Version string `json:"version"`
}

// persistedCall describes the JSON model of a single call within a persisted sequence.
type persistedCall struct {
	// From describes the hex-encoded sender address.
	From string `json:"from"`

	// Contract describes the name of the contract called.
	Contract string `json:"contract"`

	// Method describes the canonical signature of the method called.
	Method string `json:"method"`

	// Value describes the decimal-encoded ether value attached to the call.
	Value string `json:"value"`

	// Inputs describes the type-tagged encoded argument values.
	Inputs []map[string]any `json:"inputs"`
}

// persistedSequence describes the JSON model of a persisted call sequence.
type persistedSequence struct {
	// Calls describes the calls of the sequence, in execution order.
	Calls []persistedCall `json:"calls"`
}

// Store manages the on-disk corpus of a single invariant test: its call sequences and its persisted value
// dictionary. A Store created with an empty root path is disabled and performs no I/O.
type Store struct {
	// logger describes the logger used to report ignored or unresolvable corpus entries.
	logger *logging.Logger

	// path describes the directory this test's corpus lives in, or an empty string when disabled.
	path string

	// sequences manages the sequence files within the corpus directory.
	sequences *corpusDirectory[persistedSequence]

	// dictionary describes the persisted cross-run value dictionary, nil when the store is disabled.
	dictionary *ValueDictionary
}

// NewStore creates a corpus Store rooted at ⟨corpusRoot⟩/⟨contractName⟩/⟨testName⟩. Providing an empty corpusRoot
// yields a disabled store which performs no I/O.
func NewStore(corpusRoot string, contractName string, testName string, logger *logging.Logger) (*Store, error) {
	if corpusRoot == "" {
		return &Store{
			logger:    logger,
			path:      "",
			sequences: newCorpusDirectory[persistedSequence](""),
		}, nil
	}

	path := filepath.Join(corpusRoot, contractName, testName)
	if err := utils.MakeDirectory(path); err != nil {
		return nil, errors.Wrap(err, "could not create corpus directory")
	}

	store := &Store{
		logger:    logger,
		path:      path,
		sequences: newCorpusDirectory[persistedSequence](path),
	}

	// Check the format version gate before reading any entries.
	compatible, err := store.checkFormatVersion()
	if err != nil {
		return nil, err
	}
	if compatible {
		if err = store.sequences.readFiles("seq_*.json"); err != nil {
			return nil, errors.Wrap(err, "could not read corpus sequence files")
		}
	}

	// Open the persisted value dictionary alongside the sequences.
	store.dictionary, err = OpenValueDictionary(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// checkFormatVersion reads the corpus meta file and reports whether existing entries are compatible with the
// current format version. A missing meta file indicates a fresh corpus, which is compatible.
func (s *Store) checkFormatVersion() (bool, error) {
	metaPath := filepath.Join(s.path, "meta.json")
	b, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, errors.Wrap(err, "could not read corpus meta file")
	}

	var meta corpusMetadata
	if err = json.Unmarshal(b, &meta); err != nil {
		return false, errors.Wrap(err, "could not parse corpus meta file")
	}

	storedVersion, err := semver.NewVersion(meta.Version)
	if err != nil {
		return false, errors.Wrapf(err, "could not parse corpus format version %q", meta.Version)
	}
	currentVersion := semver.MustParse(FormatVersion)
	if storedVersion.Major() != currentVersion.Major() {
		s.logger.Warn("Ignoring existing corpus entries written with incompatible format version ", meta.Version)
		return false, nil
	}
	return true, nil
}

// Disabled reports whether this store was created without a corpus directory and performs no I/O.
func (s *Store) Disabled() bool {
	return s.path == ""
}

// SequenceCount returns the number of sequences currently held by the store.
func (s *Store) SequenceCount() int {
	return len(s.sequences.files)
}

// LoadSequences resolves every persisted sequence against the provided universe and returns the replayable call
// sequences. Sequences referencing contracts or methods no longer in the universe are skipped with a warning
// rather than failing the load.
func (s *Store) LoadSequences(universe *targeting.Universe) ([]calls.CallSequence, error) {
	loaded := make([]calls.CallSequence, 0, len(s.sequences.files))
	for _, file := range s.sequences.files {
		sequence, err := resolvePersistedSequence(universe, file.data)
		if err != nil {
			s.logger.Warn("Skipping corpus sequence ", file.fileName, ": ", err.Error())
			continue
		}
		loaded = append(loaded, sequence)
	}
	return loaded, nil
}

// resolvePersistedSequence resolves a single persisted sequence against the universe.
func resolvePersistedSequence(universe *targeting.Universe, persisted persistedSequence) (calls.CallSequence, error) {
	sequence := make(calls.CallSequence, 0, len(persisted.Calls))
	for _, persistedElement := range persisted.Calls {
		// Find the target contract and method in the current universe.
		var resolved *targeting.TargetMethod
		for i, targetMethod := range universe.Methods() {
			if targetMethod.Target.Contract.Name() == persistedElement.Contract && targetMethod.Method.Sig == persistedElement.Method {
				resolved = &universe.Methods()[i]
				break
			}
		}
		if resolved == nil {
			return nil, errors.Errorf("%s.%s is not in the current fuzzing universe", persistedElement.Contract, persistedElement.Method)
		}

		// Decode the argument values against the method's input definitions.
		inputValues, err := valuegeneration.AbiValuesFromMaps(resolved.Method.Inputs, persistedElement.Inputs)
		if err != nil {
			return nil, err
		}

		method := resolved.Method
		call := calls.NewCall(common.HexToAddress(persistedElement.From), resolved.Target.Address, resolved.Target.Contract, &method, inputValues, calls.ProvenanceFromCorpus)
		if persistedElement.Value != "" {
			value, parsed := new(big.Int).SetString(persistedElement.Value, 10)
			if !parsed {
				return nil, errors.Errorf("malformed call value %q", persistedElement.Value)
			}
			call.Value = value
		}
		sequence = append(sequence, calls.NewCallSequenceElement(call))
	}
	return sequence, nil
}

// encodePersistedSequence encodes a call sequence into its JSON persistence model.
func encodePersistedSequence(sequence calls.CallSequence) (persistedSequence, error) {
	persisted := persistedSequence{Calls: make([]persistedCall, 0, len(sequence))}
	for _, element := range sequence {
		inputs, err := valuegeneration.AbiValuesToMaps(element.Call.Method.Inputs, element.Call.InputValues)
		if err != nil {
			return persistedSequence{}, err
		}
		persisted.Calls = append(persisted.Calls, persistedCall{
			From:     element.Call.From.Hex(),
			Contract: element.Call.Contract.Name(),
			Method:   element.Call.Method.Sig,
			Value:    element.Call.Value.String(),
			Inputs:   inputs,
		})
	}
	return persisted, nil
}

// AddSequence encodes the provided call sequence and stages it for the next flush under a unique file name.
func (s *Store) AddSequence(sequence calls.CallSequence) error {
	persisted, err := encodePersistedSequence(sequence)
	if err != nil {
		return err
	}
	return s.sequences.addFile(fmt.Sprintf("seq_%s.json", uuid.New().String()), persisted)
}

// SeedValueSet loads the persisted value dictionary into the provided value set, if the store is enabled.
func (s *Store) SeedValueSet(valueSet *valuegeneration.ValueSet) error {
	if s.dictionary == nil {
		return nil
	}
	return s.dictionary.SeedValueSet(valueSet)
}

// Flush writes all staged sequences, the corpus meta file and the provided value set's dictionary entries to
// disk. Returns an IOError if persistence failed; callers report it without aborting the campaign.
func (s *Store) Flush(valueSet *valuegeneration.ValueSet) error {
	if s.Disabled() {
		return nil
	}

	if err := s.sequences.writeFiles(); err != nil {
		return &IOError{Err: err}
	}

	metaData, err := json.MarshalIndent(corpusMetadata{Version: FormatVersion}, "", " ")
	if err != nil {
		return &IOError{Err: err}
	}
	if err = os.WriteFile(filepath.Join(s.path, "meta.json"), metaData, 0644); err != nil {
		return &IOError{Err: err}
	}

	if valueSet != nil && s.dictionary != nil {
		if err = s.dictionary.SaveValueSet(valueSet); err != nil {
			return &IOError{Err: err}
		}
	}
	return nil
}

// Close releases the store's resources, closing the value dictionary database if one is open.
func (s *Store) Close() error {
	if s.dictionary == nil {
		return nil
	}
	return s.dictionary.Close()
}
