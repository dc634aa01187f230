package config

import (
	"encoding/json"
	"os"

	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the project-level configuration consumed by the fuzzer.
type ProjectConfig struct {
	// Fuzzing describes the configuration used in fuzzing campaigns.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the configuration options used by the fuzzing.Fuzzer.
type FuzzingConfig struct {
	// Workers describes the amount of threads to use in fuzzing campaigns. Independent tests are distributed
	// across workers; a single test always runs sequentially.
	Workers int `json:"workers"`

	// Runs describes how many call sequences will be executed per invariant test.
	Runs int `json:"runs"`

	// Depth describes the maximum number of calls a generated call sequence can contain.
	Depth int `json:"depth"`

	// Seed describes the seed for the campaign's deterministic random providers. A zero value indicates the seed
	// should be derived from the current time.
	Seed int64 `json:"seed"`

	// Timeout describes a time in seconds after which a test's campaign concludes as a success with partial run
	// counts. Providing a zero value will result in no timeout.
	Timeout int `json:"timeout"`

	// FailOnRevert describes whether a handler revert should fail the run rather than be counted and continued
	// past.
	FailOnRevert bool `json:"failOnRevert"`

	// MaxAssumeRejects describes the number of assume-rejected calls tolerated within a single run before the run
	// fails. This number must be non-negative.
	MaxAssumeRejects int `json:"maxAssumeRejects"`

	// ShrinkRunLimit describes the maximum number of sequence replays the shrinker may spend minimizing a failing
	// sequence. A zero value disables shrinking.
	ShrinkRunLimit int `json:"shrinkRunLimit"`

	// ShowMetrics describes whether the per-selector call/revert/discard table is rendered when a campaign ends.
	ShowMetrics bool `json:"showMetrics"`

	// ShowSolidity describes whether counterexamples are rendered as replayable Solidity call statements instead
	// of the structured form.
	ShowSolidity bool `json:"showSolidity"`

	// CorpusDirectory describes the name of the folder that will hold corpus sequences and the persisted value
	// dictionary. If empty, corpus persistence is disabled.
	CorpusDirectory string `json:"corpusDirectory"`

	// FailureDirectory describes the name of the folder that will hold persisted failures for replay on the next
	// run. If empty, failure persistence is disabled.
	FailureDirectory string `json:"failureDirectory"`

	// SenderAddresses describe a set of account addresses to be used to send calls in fuzzing campaigns when the
	// test contract does not declare its own senders. If empty, built-in defaults are used.
	SenderAddresses []string `json:"senderAddresses"`

	// ValueGeneration describes the configuration used for argument value generation.
	ValueGeneration ValueGenerationConfig `json:"valueGeneration"`
}

// ValueGenerationConfig describes the biases and bounds used for argument value generation.
type ValueGenerationConfig struct {
	// RandomAddressBias describes the probability an address argument is generated randomly rather than selected
	// from the dictionary.
	RandomAddressBias float32 `json:"randomAddressBias"`

	// RandomIntegerBias describes the probability an integer argument is generated randomly rather than mutated
	// from the dictionary.
	RandomIntegerBias float32 `json:"randomIntegerBias"`

	// RandomStringBias describes the probability a string argument is generated randomly rather than mutated from
	// the dictionary.
	RandomStringBias float32 `json:"randomStringBias"`

	// RandomBytesBias describes the probability a bytes argument is generated randomly rather than mutated from
	// the dictionary.
	RandomBytesBias float32 `json:"randomBytesBias"`

	// FixtureBias describes the probability a fixture candidate is used for a parameter which declares fixtures.
	FixtureBias float32 `json:"fixtureBias"`

	// MaxArrayLength describes the maximum length generated for dynamic arrays.
	MaxArrayLength int `json:"maxArrayLength"`

	// MaxBytesLength describes the maximum length generated for dynamic byte arrays.
	MaxBytesLength int `json:"maxBytesLength"`

	// MaxStringLength describes the maximum length generated for strings.
	MaxStringLength int `json:"maxStringLength"`
}

// LoggingConfig describes the configuration options used for logging.
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or
	// discarded. Increasing level values represent more severe logs.
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log files will be written. If the string is empty,
	// then no log files are kept.
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether ANSI coloring should be disabled in console output.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration on top of the defaults, so omitted keys keep their default values.
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify the worker count is a positive number.
	if p.Fuzzing.Workers <= 0 {
		return errors.Errorf("fuzzer worker count must be a positive number")
	}

	// Verify the run count and sequence depth are positive numbers.
	if p.Fuzzing.Runs <= 0 {
		return errors.Errorf("run count must be a positive number")
	}
	if p.Fuzzing.Depth <= 0 {
		return errors.Errorf("sequence depth must be a positive number")
	}

	// Verify the budgets are non-negative.
	if p.Fuzzing.MaxAssumeRejects < 0 {
		return errors.Errorf("max assume rejects cannot be negative")
	}
	if p.Fuzzing.ShrinkRunLimit < 0 {
		return errors.Errorf("shrink run limit cannot be negative")
	}
	if p.Fuzzing.Timeout < 0 {
		return errors.Errorf("timeout cannot be negative")
	}

	// Verify that senders are well-formed addresses
	if _, err := utils.HexStringsToAddresses(p.Fuzzing.SenderAddresses); err != nil {
		return errors.Errorf("malformed sender address(es)")
	}

	// Verify value generation bounds.
	if p.Fuzzing.ValueGeneration.MaxArrayLength <= 0 || p.Fuzzing.ValueGeneration.MaxBytesLength <= 0 || p.Fuzzing.ValueGeneration.MaxStringLength <= 0 {
		return errors.Errorf("value generation maximum lengths must be positive numbers")
	}
	return nil
}
