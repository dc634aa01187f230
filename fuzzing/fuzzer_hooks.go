package fuzzing

import (
	"math/rand"

	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
)

// NewValueGeneratorFunc describes a function which constructs the argument value generator a worker uses during
// sequence generation. Implementors may substitute their own generation strategy.
type NewValueGeneratorFunc func(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (valuegeneration.ValueGenerator, error)

// NewShrinkingValueMutatorFunc describes a function which constructs the value mutator a worker uses during
// argument simplification while shrinking.
type NewShrinkingValueMutatorFunc func(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (valuegeneration.ValueMutator, error)

// FuzzerHooks defines the replaceable constructors a Fuzzer consults when building per-worker components.
type FuzzerHooks struct {
	// NewValueGeneratorFunc constructs the argument value generator used during sequence generation.
	NewValueGeneratorFunc NewValueGeneratorFunc

	// NewShrinkingValueMutatorFunc constructs the value mutator used during shrinking.
	NewShrinkingValueMutatorFunc NewShrinkingValueMutatorFunc
}

// defaultNewValueGeneratorFunc builds the dictionary-biased mutating generator from the project configuration.
func defaultNewValueGeneratorFunc(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (valuegeneration.ValueGenerator, error) {
	valueGenConfig := fuzzer.config.Fuzzing.ValueGeneration
	mutationGeneratorConfig := &valuegeneration.MutatingValueGeneratorConfig{
		MinMutationRounds:         0,
		MaxMutationRounds:         1,
		GenerateRandomAddressBias: valueGenConfig.RandomAddressBias,
		GenerateRandomIntegerBias: valueGenConfig.RandomIntegerBias,
		GenerateRandomStringBias:  valueGenConfig.RandomStringBias,
		GenerateRandomBytesBias:   valueGenConfig.RandomBytesBias,
		RandomValueGeneratorConfig: &valuegeneration.RandomValueGeneratorConfig{
			GenerateRandomArrayMinSize:  0,
			GenerateRandomArrayMaxSize:  valueGenConfig.MaxArrayLength,
			GenerateRandomBytesMinSize:  0,
			GenerateRandomBytesMaxSize:  valueGenConfig.MaxBytesLength,
			GenerateRandomStringMinSize: 0,
			GenerateRandomStringMaxSize: valueGenConfig.MaxStringLength,
		},
	}
	return valuegeneration.NewMutatingValueGenerator(mutationGeneratorConfig, valueSet, randomProvider), nil
}

// defaultNewShrinkingValueMutatorFunc builds the shrinking mutator used during argument simplification.
func defaultNewShrinkingValueMutatorFunc(fuzzer *Fuzzer, valueSet *valuegeneration.ValueSet, randomProvider *rand.Rand) (valuegeneration.ValueMutator, error) {
	shrinkingConfig := &valuegeneration.ShrinkingValueMutatorConfig{
		ShrinkValueProbability: 0.1,
	}
	return valuegeneration.NewShrinkingValueMutator(shrinkingConfig, valueSet, randomProvider), nil
}
