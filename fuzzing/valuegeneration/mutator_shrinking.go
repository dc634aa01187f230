package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
)

// ShrinkingValueMutator represents a ValueMutator used to shrink function inputs and call arguments toward their
// canonical minima during counterexample minimization.
type ShrinkingValueMutator struct {
	// config describes the configuration defining value mutation parameters.
	config *ShrinkingValueMutatorConfig

	// valueSet contains a set of values which the mutator may use to aid in value mutation operations.
	valueSet *ValueSet

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// ShrinkingValueMutatorConfig defines the operating parameters for a ShrinkingValueMutator.
type ShrinkingValueMutatorConfig struct {
	// ShrinkValueProbability is the probability that any shrinkable value will be shrunk/mutated when a mutation
	// method is invoked.
	ShrinkValueProbability float32
}

// NewShrinkingValueMutator creates a new ShrinkingValueMutator using a ValueSet to seed base values for mutation.
func NewShrinkingValueMutator(config *ShrinkingValueMutatorConfig, valueSet *ValueSet, randomProvider *rand.Rand) *ShrinkingValueMutator {
	mutator := &ShrinkingValueMutator{
		config:         config,
		valueSet:       valueSet,
		randomProvider: randomProvider,
	}

	// Ensure some initial values this mutator will depend on for basic mutations to the set.
	mutator.valueSet.AddInteger(big.NewInt(0))
	mutator.valueSet.AddInteger(big.NewInt(1))
	mutator.valueSet.AddInteger(big.NewInt(2))
	return mutator
}

// MutateAddress takes an address input and sometimes returns a shrunk value based off the input. Shrinking an
// address substitutes a known dictionary address, preferring the zero address.
func (g *ShrinkingValueMutator) MutateAddress(addr common.Address) common.Address {
	randomGeneratorDecision := g.randomProvider.Float32()
	if randomGeneratorDecision < g.config.ShrinkValueProbability {
		return common.Address{}
	}
	return addr
}

// MutateBool takes a boolean input and returns a shrunk value based off the input.
func (g *ShrinkingValueMutator) MutateBool(bl bool) bool {
	// Always return false
	return false
}

// MutateFixedBytes takes a fixed-sized byte array input and returns a mutated value based off the input.
// This type is not mutated by the ShrinkingValueMutator, as its length is part of its type.
func (g *ShrinkingValueMutator) MutateFixedBytes(b []byte) []byte {
	return b
}

// bytesShrinkingMethods define methods which take an initial bytes and transform the input. The transformed input
// is returned.
var bytesShrinkingMethods = []func(*ShrinkingValueMutator, []byte) []byte{
	// Replace a random index with a zero byte
	func(g *ShrinkingValueMutator, b []byte) []byte {
		if len(b) > 0 {
			b[g.randomProvider.Intn(len(b))] = 0
		}
		return b
	},
	// Remove a random byte
	func(g *ShrinkingValueMutator, b []byte) []byte {
		// If we have no bytes to remove, do nothing.
		if len(b) == 0 {
			return b
		}

		i := g.randomProvider.Intn(len(b))
		return append(b[:i], b[i+1:]...)
	},
}

// MutateBytes takes a dynamic-sized byte array input and returns a shrunk value based off the input.
func (g *ShrinkingValueMutator) MutateBytes(b []byte) []byte {
	randomGeneratorDecision := g.randomProvider.Float32()
	if randomGeneratorDecision < g.config.ShrinkValueProbability {
		input := bytesShrinkingMethods[g.randomProvider.Intn(len(bytesShrinkingMethods))](g, b)
		return input
	}
	return b
}

// MutateInteger takes an integer input and applies optional shrinking mutations to the provided value, moving it
// toward zero. Returns an optionally mutated copy of the input.
func (g *ShrinkingValueMutator) MutateInteger(i *big.Int, signed bool, bitLength int) *big.Int {
	// If the integer is zero, we can simply return it as-is.
	if i.Sign() == 0 {
		return i
	}

	// For unsigned integers or positive signed integers, generate a new integer between [0, i)
	if !signed || i.Sign() > 0 {
		return big.NewInt(0).Rand(g.randomProvider, i)
	}

	// For negative numbers, generate between (i, 0]
	// First get the absolute value and generate a random number between [0, abs(i))
	offset := big.NewInt(0).Rand(g.randomProvider, big.NewInt(0).Abs(i))
	offset.Add(offset, big.NewInt(1))

	// Add it to the original value to reach the range (i, 0]
	return big.NewInt(0).Add(i, offset)
}

// stringShrinkingMethods define methods which take an initial string and transform the input. The transformed
// input is returned.
var stringShrinkingMethods = []func(*ShrinkingValueMutator, string) string{
	// Replace a random index with a NULL char
	func(g *ShrinkingValueMutator, s string) string {
		r := []rune(s)
		if len(r) == 0 {
			return string(r)
		}

		r[g.randomProvider.Intn(len(r))] = 0
		return string(r)
	},
	// Remove a random character
	func(g *ShrinkingValueMutator, s string) string {
		// If we have no characters to remove, do nothing
		if len(s) == 0 {
			return s
		}

		i := g.randomProvider.Intn(len(s))
		return s[:i] + s[i+1:]
	},
}

// MutateString takes a string input and returns a shrunk value based off the input.
func (g *ShrinkingValueMutator) MutateString(s string) string {
	randomGeneratorDecision := g.randomProvider.Float32()
	if randomGeneratorDecision < g.config.ShrinkValueProbability {
		input := stringShrinkingMethods[g.randomProvider.Intn(len(stringShrinkingMethods))](g, s)
		return input
	}
	return s
}
