package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
)

// MutatingValueGenerator represents a ValueGenerator and ValueMutator which generates values by selecting and
// mutating entries from a ValueSet (the campaign dictionary), falling back onto purely random generation with a
// configurable bias.
type MutatingValueGenerator struct {
	// RandomValueGenerator is used for random value generation when a dictionary-based path is not taken.
	*RandomValueGenerator

	// config describes the configuration defining value generation and mutation parameters.
	config *MutatingValueGeneratorConfig

	// valueSet contains a set of values which the generator uses to aid in value generation and mutation operations.
	valueSet *ValueSet
}

// MutatingValueGeneratorConfig defines the operating parameters for a MutatingValueGenerator.
type MutatingValueGeneratorConfig struct {
	// MinMutationRounds describes the minimum number of mutations which should occur when mutating a value.
	MinMutationRounds int
	// MaxMutationRounds describes the maximum number of mutations which should occur when mutating a value.
	MaxMutationRounds int

	// GenerateRandomAddressBias describes the probability that an address will be generated randomly rather than
	// selected from the dictionary.
	GenerateRandomAddressBias float32
	// GenerateRandomIntegerBias describes the probability that an integer will be generated randomly rather than
	// mutated from the dictionary.
	GenerateRandomIntegerBias float32
	// GenerateRandomStringBias describes the probability that a string will be generated randomly rather than
	// mutated from the dictionary.
	GenerateRandomStringBias float32
	// GenerateRandomBytesBias describes the probability that a dynamic byte array will be generated randomly rather
	// than mutated from the dictionary.
	GenerateRandomBytesBias float32

	// RandomValueGeneratorConfig defines the parameters for the underlying random generation paths.
	*RandomValueGeneratorConfig
}

// NewMutatingValueGenerator creates a new MutatingValueGenerator using a ValueSet to seed base values for mutation.
func NewMutatingValueGenerator(config *MutatingValueGeneratorConfig, valueSet *ValueSet, randomProvider *rand.Rand) *MutatingValueGenerator {
	generator := &MutatingValueGenerator{
		RandomValueGenerator: NewRandomValueGenerator(config.RandomValueGeneratorConfig, randomProvider),
		config:               config,
		valueSet:             valueSet,
	}

	// Ensure the set carries basic values mutation methods depend on.
	generator.valueSet.AddInteger(big.NewInt(0))
	generator.valueSet.AddInteger(big.NewInt(1))
	generator.valueSet.AddInteger(big.NewInt(2))
	generator.valueSet.AddString("")
	generator.valueSet.AddBytes([]byte{})
	return generator
}

// getMutationParams takes a length of inputs and returns an initial input index to start with as a base value, as
// well as a random number of mutation rounds to perform.
func (g *MutatingValueGenerator) getMutationParams(inputsLen int) (int, int) {
	inputIdx := g.randomProvider.Intn(inputsLen)
	roundRange := g.config.MaxMutationRounds - g.config.MinMutationRounds + 1
	mutationCount := g.config.MinMutationRounds + g.randomProvider.Intn(roundRange)
	return inputIdx, mutationCount
}

// integerMutationMethods define methods which take a big integer and a set of inputs and transform the integer
// with a random input and operation. This is used in a loop to create mutated integer values.
var integerMutationMethods = []func(*MutatingValueGenerator, *big.Int, ...*big.Int) *big.Int{
	// Add a random input
	func(g *MutatingValueGenerator, x *big.Int, inputs ...*big.Int) *big.Int {
		return big.NewInt(0).Add(x, inputs[g.randomProvider.Intn(len(inputs))])
	},
	// Subtract a random input
	func(g *MutatingValueGenerator, x *big.Int, inputs ...*big.Int) *big.Int {
		return big.NewInt(0).Sub(x, inputs[g.randomProvider.Intn(len(inputs))])
	},
	// Multiply by a random input
	func(g *MutatingValueGenerator, x *big.Int, inputs ...*big.Int) *big.Int {
		return big.NewInt(0).Mul(x, inputs[g.randomProvider.Intn(len(inputs))])
	},
	// Divide by a random input (avoiding divide-by-zero)
	func(g *MutatingValueGenerator, x *big.Int, inputs ...*big.Int) *big.Int {
		divisor := inputs[g.randomProvider.Intn(len(inputs))]
		if divisor.Sign() == 0 {
			divisor = big.NewInt(1)
		}
		return big.NewInt(0).Div(x, divisor)
	},
	// Flip a random bit
	func(g *MutatingValueGenerator, x *big.Int, inputs ...*big.Int) *big.Int {
		bit := g.randomProvider.Intn(x.BitLen() + 1)
		return big.NewInt(0).Xor(x, big.NewInt(0).Lsh(big.NewInt(1), uint(bit)))
	},
}

// mutateIntegerInternal takes an integer input and returns a mutated value based off the input. If a nil input is
// provided, this method uses an existing dictionary value as the starting point for mutation.
func (g *MutatingValueGenerator) mutateIntegerInternal(i *big.Int, signed bool, bitLength int) *big.Int {
	// Calculate our integer bounds
	min, max := utils.GetIntegerConstraints(signed, bitLength)

	// Obtain our inputs, adding the type bounds to the list so mutation can reach them quickly.
	var inputs []*big.Int
	inputs = append(inputs, g.valueSet.Integers()...)
	if signed {
		inputs = append(inputs, min, max)
	} else {
		inputs = append(inputs, max)
	}

	// Determine which value we'll use as an initial input and how many mutations we will perform.
	inputIdx, mutationCount := g.getMutationParams(len(inputs))
	input := new(big.Int)
	if i != nil {
		input.Set(i)
	} else {
		input.Set(inputs[inputIdx])
	}
	input = utils.ConstrainIntegerToBounds(input, min, max)

	// Mutate for our desired number of rounds, correcting boundaries after each round.
	for j := 0; j < mutationCount; j++ {
		input = integerMutationMethods[g.randomProvider.Intn(len(integerMutationMethods))](g, input, inputs...)
		input = utils.ConstrainIntegerToBounds(input, min, max)
	}
	return input
}

// bytesMutationMethods define methods which take an initial bytes and a set of inputs to transform the input. The
// transformed input is returned. This is used in a loop to mutate byte slices.
var bytesMutationMethods = []func(*MutatingValueGenerator, []byte) []byte{
	// Replace a random index with a random byte
	func(g *MutatingValueGenerator, b []byte) []byte {
		if len(b) > 0 {
			b[g.randomProvider.Intn(len(b))] = byte(g.randomProvider.Uint32())
		}
		return b
	},
	// Insert a random byte at a random position
	func(g *MutatingValueGenerator, b []byte) []byte {
		i := g.randomProvider.Intn(len(b) + 1)
		b = append(b, 0)
		copy(b[i+1:], b[i:])
		b[i] = byte(g.randomProvider.Uint32())
		return b
	},
	// Remove a random byte
	func(g *MutatingValueGenerator, b []byte) []byte {
		if len(b) == 0 {
			return b
		}
		i := g.randomProvider.Intn(len(b))
		return append(b[:i], b[i+1:]...)
	},
	// Duplicate the slice onto itself
	func(g *MutatingValueGenerator, b []byte) []byte {
		return append(b, b...)
	},
}

// mutateBytesInternal takes a byte array and returns a mutated value based off the input. If a nil input is
// provided, this method uses an existing dictionary value as the starting point for mutation.
func (g *MutatingValueGenerator) mutateBytesInternal(b []byte) []byte {
	// Obtain our dictionary inputs and mutation parameters.
	inputs := g.valueSet.Bytes()
	inputIdx, mutationCount := g.getMutationParams(len(inputs))

	var input []byte
	if b != nil {
		input = append(input, b...)
	} else {
		input = append(input, inputs[inputIdx]...)
	}

	for i := 0; i < mutationCount; i++ {
		input = bytesMutationMethods[g.randomProvider.Intn(len(bytesMutationMethods))](g, input)
	}
	return input
}

// stringMutationMethods define methods which take an initial string and a set of inputs to transform the input.
// The transformed input is returned. This is used in a loop to mutate strings.
var stringMutationMethods = []func(*MutatingValueGenerator, string) string{
	// Replace a random index with a random printable character
	func(g *MutatingValueGenerator, s string) string {
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		r[g.randomProvider.Intn(len(r))] = rune(32 + (g.randomProvider.Uint32() % 95))
		return string(r)
	},
	// Insert a random printable character at a random position
	func(g *MutatingValueGenerator, s string) string {
		i := g.randomProvider.Intn(len(s) + 1)
		return s[:i] + string(rune(32+(g.randomProvider.Uint32()%95))) + s[i:]
	},
	// Remove a random character
	func(g *MutatingValueGenerator, s string) string {
		if len(s) == 0 {
			return s
		}
		i := g.randomProvider.Intn(len(s))
		return s[:i] + s[i+1:]
	},
	// Duplicate the string onto itself
	func(g *MutatingValueGenerator, s string) string {
		return s + s
	},
}

// mutateStringInternal takes a string and returns a mutated value based off the input. If a nil input is provided,
// this method uses an existing dictionary value as the starting point for mutation.
func (g *MutatingValueGenerator) mutateStringInternal(s *string) string {
	inputs := g.valueSet.Strings()
	inputIdx, mutationCount := g.getMutationParams(len(inputs))

	var input string
	if s != nil {
		input = *s
	} else {
		input = inputs[inputIdx]
	}

	for i := 0; i < mutationCount; i++ {
		input = stringMutationMethods[g.randomProvider.Intn(len(stringMutationMethods))](g, input)
	}
	return input
}

// GenerateAddress generates an address to use when populating inputs, selecting from the dictionary unless the
// random bias is hit or the dictionary carries no addresses.
func (g *MutatingValueGenerator) GenerateAddress() common.Address {
	addresses := g.valueSet.Addresses()
	if len(addresses) == 0 || g.randomProvider.Float32() < g.config.GenerateRandomAddressBias {
		return g.RandomValueGenerator.GenerateAddress()
	}
	return addresses[g.randomProvider.Intn(len(addresses))]
}

// MutateAddress takes an address input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateAddress(addr common.Address) common.Address {
	// Addresses have no meaningful arithmetic structure, so mutation is re-selection.
	return g.GenerateAddress()
}

// GenerateBytes generates a dynamic-sized byte array to use when populating inputs, mutating a dictionary value
// unless the random bias is hit.
func (g *MutatingValueGenerator) GenerateBytes() []byte {
	if g.randomProvider.Float32() < g.config.GenerateRandomBytesBias {
		return g.RandomValueGenerator.GenerateBytes()
	}
	return g.mutateBytesInternal(nil)
}

// MutateBytes takes a dynamic-sized byte array input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateBytes(b []byte) []byte {
	return g.mutateBytesInternal(b)
}

// MutateFixedBytes takes a fixed-sized byte array input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateFixedBytes(b []byte) []byte {
	// Fixed-size arrays cannot change length, so mutation replaces random bytes in place.
	if len(b) > 0 {
		b[g.randomProvider.Intn(len(b))] = byte(g.randomProvider.Uint32())
	}
	return b
}

// MutateBool takes a boolean input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateBool(bl bool) bool {
	return g.RandomValueGenerator.GenerateBool()
}

// GenerateString generates a string to use when populating inputs, mutating a dictionary value unless the random
// bias is hit.
func (g *MutatingValueGenerator) GenerateString() string {
	if g.randomProvider.Float32() < g.config.GenerateRandomStringBias {
		return g.RandomValueGenerator.GenerateString()
	}
	return g.mutateStringInternal(nil)
}

// MutateString takes a string input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateString(s string) string {
	return g.mutateStringInternal(&s)
}

// GenerateInteger generates an integer to use when populating inputs, mutating a dictionary value unless the
// random bias is hit.
func (g *MutatingValueGenerator) GenerateInteger(signed bool, bitLength int) *big.Int {
	if g.randomProvider.Float32() < g.config.GenerateRandomIntegerBias {
		return g.RandomValueGenerator.GenerateInteger(signed, bitLength)
	}
	return g.mutateIntegerInternal(nil, signed, bitLength)
}

// MutateInteger takes an integer input and returns a mutated value based off the input.
func (g *MutatingValueGenerator) MutateInteger(i *big.Int, signed bool, bitLength int) *big.Int {
	return g.mutateIntegerInternal(i, signed, bitLength)
}
