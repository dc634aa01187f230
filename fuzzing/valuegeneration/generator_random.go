package valuegeneration

import (
	"math/big"
	"math/rand"

	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
)

// RandomValueGenerator represents a ValueGenerator used to generate uniformly random values of a given type, with
// no dictionary bias.
type RandomValueGenerator struct {
	// config describes the configuration defining value generation parameters.
	config *RandomValueGeneratorConfig

	// randomProvider offers a source of random data.
	randomProvider *rand.Rand
}

// RandomValueGeneratorConfig defines the operating parameters for a RandomValueGenerator.
type RandomValueGeneratorConfig struct {
	// GenerateRandomArrayMinSize defines the minimum size a generated array (dynamic-length) will be.
	GenerateRandomArrayMinSize int
	// GenerateRandomArrayMaxSize defines the maximum size a generated array (dynamic-length) will be.
	GenerateRandomArrayMaxSize int
	// GenerateRandomBytesMinSize defines the minimum size a generated dynamic-sized byte array will be.
	GenerateRandomBytesMinSize int
	// GenerateRandomBytesMaxSize defines the maximum size a generated dynamic-sized byte array will be.
	GenerateRandomBytesMaxSize int
	// GenerateRandomStringMinSize defines the minimum size a generated string will be.
	GenerateRandomStringMinSize int
	// GenerateRandomStringMaxSize defines the maximum size a generated string will be.
	GenerateRandomStringMaxSize int
}

// NewRandomValueGenerator creates a new RandomValueGenerator with the provided configuration and random provider.
func NewRandomValueGenerator(config *RandomValueGeneratorConfig, randomProvider *rand.Rand) *RandomValueGenerator {
	generator := &RandomValueGenerator{
		config:         config,
		randomProvider: randomProvider,
	}
	return generator
}

// RandomProvider returns the internal random provider used for value generation.
func (g *RandomValueGenerator) RandomProvider() *rand.Rand {
	return g.randomProvider
}

// GenerateAddress generates a random address to use when populating inputs.
func (g *RandomValueGenerator) GenerateAddress() common.Address {
	addressBytes := make([]byte, common.AddressLength)
	g.randomProvider.Read(addressBytes)
	return common.BytesToAddress(addressBytes)
}

// GenerateArrayLength generates a random array length to use when populating inputs.
func (g *RandomValueGenerator) GenerateArrayLength() int {
	rangeSize := uint64(g.config.GenerateRandomArrayMaxSize-g.config.GenerateRandomArrayMinSize) + 1
	return int(g.randomProvider.Uint64()%rangeSize) + g.config.GenerateRandomArrayMinSize
}

// GenerateBool generates a random bool to use when populating inputs.
func (g *RandomValueGenerator) GenerateBool() bool {
	return g.randomProvider.Uint32()%2 == 0
}

// GenerateBytes generates a random dynamic-sized byte array to use when populating inputs.
func (g *RandomValueGenerator) GenerateBytes() []byte {
	rangeSize := uint64(g.config.GenerateRandomBytesMaxSize-g.config.GenerateRandomBytesMinSize) + 1
	b := make([]byte, int(g.randomProvider.Uint64()%rangeSize)+g.config.GenerateRandomBytesMinSize)
	g.randomProvider.Read(b)
	return b
}

// GenerateFixedBytes generates a random fixed-sized byte array to use when populating inputs.
func (g *RandomValueGenerator) GenerateFixedBytes(length int) []byte {
	b := make([]byte, length)
	g.randomProvider.Read(b)
	return b
}

// GenerateString generates a random dynamic-sized string to use when populating inputs.
func (g *RandomValueGenerator) GenerateString() string {
	rangeSize := uint64(g.config.GenerateRandomStringMaxSize-g.config.GenerateRandomStringMinSize) + 1
	b := make([]byte, int(g.randomProvider.Uint64()%rangeSize)+g.config.GenerateRandomStringMinSize)
	for i := 0; i < len(b); i++ {
		b[i] = byte(rune(32 + (g.randomProvider.Uint32() % 95))) // printable ascii
	}
	return string(b)
}

// GenerateInteger generates a random integer of the provided properties to use when populating inputs.
func (g *RandomValueGenerator) GenerateInteger(signed bool, bitLength int) *big.Int {
	// Fill a byte array of the appropriate size with random bytes
	b := make([]byte, bitLength/8)
	g.randomProvider.Read(b)

	// Create an unsigned integer from the random data and wrap it around the type's bounds.
	res := big.NewInt(0).SetBytes(b)
	return utils.ConstrainIntegerToBitLength(res, signed, bitLength)
}
