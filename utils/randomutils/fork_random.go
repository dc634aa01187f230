package randomutils

import (
	"encoding/binary"
	"math/rand"
)

// ForkRandomProvider creates a new random provider from the provided one. The new provider is seeded with data
// derived from the original, so campaigns remain deterministic for a given seed while each consumer receives its
// own independent stream.
func ForkRandomProvider(randomProvider *rand.Rand) *rand.Rand {
	// Read a seed for the new provider from the original.
	b := make([]byte, 8)
	_, err := randomProvider.Read(b)
	if err != nil {
		panic(err)
	}

	seed := int64(binary.LittleEndian.Uint64(b))
	return rand.New(rand.NewSource(seed))
}
