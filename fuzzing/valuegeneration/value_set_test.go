package valuegeneration

import (
	"math/big"
	"testing"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValueSetAddRemove checks basic membership operations across all value kinds.
func TestValueSetAddRemove(t *testing.T) {
	valueSet := NewValueSet()
	assert.Zero(t, valueSet.Size())

	addr := common.HexToAddress("0x1111")
	valueSet.AddAddress(addr)
	valueSet.AddInteger(big.NewInt(42))
	valueSet.AddString("hello")
	valueSet.AddBytes([]byte{1, 2, 3})
	assert.Equal(t, 4, valueSet.Size())
	assert.True(t, valueSet.ContainsAddress(addr))

	// Duplicates do not grow the set.
	valueSet.AddInteger(big.NewInt(42))
	valueSet.AddString("hello")
	assert.Equal(t, 4, valueSet.Size())

	valueSet.RemoveAddress(addr)
	valueSet.RemoveInteger(big.NewInt(42))
	valueSet.RemoveString("hello")
	valueSet.RemoveBytes([]byte{1, 2, 3})
	assert.Zero(t, valueSet.Size())
	assert.False(t, valueSet.ContainsAddress(addr))
}

// TestValueSetCloneIsIndependent checks mutating a clone does not affect the original.
func TestValueSetCloneIsIndependent(t *testing.T) {
	valueSet := NewValueSet()
	valueSet.AddInteger(big.NewInt(7))

	clone := valueSet.Clone()
	clone.AddInteger(big.NewInt(8))
	clone.AddString("clone only")

	assert.Equal(t, 1, valueSet.Size())
	assert.Equal(t, 3, clone.Size())
}

// TestAddReturnAbiValues checks return values are scraped into the set by their ABI type, with integers and byte
// data additionally reinterpreted as addresses.
func TestAddReturnAbiValues(t *testing.T) {
	addressType, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	uintType, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)

	outputs := abi.Arguments{
		{Name: "owner", Type: addressType},
		{Name: "balance", Type: uintType},
		{Name: "symbol", Type: stringType},
	}

	owner := common.HexToAddress("0xbeef")
	valueSet := NewValueSet()
	valueSet.AddReturnAbiValues(outputs, []any{owner, big.NewInt(123456), "CHX"})

	assert.True(t, valueSet.ContainsAddress(owner))
	assert.Contains(t, valueSet.Strings(), "CHX")
	assert.True(t, valueSet.ContainsAddress(common.BigToAddress(big.NewInt(123456))))
	found := false
	for _, integer := range valueSet.Integers() {
		if integer.Cmp(big.NewInt(123456)) == 0 {
			found = true
		}
	}
	assert.True(t, found)

	// Mismatched lengths are ignored rather than panicking.
	valueSet.AddReturnAbiValues(outputs, []any{owner})
}

// TestAddCallResultValues checks event arguments and indexed topic words are harvested from a call result.
func TestAddCallResultValues(t *testing.T) {
	emitter := common.HexToAddress("0xe417")
	topicWord := common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000004d2")
	result := &backend.CallResult{
		EmittedEvents: []backend.EmittedEvent{{
			EventName:   "Transfer",
			InputValues: []any{emitter, big.NewInt(555), "memo"},
			Topics:      []common.Hash{common.HexToHash("0x01"), topicWord},
		}},
	}

	valueSet := NewValueSet()
	valueSet.AddCallResultValues(nil, result)

	assert.True(t, valueSet.ContainsAddress(emitter))
	assert.Contains(t, valueSet.Strings(), "memo")

	// The non-signature topic is interpreted both as an integer and as an address.
	foundTopic := false
	for _, integer := range valueSet.Integers() {
		if integer.Cmp(big.NewInt(1234)) == 0 {
			foundTopic = true
		}
	}
	assert.True(t, foundTopic)
	assert.True(t, valueSet.ContainsAddress(common.BytesToAddress(topicWord.Bytes())))

	// A nil result is a no-op.
	before := valueSet.Size()
	valueSet.AddCallResultValues(nil, nil)
	assert.Equal(t, before, valueSet.Size())
}

// TestFixtureMapCandidates checks fixture candidates resolve by parameter name.
func TestFixtureMapCandidates(t *testing.T) {
	fixtures := NewFixtureMap(map[string][]any{
		"amount": {big.NewInt(1), big.NewInt(100)},
		"owner":  {common.HexToAddress("0x1234")},
	})

	assert.Len(t, fixtures.CandidatesFor("amount"), 2)
	assert.Len(t, fixtures.CandidatesFor("owner"), 1)
	assert.Empty(t, fixtures.CandidatesFor("unknown"))
}
