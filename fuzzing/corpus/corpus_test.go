package corpus

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/calls"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/charybdis-fuzz/charybdis/fuzzing/targeting"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeABIJSON = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"burn","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
]`

var (
	tokenAddress = common.HexToAddress("0x0000000000000000000000000000000000004000")
	senderAlice  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func testLogger() *logging.Logger {
	return logging.NewLogger(zerolog.Disabled, false)
}

func tokenContract() *contracts.Contract {
	parsed, err := abi.JSON(strings.NewReader(storeABIJSON))
	if err != nil {
		panic(err)
	}
	return contracts.NewContract("Token", "Token.sol:Token", parsed)
}

// testUniverse resolves a single-token universe the persisted sequences are decoded against.
func testUniverse(t *testing.T) *targeting.Universe {
	universe, err := targeting.Resolve(
		[]*backend.DeploymentRecord{{Address: tokenAddress, Contract: tokenContract()}},
		&backend.Declarations{TestContractName: "TokenTest"},
		[]common.Address{senderAlice},
	)
	require.NoError(t, err)
	return universe
}

// transferCall builds a transfer call with the provided recipient and amount.
func transferCall(universe *targeting.Universe, to common.Address, amount *big.Int) *calls.Call {
	targetMethod := universe.MethodFor(tokenAddress, [4]byte(tokenContract().Abi().Methods["transfer"].ID[:4]))
	method := targetMethod.Method
	return calls.NewCall(senderAlice, tokenAddress, targetMethod.Target.Contract, &method, []any{to, amount}, calls.ProvenanceFreshRandom)
}

func sequenceOf(callList ...*calls.Call) calls.CallSequence {
	sequence := make(calls.CallSequence, 0, len(callList))
	for _, call := range callList {
		sequence = append(sequence, calls.NewCallSequenceElement(call))
	}
	return sequence
}

// TestStoreSequenceRoundTrip checks a staged sequence survives a flush and reopen, resolving back to calls with
// identical senders, methods and argument values.
func TestStoreSequenceRoundTrip(t *testing.T) {
	corpusRoot := t.TempDir()
	universe := testUniverse(t)

	store, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)

	recipient := common.HexToAddress("0x1234")
	original := sequenceOf(transferCall(universe, recipient, big.NewInt(1000)))
	require.NoError(t, store.AddSequence(original))
	require.NoError(t, store.Flush(nil))
	require.NoError(t, store.Close())

	reopened, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	assert.Equal(t, 1, reopened.SequenceCount())
	loaded, err := reopened.LoadSequences(universe)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, loaded[0], 1)

	call := loaded[0][0].Call
	assert.Equal(t, senderAlice, call.From)
	assert.Equal(t, tokenAddress, call.To)
	assert.Equal(t, "Token.transfer(address,uint256)", call.CanonicalMethodName())
	assert.Equal(t, calls.ProvenanceFromCorpus, call.Provenance)
	require.Len(t, call.InputValues, 2)
	assert.Equal(t, recipient, call.InputValues[0])
	assert.Zero(t, call.InputValues[1].(*big.Int).Cmp(big.NewInt(1000)))
}

// TestStoreSkipsUnresolvableSequences checks sequences referencing methods no longer in the universe are skipped
// on load rather than failing it.
func TestStoreSkipsUnresolvableSequences(t *testing.T) {
	corpusRoot := t.TempDir()
	universe := testUniverse(t)

	store, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	require.NoError(t, store.AddSequence(sequenceOf(transferCall(universe, common.Address{}, big.NewInt(1)))))
	require.NoError(t, store.Flush(nil))
	require.NoError(t, store.Close())

	// The rebuilt universe keeps only burn, so the persisted transfer no longer resolves.
	restricted, err := targeting.Resolve(
		[]*backend.DeploymentRecord{{Address: tokenAddress, Contract: tokenContract()}},
		&backend.Declarations{
			TestContractName: "TokenTest",
			ExcludeSelectors: []backend.SelectorFilter{{
				Address:   tokenAddress,
				Selectors: [][4]byte{[4]byte(tokenContract().Abi().Methods["transfer"].ID[:4])},
			}},
		},
		[]common.Address{senderAlice},
	)
	require.NoError(t, err)

	reopened, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	loaded, err := reopened.LoadSequences(restricted)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

// TestStoreFormatVersionGate checks entries written under a different major format version are ignored on open,
// while a compatible minor bump keeps them.
func TestStoreFormatVersionGate(t *testing.T) {
	corpusRoot := t.TempDir()
	universe := testUniverse(t)

	store, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	require.NoError(t, store.AddSequence(sequenceOf(transferCall(universe, common.Address{}, big.NewInt(1)))))
	require.NoError(t, store.Flush(nil))
	require.NoError(t, store.Close())

	metaPath := filepath.Join(corpusRoot, "TokenTest", "invariant_supply", "meta.json")
	writeMeta := func(version string) {
		b, marshalErr := json.Marshal(corpusMetadata{Version: version})
		require.NoError(t, marshalErr)
		require.NoError(t, os.WriteFile(metaPath, b, 0644))
	}

	writeMeta("2.0.0")
	incompatible, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, incompatible.SequenceCount())
	require.NoError(t, incompatible.Close())

	writeMeta("1.9.0")
	compatible, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, compatible.SequenceCount())
	require.NoError(t, compatible.Close())
}

// TestStoreDisabled checks a store with no corpus directory accepts all operations without touching disk.
func TestStoreDisabled(t *testing.T) {
	store, err := NewStore("", "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	assert.True(t, store.Disabled())

	universe := testUniverse(t)
	require.NoError(t, store.AddSequence(sequenceOf(transferCall(universe, common.Address{}, big.NewInt(1)))))
	require.NoError(t, store.Flush(valuegeneration.NewValueSet()))
	require.NoError(t, store.SeedValueSet(valuegeneration.NewValueSet()))
	require.NoError(t, store.Close())
}

// TestDictionaryRoundTrip checks flushed value set entries seed a fresh value set on reopen.
func TestDictionaryRoundTrip(t *testing.T) {
	corpusRoot := t.TempDir()

	store, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)

	valueSet := valuegeneration.NewValueSet()
	valueSet.AddInteger(big.NewInt(777))
	valueSet.AddAddress(senderAlice)
	valueSet.AddString("hello")
	valueSet.AddBytes([]byte{0xca, 0xfe})
	require.NoError(t, store.Flush(valueSet))
	require.NoError(t, store.Close())

	reopened, err := NewStore(corpusRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	seeded := valuegeneration.NewValueSet()
	require.NoError(t, reopened.SeedValueSet(seeded))
	assert.Contains(t, seeded.Addresses(), senderAlice)
	assert.Contains(t, seeded.Strings(), "hello")
	found := false
	for _, integer := range seeded.Integers() {
		if integer.Cmp(big.NewInt(777)) == 0 {
			found = true
			break
		}
	}
	assert.True(t, found)
}

// failureBackend provides the bytecode hashes the failure store captures and checks.
type failureBackend struct {
	backend.Backend
	hashes map[common.Address]common.Hash
}

func (b *failureBackend) BytecodeHash(addr common.Address) (common.Hash, error) {
	return b.hashes[addr], nil
}

// TestFailureStoreRoundTrip checks a saved counterexample loads back with its reason and sequence intact and is
// not stale while bytecode is unchanged.
func TestFailureStoreRoundTrip(t *testing.T) {
	failuresRoot := t.TempDir()
	universe := testUniverse(t)
	executor := &failureBackend{hashes: map[common.Address]common.Hash{
		tokenAddress: common.HexToHash("0xabcd"),
	}}

	store, err := NewFailureStore(failuresRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)

	reason := FailureReason{Kind: FailureKindInvariantViolation, Name: "invariant_supply", Message: "supply drifted"}
	sequence := sequenceOf(transferCall(universe, common.Address{}, big.NewInt(42)))
	require.NoError(t, store.Save(sequence, reason, executor))

	loaded, err := store.Load(universe, executor)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Reason.Equal(reason))
	assert.False(t, loaded.Stale)
	require.Len(t, loaded.Sequence, 1)
	assert.Equal(t, "Token.transfer(address,uint256)", loaded.Sequence[0].Call.CanonicalMethodName())
}

// TestFailureStoreStaleness checks a bytecode change after recording marks the loaded failure stale.
func TestFailureStoreStaleness(t *testing.T) {
	failuresRoot := t.TempDir()
	universe := testUniverse(t)
	executor := &failureBackend{hashes: map[common.Address]common.Hash{
		tokenAddress: common.HexToHash("0xabcd"),
	}}

	store, err := NewFailureStore(failuresRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)
	reason := FailureReason{Kind: FailureKindHandlerRevert, Name: "Token.transfer(address,uint256)", Message: "insolvent"}
	require.NoError(t, store.Save(sequenceOf(transferCall(universe, common.Address{}, big.NewInt(1))), reason, executor))

	executor.hashes[tokenAddress] = common.HexToHash("0xbeef")
	loaded, err := store.Load(universe, executor)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Stale)
}

// TestFailureStoreClear checks clearing removes the slot and a cleared or empty slot loads as nil.
func TestFailureStoreClear(t *testing.T) {
	failuresRoot := t.TempDir()
	universe := testUniverse(t)
	executor := &failureBackend{hashes: map[common.Address]common.Hash{}}

	store, err := NewFailureStore(failuresRoot, "TokenTest", "invariant_supply", testLogger())
	require.NoError(t, err)

	loaded, err := store.Load(universe, executor)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	reason := FailureReason{Kind: FailureKindInvariantViolation, Name: "invariant_supply"}
	require.NoError(t, store.Save(sequenceOf(transferCall(universe, common.Address{}, big.NewInt(1))), reason, executor))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	loaded, err = store.Load(universe, executor)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestFailureReasonEqual checks equality covers the kind, the name and the message.
func TestFailureReasonEqual(t *testing.T) {
	base := FailureReason{Kind: FailureKindInvariantViolation, Name: "invariant_supply", Message: "drift"}
	assert.True(t, base.Equal(base))
	assert.False(t, base.Equal(FailureReason{Kind: FailureKindHandlerRevert, Name: "invariant_supply", Message: "drift"}))
	assert.False(t, base.Equal(FailureReason{Kind: FailureKindInvariantViolation, Name: "other", Message: "drift"}))
	assert.False(t, base.Equal(FailureReason{Kind: FailureKindInvariantViolation, Name: "invariant_supply", Message: "gone"}))
}
