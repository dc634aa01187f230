package calls

import (
	"math/big"
	"strings"
	"testing"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaultABIJSON = `[
	{"type":"function","name":"deposit","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"setOwner","inputs":[{"name":"owner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"}
]`

var (
	vaultAddress = common.HexToAddress("0x0000000000000000000000000000000000005000")
	senderAddr   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func vaultContract(t *testing.T) *contracts.Contract {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	require.NoError(t, err)
	return contracts.NewContract("Vault", "Vault.sol:Vault", parsed)
}

func depositCall(t *testing.T, amount *big.Int) *Call {
	contract := vaultContract(t)
	method := contract.Abi().Methods["deposit"]
	return NewCall(senderAddr, vaultAddress, contract, &method, []any{amount}, ProvenanceFreshRandom)
}

// TestCallData checks call data is the method selector followed by the packed arguments.
func TestCallData(t *testing.T) {
	call := depositCall(t, big.NewInt(1))
	data, err := call.Data()
	require.NoError(t, err)

	require.Len(t, data, 4+32)
	assert.Equal(t, call.Method.ID, data[:4])
	assert.Equal(t, byte(1), data[len(data)-1])

	// Arguments which cannot pack surface an error rather than panicking.
	bad := call.WithInputValues([]any{"not an integer"})
	_, err = bad.Data()
	assert.Error(t, err)
}

// TestCallToMessage checks the low-level message carries the sender, target, data and value of the call.
func TestCallToMessage(t *testing.T) {
	call := depositCall(t, big.NewInt(5))
	call.Value = big.NewInt(100)

	msg, err := call.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, senderAddr, msg.From)
	assert.Equal(t, vaultAddress, msg.To)
	assert.Equal(t, big.NewInt(100), msg.Value)
	data, err := call.Data()
	require.NoError(t, err)
	assert.Equal(t, data, msg.Data)
}

// TestCallCloneIsIndependent checks cloned calls share no mutable state with the original.
func TestCallCloneIsIndependent(t *testing.T) {
	call := depositCall(t, big.NewInt(10))
	cloned := call.Clone()
	cloned.InputValues[0] = big.NewInt(99)
	cloned.Value.SetInt64(7)

	assert.Zero(t, call.InputValues[0].(*big.Int).Cmp(big.NewInt(10)))
	assert.Zero(t, call.Value.Sign())

	replaced := call.WithInputValues([]any{big.NewInt(3)})
	assert.Zero(t, call.InputValues[0].(*big.Int).Cmp(big.NewInt(10)))
	assert.Zero(t, replaced.InputValues[0].(*big.Int).Cmp(big.NewInt(3)))
}

// TestCallSequenceHash checks the sequence hash distinguishes argument values, senders and call order.
func TestCallSequenceHash(t *testing.T) {
	sequenceA := CallSequence{
		NewCallSequenceElement(depositCall(t, big.NewInt(1))),
		NewCallSequenceElement(depositCall(t, big.NewInt(2))),
	}
	hashA, err := sequenceA.Hash()
	require.NoError(t, err)

	// The same calls hash identically.
	hashA2, err := sequenceA.Clone().Hash()
	require.NoError(t, err)
	assert.Equal(t, hashA, hashA2)

	// Reordering changes the hash.
	sequenceB := CallSequence{sequenceA[1], sequenceA[0]}
	hashB, err := sequenceB.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)

	// A different argument value changes the hash.
	sequenceC := CallSequence{
		NewCallSequenceElement(depositCall(t, big.NewInt(1))),
		NewCallSequenceElement(depositCall(t, big.NewInt(3))),
	}
	hashC, err := sequenceC.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)

	// A different sender changes the hash.
	sequenceD := sequenceA.Clone()
	sequenceD[0].Call.From = common.HexToAddress("0xb0b")
	hashD, err := sequenceD.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashD)
}

// TestCallSequenceElementString checks the display string carries the method, arguments, sender and outcome.
func TestCallSequenceElementString(t *testing.T) {
	element := NewCallSequenceElement(depositCall(t, big.NewInt(42)))
	rendered := element.String()
	assert.Contains(t, rendered, "Vault.deposit(42)")
	assert.Contains(t, rendered, senderAddr.String())
	assert.NotContains(t, rendered, "[reverted]")

	element.Result = &backend.CallResult{Reverted: true}
	assert.Contains(t, element.String(), "[reverted]")

	element.Result = &backend.CallResult{AssumeRejected: true}
	assert.Contains(t, element.String(), "[assume rejected]")
}

// TestCallSequenceSolidityStatements checks the replayable rendering pranks the sender and lowercases the
// contract variable.
func TestCallSequenceSolidityStatements(t *testing.T) {
	sequence := CallSequence{NewCallSequenceElement(depositCall(t, big.NewInt(7)))}
	statements := sequence.SolidityStatements()
	require.Len(t, statements, 1)
	assert.Equal(t, "vm.prank("+senderAddr.String()+"); vault.deposit(7);", statements[0])
}

// TestCallSequenceString checks the plain rendering numbers calls and handles the empty sequence.
func TestCallSequenceString(t *testing.T) {
	assert.Contains(t, CallSequence{}.String(), "(no calls)")

	sequence := CallSequence{
		NewCallSequenceElement(depositCall(t, big.NewInt(1))),
		NewCallSequenceElement(depositCall(t, big.NewInt(2))),
	}
	rendered := sequence.String()
	assert.Contains(t, rendered, "1) ")
	assert.Contains(t, rendered, "2) ")
}
