package backendtest

import (
	"testing"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankABIJSON = `[
	{"type":"function","name":"credit","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"fail","inputs":[],"outputs":[],"stateMutability":"nonpayable"}
]`

var bankAddress = common.HexToAddress("0x0000000000000000000000000000000000006000")

func newBankBackend() *ScriptedBackend {
	bankABI := MustParseABI(bankABIJSON)
	bank := contracts.NewContract("Bank", "Bank.sol:Bank", bankABI)
	return NewScriptedBackend().
		AddDeployment(&backend.DeploymentRecord{Address: bankAddress, Contract: bank}).
		OnCall(bankAddress, [4]byte(bankABI.Methods["credit"].ID[:4]), func(state *State, msg backend.CallMessage) *backend.CallResult {
			state.Counters["balance"]++
			return &backend.CallResult{}
		}).
		OnCall(bankAddress, [4]byte(bankABI.Methods["fail"].ID[:4]), func(state *State, msg backend.CallMessage) *backend.CallResult {
			state.Counters["balance"] = -1
			return &backend.CallResult{Reverted: true, RevertReason: "scripted failure"}
		})
}

func callMessage(selectorName string) backend.CallMessage {
	bankABI := MustParseABI(bankABIJSON)
	return backend.CallMessage{To: bankAddress, Data: bankABI.Methods[selectorName].ID[:4]}
}

// TestRevertedCallLeavesStateUntouched checks behavior mutations are committed only for successful calls.
func TestRevertedCallLeavesStateUntouched(t *testing.T) {
	scripted := newBankBackend()

	result, err := scripted.ExecuteCall(callMessage("credit"))
	require.NoError(t, err)
	assert.False(t, result.Reverted)
	assert.EqualValues(t, 1, scripted.State().Counters["balance"])

	result, err = scripted.ExecuteCall(callMessage("fail"))
	require.NoError(t, err)
	assert.True(t, result.Reverted)
	assert.Equal(t, "scripted failure", result.RevertReason)
	assert.EqualValues(t, 1, scripted.State().Counters["balance"])
}

// TestUnscriptedCallsSucceed checks calls with no registered behavior succeed with no effect.
func TestUnscriptedCallsSucceed(t *testing.T) {
	scripted := newBankBackend()

	result, err := scripted.ExecuteCall(backend.CallMessage{To: bankAddress, Data: []byte{0xde, 0xad, 0xbe, 0xef}})
	require.NoError(t, err)
	assert.False(t, result.Reverted)
	assert.Empty(t, scripted.State().Counters)
	assert.Len(t, scripted.ExecutedCalls, 1)

	_, err = scripted.ExecuteCall(backend.CallMessage{To: bankAddress, Data: []byte{0x01}})
	assert.Error(t, err)
}

// TestSnapshotRestore checks snapshots may be restored repeatedly and restored state is isolated from later
// mutation.
func TestSnapshotRestore(t *testing.T) {
	scripted := newBankBackend()
	_, err := scripted.ExecuteCall(callMessage("credit"))
	require.NoError(t, err)

	snapshot, err := scripted.Snapshot()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = scripted.ExecuteCall(callMessage("credit"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 4, scripted.State().Counters["balance"])

	// Snapshots are not consumed by restoring.
	require.NoError(t, scripted.Restore(snapshot))
	assert.EqualValues(t, 1, scripted.State().Counters["balance"])
	_, err = scripted.ExecuteCall(callMessage("credit"))
	require.NoError(t, err)
	require.NoError(t, scripted.Restore(snapshot))
	assert.EqualValues(t, 1, scripted.State().Counters["balance"])

	assert.Error(t, scripted.Restore(snapshot+100))
}

// TestInvariantEvaluation checks invariant registration, evaluation and the afterInvariant hook.
func TestInvariantEvaluation(t *testing.T) {
	scripted := newBankBackend().
		AddInvariant("invariant_balance_low", func(state *State) *backend.InvariantResult {
			if state.Counters["balance"] > 1 {
				return &backend.InvariantResult{Holds: false, Message: "balance too high"}
			}
			return &backend.InvariantResult{Holds: true}
		})

	assert.Contains(t, scripted.Declarations().Invariants, "invariant_balance_low")

	result, err := scripted.EvaluateInvariant("invariant_balance_low")
	require.NoError(t, err)
	assert.True(t, result.Holds)

	for i := 0; i < 2; i++ {
		_, err = scripted.ExecuteCall(callMessage("credit"))
		require.NoError(t, err)
	}
	result, err = scripted.EvaluateInvariant("invariant_balance_low")
	require.NoError(t, err)
	assert.False(t, result.Holds)
	assert.Equal(t, "balance too high", result.Message)

	_, err = scripted.EvaluateInvariant("invariant_missing")
	assert.Error(t, err)

	_, err = scripted.AfterInvariant()
	assert.Error(t, err)
	scripted.SetAfterInvariant(func(state *State) *backend.InvariantResult {
		return &backend.InvariantResult{Holds: true}
	})
	assert.True(t, scripted.Declarations().HasAfterInvariant)
	result, err = scripted.AfterInvariant()
	require.NoError(t, err)
	assert.True(t, result.Holds)
}

// TestBytecodeHashes checks default hashes derive from the contract name and explicit overrides win.
func TestBytecodeHashes(t *testing.T) {
	scripted := newBankBackend()

	hash, err := scripted.BytecodeHash(bankAddress)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash([]byte("Bank")), hash)

	scripted.SetBytecodeHash(bankAddress, common.HexToHash("0x1234"))
	hash, err = scripted.BytecodeHash(bankAddress)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x1234"), hash)

	_, err = scripted.BytecodeHash(common.HexToAddress("0x9999"))
	assert.Error(t, err)
}
