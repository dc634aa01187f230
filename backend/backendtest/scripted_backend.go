// Package backendtest provides an in-memory, scriptable implementation of backend.Backend for engine tests.
// Behaviors are registered per contract address and selector and operate on an abstract counter state, letting
// tests script reverts, assume rejections, return values, events and invariant predicates without a VM.
package backendtest

import (
	"strings"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// State describes the abstract contract state a ScriptedBackend executes against: a set of named signed counters.
type State struct {
	// Counters maps a counter name to its current value.
	Counters map[string]int64
}

// NewState creates an empty State.
func NewState() *State {
	return &State{Counters: make(map[string]int64)}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	counters := make(map[string]int64, len(s.Counters))
	for k, v := range s.Counters {
		counters[k] = v
	}
	return &State{Counters: counters}
}

// Behavior describes a scripted reaction to a call. It may mutate the provided state; mutations are discarded if
// the returned result indicates a revert or an assume rejection.
type Behavior func(state *State, msg backend.CallMessage) *backend.CallResult

// Invariant describes a scripted invariant predicate evaluated against the current state.
type Invariant func(state *State) *backend.InvariantResult

// behaviorKey identifies a scripted behavior by target address and 4-byte selector.
type behaviorKey struct {
	addr     common.Address
	selector [4]byte
}

// ScriptedBackend is an in-memory backend.Backend with programmable per-selector behavior. It is not safe for
// concurrent use, matching the ownership contract of backend.Backend.
type ScriptedBackend struct {
	deployments    []*backend.DeploymentRecord
	declarations   *backend.Declarations
	behaviors      map[behaviorKey]Behavior
	invariants     map[string]Invariant
	afterInvariant Invariant
	bytecodeHashes map[common.Address]common.Hash

	state          *State
	snapshots      map[backend.StateID]*State
	nextSnapshotID backend.StateID

	// ExecutedCalls records every call message executed, for test assertions.
	ExecutedCalls []backend.CallMessage
}

// NewScriptedBackend creates an empty ScriptedBackend with no deployments or behaviors registered.
func NewScriptedBackend() *ScriptedBackend {
	return &ScriptedBackend{
		declarations:   &backend.Declarations{Fixtures: make(map[string][]any)},
		behaviors:      make(map[behaviorKey]Behavior),
		invariants:     make(map[string]Invariant),
		bytecodeHashes: make(map[common.Address]common.Hash),
		state:          NewState(),
		snapshots:      make(map[backend.StateID]*State),
	}
}

// MustParseABI parses the provided ABI JSON and panics on failure. Intended for test setup only.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}

// AddDeployment registers a deployed contract record and assigns it a default bytecode hash derived from the
// contract name.
func (b *ScriptedBackend) AddDeployment(record *backend.DeploymentRecord) *ScriptedBackend {
	b.deployments = append(b.deployments, record)
	if _, ok := b.bytecodeHashes[record.Address]; !ok {
		b.bytecodeHashes[record.Address] = common.BytesToHash([]byte(record.Contract.Name()))
	}
	return b
}

// SetDeclarations replaces the declarations returned by ScanDeclarations.
func (b *ScriptedBackend) SetDeclarations(declarations *backend.Declarations) *ScriptedBackend {
	if declarations.Fixtures == nil {
		declarations.Fixtures = make(map[string][]any)
	}
	b.declarations = declarations
	return b
}

// Declarations returns the declarations the backend will report, for incremental mutation during test setup.
func (b *ScriptedBackend) Declarations() *backend.Declarations {
	return b.declarations
}

// OnCall registers a behavior for calls to the provided address and selector.
func (b *ScriptedBackend) OnCall(addr common.Address, selector [4]byte, behavior Behavior) *ScriptedBackend {
	b.behaviors[behaviorKey{addr: addr, selector: selector}] = behavior
	return b
}

// AddInvariant registers a scripted invariant predicate under the provided method name.
func (b *ScriptedBackend) AddInvariant(name string, invariant Invariant) *ScriptedBackend {
	b.invariants[name] = invariant
	b.declarations.Invariants = append(b.declarations.Invariants, name)
	return b
}

// SetAfterInvariant registers the afterInvariant hook predicate.
func (b *ScriptedBackend) SetAfterInvariant(invariant Invariant) *ScriptedBackend {
	b.afterInvariant = invariant
	b.declarations.HasAfterInvariant = true
	return b
}

// SetBytecodeHash overrides the bytecode hash reported for the provided address, used to simulate rebuilds which
// invalidate persisted failures.
func (b *ScriptedBackend) SetBytecodeHash(addr common.Address, hash common.Hash) *ScriptedBackend {
	b.bytecodeHashes[addr] = hash
	return b
}

// State returns the current abstract state, for test assertions.
func (b *ScriptedBackend) State() *State {
	return b.state
}

// ExecuteCall implements backend.Backend. State mutations made by the matched behavior are committed only when
// the call neither reverted nor was assume-rejected.
func (b *ScriptedBackend) ExecuteCall(msg backend.CallMessage) (*backend.CallResult, error) {
	if len(msg.Data) < 4 {
		return nil, errors.New("scripted backend received call data shorter than a selector")
	}
	b.ExecutedCalls = append(b.ExecutedCalls, msg)

	behavior, ok := b.behaviors[behaviorKey{addr: msg.To, selector: [4]byte(msg.Data[:4])}]
	if !ok {
		// Unscripted calls succeed with no effect, mirroring a handler with an empty body.
		return &backend.CallResult{}, nil
	}

	// Run the behavior against a trial copy so reverted calls leave state untouched.
	trial := b.state.Clone()
	result := behavior(trial, msg)
	if result == nil {
		result = &backend.CallResult{}
	}
	if !result.Reverted && !result.AssumeRejected {
		b.state = trial
	}
	return result, nil
}

// Snapshot implements backend.Backend.
func (b *ScriptedBackend) Snapshot() (backend.StateID, error) {
	b.nextSnapshotID++
	b.snapshots[b.nextSnapshotID] = b.state.Clone()
	return b.nextSnapshotID, nil
}

// Restore implements backend.Backend. Snapshots are not consumed and may be restored repeatedly.
func (b *ScriptedBackend) Restore(id backend.StateID) error {
	snapshot, ok := b.snapshots[id]
	if !ok {
		return errors.Errorf("scripted backend has no snapshot with id %d", id)
	}
	b.state = snapshot.Clone()
	return nil
}

// EvaluateInvariant implements backend.Backend.
func (b *ScriptedBackend) EvaluateInvariant(name string) (*backend.InvariantResult, error) {
	invariant, ok := b.invariants[name]
	if !ok {
		return nil, errors.Errorf("scripted backend has no invariant named %q", name)
	}
	return invariant(b.state), nil
}

// AfterInvariant implements backend.Backend.
func (b *ScriptedBackend) AfterInvariant() (*backend.InvariantResult, error) {
	if b.afterInvariant == nil {
		return nil, errors.New("scripted backend has no afterInvariant hook registered")
	}
	return b.afterInvariant(b.state), nil
}

// BytecodeHash implements backend.Backend.
func (b *ScriptedBackend) BytecodeHash(addr common.Address) (common.Hash, error) {
	hash, ok := b.bytecodeHashes[addr]
	if !ok {
		return common.Hash{}, errors.Errorf("scripted backend has no deployment at %v", addr)
	}
	return hash, nil
}

// Deployments implements backend.Backend.
func (b *ScriptedBackend) Deployments() []*backend.DeploymentRecord {
	return b.deployments
}

// ScanDeclarations implements backend.Backend.
func (b *ScriptedBackend) ScanDeclarations() (*backend.Declarations, error) {
	return b.declarations, nil
}
