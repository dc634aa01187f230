// Package backend defines the interface between the fuzzing engine and an external contract execution environment.
// The engine drives a Backend through calls, snapshots and invariant evaluations; the backend owns the VM, the
// deployed state and the cheat primitives. The engine never inspects execution beyond the result types defined here.
package backend

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateID uniquely identifies a state snapshot taken by a Backend. Identifiers are only meaningful to the backend
// which issued them.
type StateID uint64

// CallMessage describes a single top-level call the engine asks the backend to execute.
type CallMessage struct {
	// From describes the sender address the call should originate from.
	From common.Address

	// To describes the address of the contract being called.
	To common.Address

	// Data describes the ABI-encoded call data (selector and packed arguments).
	Data []byte

	// Value describes the ether value attached to the call.
	Value *big.Int
}

// Backend describes an external execution environment the engine fuzzes against. A Backend instance is owned by a
// single worker and is never shared, so implementations do not need to be safe for concurrent use.
type Backend interface {
	// ExecuteCall executes the provided call message against the current state and returns its result. An error is
	// returned only for backend-level faults, not for call reverts, which are reported through the CallResult.
	ExecuteCall(msg CallMessage) (*CallResult, error)

	// Snapshot records the current state and returns an identifier which can later be provided to Restore.
	Snapshot() (StateID, error)

	// Restore rewinds the backend to the state recorded under the provided identifier. Restoring does not consume
	// the snapshot, so the same identifier may be restored repeatedly.
	Restore(id StateID) error

	// EvaluateInvariant executes the named invariant method on the test contract against the current state and
	// reports whether it held.
	EvaluateInvariant(name string) (*InvariantResult, error)

	// AfterInvariant executes the test contract's afterInvariant hook against the current state. It must only be
	// called when ScanDeclarations reported the hook exists.
	AfterInvariant() (*InvariantResult, error)

	// BytecodeHash returns the hash of the runtime bytecode deployed at the provided address, used to detect that
	// persisted failures have gone stale across rebuilds.
	BytecodeHash(addr common.Address) (common.Hash, error)

	// Deployments returns the records of every contract deployed during setup, in deployment order.
	Deployments() []*DeploymentRecord

	// ScanDeclarations performs the one-time scan of the test contract's targeting capability functions, fixture
	// functions, invariant methods and the afterInvariant hook, returning the declarations the resolver consumes.
	ScanDeclarations() (*Declarations, error)
}
