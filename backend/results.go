package backend

import "github.com/ethereum/go-ethereum/common"

// CallResult describes the observed outcome of a single top-level call executed by a Backend.
type CallResult struct {
	// Reverted indicates whether the call reverted. State changes from a reverted call are rolled back by the
	// backend before it returns.
	Reverted bool

	// RevertReason describes the decoded revert reason, if the call reverted with one.
	RevertReason string

	// AssumeRejected indicates the call reverted with the magic assume marker, requesting the engine discard it
	// rather than treat it as a revert.
	AssumeRejected bool

	// ReturnValues describes the ABI-decoded return values of the call, if it did not revert.
	ReturnValues []any

	// EmittedEvents describes the events emitted during the call, in emission order.
	EmittedEvents []EmittedEvent

	// SubCalls describes the nested calls the backend performed on behalf of this call (e.g. when the backend
	// operates in a call-override mode). They are attributed to the same run for metrics purposes.
	SubCalls []SubCall
}

// EmittedEvent describes a single event emitted during call execution.
type EmittedEvent struct {
	// ContractName describes the name of the contract which emitted the event.
	ContractName string

	// EventName describes the name of the emitted event.
	EventName string

	// Topics describes the raw 32-byte topic words of the event, including the event signature topic.
	Topics []common.Hash

	// InputValues describes the ABI-decoded event arguments, where the backend could decode them.
	InputValues []any
}

// SubCall describes a nested call made by the backend during execution of a top-level call.
type SubCall struct {
	// ContractName describes the name of the contract the nested call targeted.
	ContractName string

	// MethodSignature describes the canonical signature of the method invoked, e.g. "transfer(address,uint256)".
	MethodSignature string

	// Reverted indicates whether the nested call reverted.
	Reverted bool
}

// InvariantResult describes the outcome of evaluating an invariant method or the afterInvariant hook.
type InvariantResult struct {
	// Holds indicates whether the invariant held against the current state.
	Holds bool

	// Message describes why the invariant failed to hold, when it did not. This is the revert reason or assertion
	// message the backend observed.
	Message string
}
