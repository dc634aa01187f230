package calls

import (
	"math/big"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Provenance describes where a call's argument values originated from, recorded for diagnostics and corpus
// analysis.
type Provenance string

const (
	// ProvenanceFreshRandom indicates the call's arguments were generated randomly.
	ProvenanceFreshRandom Provenance = "fresh_random"
	// ProvenanceFromFixture indicates at least one argument was drawn from a declared fixture.
	ProvenanceFromFixture Provenance = "from_fixture"
	// ProvenanceFromDictionary indicates at least one argument was mutated from the campaign dictionary.
	ProvenanceFromDictionary Provenance = "from_dictionary"
	// ProvenanceFromCorpus indicates the call was replayed verbatim from a persisted corpus sequence.
	ProvenanceFromCorpus Provenance = "from_corpus"
)

// Call describes a single fuzzed call: a sender, a target contract method and its argument values. A Call is
// treated as immutable once constructed; mutation during shrinking produces new Call instances via Clone.
type Call struct {
	// From describes the sender address the call originates from.
	From common.Address

	// To describes the address of the contract being called.
	To common.Address

	// Contract describes the definition of the contract being called.
	Contract *contracts.Contract

	// Method describes the ABI method being invoked.
	Method *abi.Method

	// InputValues describes the decoded argument values the method is invoked with.
	InputValues []any

	// Value describes the ether value attached to the call.
	Value *big.Int

	// Provenance describes where the call's argument values originated from.
	Provenance Provenance
}

// NewCall creates a Call with the provided properties and a zero attached value.
func NewCall(from common.Address, to common.Address, contract *contracts.Contract, method *abi.Method, inputValues []any, provenance Provenance) *Call {
	return &Call{
		From:        from,
		To:          to,
		Contract:    contract,
		Method:      method,
		InputValues: inputValues,
		Value:       big.NewInt(0),
		Provenance:  provenance,
	}
}

// Clone creates a copy of the call. Input values are copied shallowly, as they are never mutated in place.
func (c *Call) Clone() *Call {
	inputValues := make([]any, len(c.InputValues))
	copy(inputValues, c.InputValues)
	return &Call{
		From:        c.From,
		To:          c.To,
		Contract:    c.Contract,
		Method:      c.Method,
		InputValues: inputValues,
		Value:       new(big.Int).Set(c.Value),
		Provenance:  c.Provenance,
	}
}

// WithInputValues returns a copy of the call carrying the provided argument values in place of the originals.
func (c *Call) WithInputValues(inputValues []any) *Call {
	cloned := c.Clone()
	cloned.InputValues = inputValues
	return cloned
}

// Data ABI-encodes the call into selector-prefixed call data.
func (c *Call) Data() ([]byte, error) {
	packedArgs, err := c.Method.Inputs.Pack(c.InputValues...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not pack arguments for %s.%s", c.Contract.Name(), c.Method.Sig)
	}
	return append(append([]byte{}, c.Method.ID...), packedArgs...), nil
}

// ToMessage encodes the call into the low-level message the execution backend consumes.
func (c *Call) ToMessage() (backend.CallMessage, error) {
	data, err := c.Data()
	if err != nil {
		return backend.CallMessage{}, err
	}
	return backend.CallMessage{
		From:  c.From,
		To:    c.To,
		Data:  data,
		Value: c.Value,
	}, nil
}

// CanonicalMethodName returns the canonical "Contract.sig" name of the method this call invokes.
func (c *Call) CanonicalMethodName() string {
	return c.Contract.Name() + "." + c.Method.Sig
}
