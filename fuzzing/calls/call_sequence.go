package calls

import (
	"fmt"
	"strings"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/charybdis-fuzz/charybdis/logging"
	"github.com/charybdis-fuzz/charybdis/logging/colors"
	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// CallSequenceElement describes a single call within a CallSequence along with its observed execution outcome.
type CallSequenceElement struct {
	// Call describes the call which was or will be executed.
	Call *Call

	// Result describes the outcome observed when the call was executed. It is nil until execution.
	Result *backend.CallResult
}

// NewCallSequenceElement creates a CallSequenceElement wrapping the provided call, with no result attached.
func NewCallSequenceElement(call *Call) *CallSequenceElement {
	return &CallSequenceElement{
		Call:   call,
		Result: nil,
	}
}

// Clone creates a copy of the element. The underlying call is cloned; the result is carried by reference as it
// is never mutated after execution.
func (cse *CallSequenceElement) Clone() *CallSequenceElement {
	return &CallSequenceElement{
		Call:   cse.Call.Clone(),
		Result: cse.Result,
	}
}

// String returns a display string representing the element's call and outcome.
func (cse *CallSequenceElement) String() string {
	args, err := valuegeneration.EncodeABIArgumentsToString(cse.Call.Method.Inputs, cse.Call.InputValues)
	if err != nil {
		args = "<unresolved args>"
	}
	outcome := ""
	if cse.Result != nil {
		if cse.Result.AssumeRejected {
			outcome = " [assume rejected]"
		} else if cse.Result.Reverted {
			outcome = " [reverted]"
		}
	}
	return fmt.Sprintf("%s.%s(%s) (sender=%s)%s", cse.Call.Contract.Name(), cse.Call.Method.Name, args, cse.Call.From.String(), outcome)
}

// SolidityStatement returns the element rendered as a replayable Solidity call statement.
func (cse *CallSequenceElement) SolidityStatement() string {
	args, err := valuegeneration.EncodeABIArgumentsToString(cse.Call.Method.Inputs, cse.Call.InputValues)
	if err != nil {
		args = "<unresolved args>"
	}
	contractVar := strings.ToLower(cse.Call.Contract.Name()[:1]) + cse.Call.Contract.Name()[1:]
	return fmt.Sprintf("vm.prank(%s); %s.%s(%s);", cse.Call.From.String(), contractVar, cse.Call.Method.Name, args)
}

// CallSequence describes an ordered list of calls executed (or to be executed) against a backend state.
type CallSequence []*CallSequenceElement

// Clone creates a copy of the sequence with each element cloned.
func (cs CallSequence) Clone() CallSequence {
	cloned := make(CallSequence, len(cs))
	for i := 0; i < len(cs); i++ {
		cloned[i] = cs[i].Clone()
	}
	return cloned
}

// Hash calculates a unique hash which represents the uniqueness of the call sequence and each call made within it.
// Returns the calculated hash.
func (cs CallSequence) Hash() (common.Hash, error) {
	var hashData []byte
	for _, element := range cs {
		data, err := element.Call.Data()
		if err != nil {
			return common.Hash{}, err
		}
		hashData = append(hashData, element.Call.From.Bytes()...)
		hashData = append(hashData, element.Call.To.Bytes()...)
		hashData = append(hashData, crypto.Keccak256(data)...)
	}
	return crypto.Keccak256Hash(hashData), nil
}

// Log returns a LogBuffer rendering the sequence with per-call coloring, suitable for console and file logging.
func (cs CallSequence) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if len(cs) == 0 {
		buffer.Append(colors.Reset, "(no calls)", "\n")
		return buffer
	}
	for i := 0; i < len(cs); i++ {
		buffer.Append(colors.Bold, fmt.Sprintf("%d) ", i+1), colors.Reset, cs[i].String(), "\n")
	}
	return buffer
}

// String returns the non-colorized display string of the sequence.
func (cs CallSequence) String() string {
	return cs.Log().String()
}

// SolidityStatements returns the sequence rendered as replayable Solidity call statements, one per call.
func (cs CallSequence) SolidityStatements() []string {
	return utils.SliceSelect(cs, func(element *CallSequenceElement) string {
		return element.SolidityStatement()
	})
}
