package valuegeneration

import (
	"math/big"

	"github.com/charybdis-fuzz/charybdis/backend"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AddReturnAbiValues adds the return values of a call to the value set.
func (vs *ValueSet) AddReturnAbiValues(outputTypes abi.Arguments, outputValues []any) {
	// Return early to be robust against mismatched lengths
	if len(outputTypes) != len(outputValues) {
		return
	}
	for i, outputType := range outputTypes {
		switch outputType.Type.T {
		case abi.AddressTy:
			address, ok := outputValues[i].(common.Address)
			if ok {
				vs.AddAddress(address)
				vs.AddBytes(address.Bytes())
			}
		case abi.UintTy, abi.IntTy:
			integer, err := abiValueToBigInt(outputValues[i])
			if err == nil {
				vs.AddInteger(integer)
				vs.AddAddress(common.BigToAddress(integer))
			}
		case abi.StringTy:
			str, ok := outputValues[i].(string)
			if ok {
				vs.AddString(str)
			}
		case abi.BytesTy:
			b, ok := outputValues[i].([]byte)
			if ok {
				vs.AddBytes(b)
				vs.AddAddress(common.BytesToAddress(b))
			}
		}
	}
}

// AddCallResultValues harvests all values of significance from a call result into the value set: decoded return
// values, decoded event arguments, and raw event topic words interpreted as both integers and addresses.
func (vs *ValueSet) AddCallResultValues(method *abi.Method, result *backend.CallResult) {
	if result == nil {
		return
	}

	// Scrape the decoded return values.
	if method != nil {
		vs.AddReturnAbiValues(method.Outputs, result.ReturnValues)
	}

	for _, event := range result.EmittedEvents {
		// Decoded event arguments are scraped by their dynamic type.
		for _, value := range event.InputValues {
			switch v := value.(type) {
			case common.Address:
				vs.AddAddress(v)
			case *big.Int:
				vs.AddInteger(v)
			case string:
				vs.AddString(v)
			case []byte:
				vs.AddBytes(v)
			case bool:
				// Booleans carry no dictionary value.
			}
		}

		// Topic words are indexed values hashed into 32-byte words. The first topic is the event signature, which
		// carries no argument data.
		for i, topic := range event.Topics {
			if i == 0 {
				continue
			}
			word := new(uint256.Int).SetBytes32(topic.Bytes())
			vs.AddInteger(word.ToBig())
			vs.AddAddress(common.BytesToAddress(topic.Bytes()))
		}
	}
}
