package valuegeneration

import (
	"math/big"
	"reflect"

	"github.com/charybdis-fuzz/charybdis/utils/reflectionutils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const (
	// ArgumentValueTypeAddress describes an address value.
	ArgumentValueTypeAddress    = "address"
	ArgumentValueTypeInteger    = "integer"
	ArgumentValueTypeBool       = "bool"
	ArgumentValueTypeString     = "string"
	ArgumentValueTypeBytes      = "bytes"
	ArgumentValueTypeFixedBytes = "bytesN"
	ArgumentValueTypeArray      = "array"
	ArgumentValueTypeSlice      = "slice"
	ArgumentValueTypeTuple      = "tuple"
)

// AbiValueToMap takes a given value and ABI value type definition and encodes the value into a type-tagged map
// which survives a JSON round trip: integers are stored as decimal strings, byte data as hex strings.
func AbiValueToMap(valueType *abi.Type, value any) (map[string]any, error) {
	valueData := make(map[string]any, 0)

	if valueType.T == abi.AddressTy {
		valueData["type"] = ArgumentValueTypeAddress
		valueData["value"] = value.(common.Address).Hex()
	} else if valueType.T == abi.UintTy || valueType.T == abi.IntTy {
		integer, err := abiValueToBigInt(value)
		if err != nil {
			return nil, err
		}
		valueData["type"] = ArgumentValueTypeInteger
		valueData["unsigned"] = valueType.T == abi.UintTy
		valueData["size"] = valueType.Size
		valueData["value"] = integer.String()
	} else if valueType.T == abi.BoolTy {
		valueData["type"] = ArgumentValueTypeBool
		valueData["value"] = value
	} else if valueType.T == abi.StringTy {
		valueData["type"] = ArgumentValueTypeString
		valueData["value"] = value
	} else if valueType.T == abi.BytesTy {
		valueData["type"] = ArgumentValueTypeBytes
		valueData["value"] = hexutil.Encode(value.([]byte))
	} else if valueType.T == abi.FixedBytesTy {
		valueData["type"] = ArgumentValueTypeFixedBytes
		valueData["size"] = valueType.Size
		valueData["value"] = hexutil.Encode(reflectionutils.ArrayToSlice(reflect.ValueOf(value)).([]byte))
	} else if valueType.T == abi.ArrayTy || valueType.T == abi.SliceTy {
		if valueType.T == abi.ArrayTy {
			valueData["type"] = ArgumentValueTypeArray
			valueData["size"] = valueType.Size
		} else {
			valueData["type"] = ArgumentValueTypeSlice
		}

		// Convert all underlying elements.
		reflectedArray := reflect.ValueOf(value)
		elementData := make([]any, 0)
		for i := 0; i < reflectedArray.Len(); i++ {
			element, err := AbiValueToMap(valueType.Elem, reflectedArray.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			elementData = append(elementData, element)
		}
		valueData["value"] = elementData
	} else if valueType.T == abi.TupleTy {
		valueData["type"] = ArgumentValueTypeTuple

		// Convert all underlying fields.
		reflectedTuple := reflect.ValueOf(value)
		tupleData := make([]any, 0)
		for i := 0; i < len(valueType.TupleElems); i++ {
			fieldData, err := AbiValueToMap(valueType.TupleElems[i], reflectionutils.GetField(reflectedTuple.Field(i)))
			if err != nil {
				return nil, err
			}
			tupleData = append(tupleData, fieldData)
		}
		valueData["value"] = tupleData
	} else {
		return nil, errors.Errorf("attempt to encode function argument of unsupported type: '%s'", valueType.String())
	}
	return valueData, nil
}

// AbiValueFromMap takes an ABI value type definition and decodes the value encoded in the provided map. The map is
// expected to have been produced by AbiValueToMap, potentially after a JSON round trip.
func AbiValueFromMap(valueType *abi.Type, valueData map[string]any) (any, error) {
	errValueTypeMismatch := errors.New("failed to decode ABI value, the 'type' key did not match the definition")

	// Every value has a 'type' and 'value' key.
	rawType, ok := valueData["type"]
	if !ok {
		return nil, errors.New("failed to decode ABI value, the 'type' key did not exist")
	}
	valueDataType, ok := rawType.(string)
	if !ok {
		return nil, errors.New("failed to decode ABI value, the 'type' key was the wrong type")
	}
	valueDataValue, ok := valueData["value"]
	if !ok {
		return nil, errors.New("failed to decode ABI value, the 'value' key did not exist")
	}

	if valueType.T == abi.AddressTy {
		if valueDataType != ArgumentValueTypeAddress {
			return nil, errValueTypeMismatch
		}
		hexStr, ok := valueDataValue.(string)
		if !ok || !common.IsHexAddress(hexStr) {
			return nil, errors.New("failed to decode ABI value, expected a hex address string")
		}
		return common.HexToAddress(hexStr), nil
	} else if valueType.T == abi.UintTy || valueType.T == abi.IntTy {
		if valueDataType != ArgumentValueTypeInteger {
			return nil, errValueTypeMismatch
		}
		unsigned, ok := valueData["unsigned"].(bool)
		if !ok || unsigned != (valueType.T == abi.UintTy) {
			return nil, errors.New("failed to decode ABI value, the 'unsigned' key for an integer type did not match the definition")
		}
		decimalStr, ok := valueDataValue.(string)
		if !ok {
			return nil, errors.New("failed to decode ABI value, expected a decimal string for an integer type")
		}
		integer, parsed := new(big.Int).SetString(decimalStr, 10)
		if !parsed {
			return nil, errors.Errorf("failed to decode ABI value, %q is not a valid decimal integer", decimalStr)
		}
		return bigIntToAbiValue(integer, valueType.T == abi.IntTy, valueType.Size), nil
	} else if valueType.T == abi.BoolTy {
		if valueDataType != ArgumentValueTypeBool {
			return nil, errValueTypeMismatch
		}
		return valueDataValue.(bool), nil
	} else if valueType.T == abi.StringTy {
		if valueDataType != ArgumentValueTypeString {
			return nil, errValueTypeMismatch
		}
		return valueDataValue.(string), nil
	} else if valueType.T == abi.BytesTy {
		if valueDataType != ArgumentValueTypeBytes {
			return nil, errValueTypeMismatch
		}
		return hexutil.Decode(valueDataValue.(string))
	} else if valueType.T == abi.FixedBytesTy {
		if valueDataType != ArgumentValueTypeFixedBytes {
			return nil, errValueTypeMismatch
		}
		decoded, err := hexutil.Decode(valueDataValue.(string))
		if err != nil {
			return nil, err
		}
		if len(decoded) != valueType.Size {
			return nil, errors.New("failed to decode ABI value, the fixed bytes length did not match the definition")
		}
		return reflectionutils.SliceToArray(reflect.ValueOf(decoded)), nil
	} else if valueType.T == abi.ArrayTy {
		if valueDataType != ArgumentValueTypeArray {
			return nil, errValueTypeMismatch
		}

		// Create an array of the defined type.
		array := reflect.Indirect(reflect.New(valueType.GetType()))
		valueDataValueSlice := valueDataValue.([]any)
		if len(valueDataValueSlice) != array.Len() {
			return nil, errors.New("failed to decode ABI value, the array length did not match the definition")
		}
		for i := 0; i < array.Len(); i++ {
			elementValue, err := AbiValueFromMap(valueType.Elem, valueDataValueSlice[i].(map[string]any))
			if err != nil {
				return nil, err
			}
			array.Index(i).Set(reflect.ValueOf(elementValue))
		}
		return array.Interface(), nil
	} else if valueType.T == abi.SliceTy {
		if valueDataType != ArgumentValueTypeSlice {
			return nil, errValueTypeMismatch
		}

		// Convert all underlying elements in our slice.
		valueDataValueSlice := valueDataValue.([]any)
		slice := reflect.MakeSlice(valueType.GetType(), len(valueDataValueSlice), len(valueDataValueSlice))
		for i := 0; i < slice.Len(); i++ {
			elementValue, err := AbiValueFromMap(valueType.Elem, valueDataValueSlice[i].(map[string]any))
			if err != nil {
				return nil, err
			}
			slice.Index(i).Set(reflect.ValueOf(elementValue))
		}
		return slice.Interface(), nil
	} else if valueType.T == abi.TupleTy {
		if valueDataType != ArgumentValueTypeTuple {
			return nil, errValueTypeMismatch
		}

		// Tuples are used to represent structs, which we create and populate through reflection.
		valueDataValueSlice := valueDataValue.([]any)
		st := reflect.Indirect(reflect.New(valueType.GetType()))
		for i := 0; i < len(valueType.TupleElems); i++ {
			elementValue, err := AbiValueFromMap(valueType.TupleElems[i], valueDataValueSlice[i].(map[string]any))
			if err != nil {
				return nil, err
			}
			st.Field(i).Set(reflect.ValueOf(elementValue))
		}
		return st.Interface(), nil
	}

	return nil, errors.Errorf("attempt to decode function argument of unsupported type: '%s'", valueType.String())
}

// AbiValuesToMaps encodes a list of ABI values against their argument definitions.
func AbiValuesToMaps(inputs abi.Arguments, values []any) ([]map[string]any, error) {
	if len(inputs) != len(values) {
		return nil, errors.Errorf("could not encode values, expected %d but was provided %d", len(inputs), len(values))
	}
	encoded := make([]map[string]any, len(inputs))
	for i, input := range inputs {
		valueData, err := AbiValueToMap(&input.Type, values[i])
		if err != nil {
			return nil, err
		}
		encoded[i] = valueData
	}
	return encoded, nil
}

// AbiValuesFromMaps decodes a list of encoded ABI value maps against their argument definitions.
func AbiValuesFromMaps(inputs abi.Arguments, encoded []map[string]any) ([]any, error) {
	if len(inputs) != len(encoded) {
		return nil, errors.Errorf("could not decode values, expected %d but was provided %d", len(inputs), len(encoded))
	}
	values := make([]any, len(inputs))
	for i, input := range inputs {
		value, err := AbiValueFromMap(&input.Type, encoded[i])
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}
