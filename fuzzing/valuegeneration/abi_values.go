package valuegeneration

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/charybdis-fuzz/charybdis/utils/reflectionutils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// GenerateAbiValue generates a value of the provided abi.Type using the provided ValueGenerator.
// The generated value is returned.
func GenerateAbiValue(generator ValueGenerator, inputType *abi.Type) any {
	// Determine the type of value to generate based on the ABI type.
	if inputType.T == abi.AddressTy {
		return generator.GenerateAddress()
	} else if inputType.T == abi.UintTy {
		if inputType.Size == 64 {
			return generator.GenerateInteger(false, inputType.Size).Uint64()
		} else if inputType.Size == 32 {
			return uint32(generator.GenerateInteger(false, inputType.Size).Uint64())
		} else if inputType.Size == 16 {
			return uint16(generator.GenerateInteger(false, inputType.Size).Uint64())
		} else if inputType.Size == 8 {
			return uint8(generator.GenerateInteger(false, inputType.Size).Uint64())
		} else {
			return generator.GenerateInteger(false, inputType.Size)
		}
	} else if inputType.T == abi.IntTy {
		if inputType.Size == 64 {
			return generator.GenerateInteger(true, inputType.Size).Int64()
		} else if inputType.Size == 32 {
			return int32(generator.GenerateInteger(true, inputType.Size).Int64())
		} else if inputType.Size == 16 {
			return int16(generator.GenerateInteger(true, inputType.Size).Int64())
		} else if inputType.Size == 8 {
			return int8(generator.GenerateInteger(true, inputType.Size).Int64())
		} else {
			return generator.GenerateInteger(true, inputType.Size)
		}
	} else if inputType.T == abi.BoolTy {
		return generator.GenerateBool()
	} else if inputType.T == abi.StringTy {
		return generator.GenerateString()
	} else if inputType.T == abi.BytesTy {
		return generator.GenerateBytes()
	} else if inputType.T == abi.FixedBytesTy {
		// This needs to be an array type, not a slice. But arrays can't be dynamically defined without reflection.
		// We opt to keep our API for generators simple, creating the array here and copying elements from a slice.
		array := reflect.Indirect(reflect.New(inputType.GetType()))
		bytes := reflect.ValueOf(generator.GenerateFixedBytes(inputType.Size))
		for i := 0; i < array.Len(); i++ {
			array.Index(i).Set(bytes.Index(i))
		}
		return array.Interface()
	} else if inputType.T == abi.ArrayTy {
		// Read notes for fixed bytes to understand the need to create this array through reflection.
		array := reflect.Indirect(reflect.New(inputType.GetType()))
		for i := 0; i < array.Len(); i++ {
			array.Index(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.Elem)))
		}
		return array.Interface()
	} else if inputType.T == abi.SliceTy {
		// Dynamic sized arrays are represented as slices.
		sliceSize := generator.GenerateArrayLength()
		slice := reflect.MakeSlice(inputType.GetType(), sliceSize, sliceSize)
		for i := 0; i < slice.Len(); i++ {
			slice.Index(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.Elem)))
		}
		return slice.Interface()
	} else if inputType.T == abi.TupleTy {
		// Tuples are used to represent structs. For go-ethereum's ABI provider, we're intended to supply matching
		// struct implementations, so we create and populate them through reflection.
		st := reflect.Indirect(reflect.New(inputType.GetType()))
		for i := 0; i < len(inputType.TupleElems); i++ {
			st.Field(i).Set(reflect.ValueOf(GenerateAbiValue(generator, inputType.TupleElems[i])))
		}
		return st.Interface()
	}

	// Unexpected types will result in a panic as we should support these values as soon as possible:
	// - Mappings cannot be used in public/external methods and must reference storage, so we shouldn't ever
	//	 see cases of it unless Solidity was updated in the future.
	// - FixedPoint types are currently unsupported.
	panic(fmt.Sprintf("attempt to generate function argument of unsupported type: '%s'", inputType.String()))
}

// MutateAbiValue takes an existing ABI value and returns a mutated copy of it, produced by the provided
// ValueMutator. The provided ValueGenerator is used to generate fresh elements where the mutation introduces new
// positions (e.g. grown slices).
func MutateAbiValue(generator ValueGenerator, mutator ValueMutator, inputType *abi.Type, value any) (any, error) {
	if inputType.T == abi.AddressTy {
		addr, ok := value.(common.Address)
		if !ok {
			return nil, errors.New("could not mutate address input as the value provided is not an address type")
		}
		return mutator.MutateAddress(addr), nil
	} else if inputType.T == abi.UintTy || inputType.T == abi.IntTy {
		signed := inputType.T == abi.IntTy
		integer, err := abiValueToBigInt(value)
		if err != nil {
			return nil, err
		}
		mutated := mutator.MutateInteger(integer, signed, inputType.Size)
		return bigIntToAbiValue(mutated, signed, inputType.Size), nil
	} else if inputType.T == abi.BoolTy {
		bl, ok := value.(bool)
		if !ok {
			return nil, errors.New("could not mutate bool input as the value provided is not a bool type")
		}
		return mutator.MutateBool(bl), nil
	} else if inputType.T == abi.StringTy {
		str, ok := value.(string)
		if !ok {
			return nil, errors.New("could not mutate string input as the value provided is not a string type")
		}
		return mutator.MutateString(str), nil
	} else if inputType.T == abi.BytesTy {
		b, ok := value.([]byte)
		if !ok {
			return nil, errors.New("could not mutate bytes input as the value provided is not a bytes type")
		}
		// Mutate a copy so the original value remains usable if the mutated candidate is discarded.
		mutated := mutator.MutateBytes(append([]byte{}, b...))
		return mutated, nil
	} else if inputType.T == abi.FixedBytesTy {
		b, ok := reflectionutils.ArrayToSlice(reflect.ValueOf(value)).([]byte)
		if !ok {
			return nil, errors.New("could not mutate fixed bytes input as the value provided is not a fixed bytes type")
		}
		mutated := mutator.MutateFixedBytes(b)
		return reflectionutils.SliceToArray(reflect.ValueOf(mutated)), nil
	} else if inputType.T == abi.ArrayTy {
		// Mutate each element of the fixed-length array in place.
		array := reflectionutils.CopyReflectedType(reflect.ValueOf(value))
		for i := 0; i < array.Len(); i++ {
			mutatedElement, err := MutateAbiValue(generator, mutator, inputType.Elem, array.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			array.Index(i).Set(reflect.ValueOf(mutatedElement))
		}
		return array.Interface(), nil
	} else if inputType.T == abi.SliceTy {
		// Mutate each element of the dynamic array. Element count is preserved; length mutations are handled by
		// the element generators during sequence generation, not during value mutation.
		slice := reflectionutils.CopyReflectedType(reflect.ValueOf(value))
		for i := 0; i < slice.Len(); i++ {
			mutatedElement, err := MutateAbiValue(generator, mutator, inputType.Elem, slice.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			slice.Index(i).Set(reflect.ValueOf(mutatedElement))
		}
		return slice.Interface(), nil
	} else if inputType.T == abi.TupleTy {
		st := reflectionutils.CopyReflectedType(reflect.Indirect(reflect.ValueOf(value)))
		for i := 0; i < len(inputType.TupleElems); i++ {
			mutatedField, err := MutateAbiValue(generator, mutator, inputType.TupleElems[i], reflectionutils.GetField(st.Field(i)))
			if err != nil {
				return nil, err
			}
			st.Field(i).Set(reflect.ValueOf(mutatedField))
		}
		return st.Interface(), nil
	}

	return nil, errors.Errorf("attempt to mutate function argument of unsupported type: '%s'", inputType.String())
}

// abiValueToBigInt normalizes any supported ABI integer representation into a big.Int.
func abiValueToBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	}
	return nil, errors.Errorf("could not normalize integer input of type %T", value)
}

// bigIntToAbiValue converts a big.Int back into the primitive representation go-ethereum's ABI codec expects for
// the provided integer size.
func bigIntToAbiValue(i *big.Int, signed bool, size int) any {
	if signed {
		switch size {
		case 64:
			return i.Int64()
		case 32:
			return int32(i.Int64())
		case 16:
			return int16(i.Int64())
		case 8:
			return int8(i.Int64())
		}
		return i
	}
	switch size {
	case 64:
		return i.Uint64()
	case 32:
		return uint32(i.Uint64())
	case 16:
		return uint16(i.Uint64())
	case 8:
		return uint8(i.Uint64())
	}
	return i
}

// EncodeABIArgumentsToString encodes the provided ABI values into a comma-separated display string matching the
// ordering of the provided argument definitions.
func EncodeABIArgumentsToString(inputs abi.Arguments, values []any) (string, error) {
	if len(inputs) != len(values) {
		return "", errors.Errorf("could not encode arguments, expected %d values but was provided %d", len(inputs), len(values))
	}

	encoded := make([]string, len(inputs))
	for i, input := range inputs {
		encodedArg, err := encodeABIArgumentToString(&input.Type, values[i])
		if err != nil {
			return "", err
		}
		encoded[i] = encodedArg
	}
	return strings.Join(encoded, ", "), nil
}

// encodeABIArgumentToString encodes a single ABI value into a display string.
func encodeABIArgumentToString(inputType *abi.Type, value any) (string, error) {
	switch inputType.T {
	case abi.AddressTy:
		addr, ok := value.(common.Address)
		if !ok {
			return "", errors.New("could not encode address as the value provided is not an address type")
		}
		return addr.String(), nil
	case abi.UintTy, abi.IntTy:
		integer, err := abiValueToBigInt(value)
		if err != nil {
			return "", err
		}
		return integer.String(), nil
	case abi.BoolTy:
		return fmt.Sprintf("%v", value), nil
	case abi.StringTy:
		return fmt.Sprintf("%q", value), nil
	case abi.BytesTy:
		b, ok := value.([]byte)
		if !ok {
			return "", errors.New("could not encode bytes as the value provided is not a bytes type")
		}
		return hexutil.Encode(b), nil
	case abi.FixedBytesTy:
		b, ok := reflectionutils.ArrayToSlice(reflect.ValueOf(value)).([]byte)
		if !ok {
			return "", errors.New("could not encode fixed bytes as the value provided is not a fixed bytes type")
		}
		return hexutil.Encode(b), nil
	case abi.ArrayTy, abi.SliceTy:
		reflected := reflect.ValueOf(value)
		elements := make([]string, reflected.Len())
		for i := 0; i < reflected.Len(); i++ {
			encodedElement, err := encodeABIArgumentToString(inputType.Elem, reflected.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elements[i] = encodedElement
		}
		return "[" + strings.Join(elements, ", ") + "]", nil
	case abi.TupleTy:
		reflected := reflect.Indirect(reflect.ValueOf(value))
		fields := make([]string, len(inputType.TupleElems))
		for i := 0; i < len(inputType.TupleElems); i++ {
			encodedField, err := encodeABIArgumentToString(inputType.TupleElems[i], reflectionutils.GetField(reflected.Field(i)))
			if err != nil {
				return "", err
			}
			fields[i] = encodedField
		}
		return "(" + strings.Join(fields, ", ") + ")", nil
	}
	return "", errors.Errorf("attempt to encode function argument of unsupported type: '%s'", inputType.String())
}
