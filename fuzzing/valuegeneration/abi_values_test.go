package valuegeneration

import (
	"encoding/json"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testABIArguments obtains ABI arguments covering every supported value type, including nested ones.
func testABIArguments(t *testing.T) abi.Arguments {
	mustType := func(typeName string, components []abi.ArgumentMarshaling) abi.Type {
		parsed, err := abi.NewType(typeName, "", components)
		require.NoError(t, err)
		return parsed
	}

	return abi.Arguments{
		{Name: "testAddress", Type: mustType("address", nil)},
		{Name: "testUint256", Type: mustType("uint256", nil)},
		{Name: "testUint8", Type: mustType("uint8", nil)},
		{Name: "testInt64", Type: mustType("int64", nil)},
		{Name: "testBool", Type: mustType("bool", nil)},
		{Name: "testString", Type: mustType("string", nil)},
		{Name: "testBytes", Type: mustType("bytes", nil)},
		{Name: "testFixedBytes", Type: mustType("bytes4", nil)},
		{Name: "testSlice", Type: mustType("uint256[]", nil)},
		{Name: "testArray", Type: mustType("uint8[3]", nil)},
		{Name: "testNestedSlice", Type: mustType("string[][]", nil)},
		{Name: "testTuple", Type: mustType("tuple", []abi.ArgumentMarshaling{
			{Name: "owner", Type: "address"},
			{Name: "balance", Type: "uint256"},
			{Name: "frozen", Type: "bool"},
		})},
	}
}

func testRandomGenerator(seed int64) *RandomValueGenerator {
	return NewRandomValueGenerator(&RandomValueGeneratorConfig{
		GenerateRandomArrayMinSize:  0,
		GenerateRandomArrayMaxSize:  5,
		GenerateRandomBytesMinSize:  0,
		GenerateRandomBytesMaxSize:  64,
		GenerateRandomStringMinSize: 0,
		GenerateRandomStringMaxSize: 64,
	}, rand.New(rand.NewSource(seed)))
}

// TestAbiValueMapsJSONRoundTrip generates random values for every supported argument type and checks the
// type-tagged map encoding survives a JSON round trip and decodes back to equal values.
func TestAbiValueMapsJSONRoundTrip(t *testing.T) {
	args := testABIArguments(t)
	generator := testRandomGenerator(12345)

	for i := 0; i < 20; i++ {
		values := make([]any, len(args))
		for j, arg := range args {
			argType := arg.Type
			values[j] = GenerateAbiValue(generator, &argType)
		}

		encoded, err := AbiValuesToMaps(args, values)
		require.NoError(t, err)

		// Simulate the on-disk representation.
		serialized, err := json.Marshal(encoded)
		require.NoError(t, err)
		var deserialized []map[string]any
		require.NoError(t, json.Unmarshal(serialized, &deserialized))

		decoded, err := AbiValuesFromMaps(args, deserialized)
		require.NoError(t, err)
		assert.Equal(t, values, decoded)
	}
}

// TestAbiValuesToMapsLengthMismatch checks an argument count mismatch is rejected on both paths.
func TestAbiValuesToMapsLengthMismatch(t *testing.T) {
	args := testABIArguments(t)[:2]
	_, err := AbiValuesToMaps(args, []any{big.NewInt(1)})
	assert.Error(t, err)
	_, err = AbiValuesFromMaps(args, []map[string]any{{"type": ArgumentValueTypeInteger, "value": "1"}})
	assert.Error(t, err)
}

// TestAbiValueFromMapRejectsTypeMismatch checks decoding fails when the tagged type contradicts the definition.
func TestAbiValueFromMapRejectsTypeMismatch(t *testing.T) {
	uintType, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)

	_, err = AbiValueFromMap(&uintType, map[string]any{"type": ArgumentValueTypeString, "value": "hello"})
	assert.Error(t, err)
	_, err = AbiValueFromMap(&uintType, map[string]any{"value": "1"})
	assert.Error(t, err)
	_, err = AbiValueFromMap(&uintType, map[string]any{"type": ArgumentValueTypeInteger, "unsigned": true})
	assert.Error(t, err)
	_, err = AbiValueFromMap(&uintType, map[string]any{"type": ArgumentValueTypeInteger, "unsigned": false, "value": "1"})
	assert.Error(t, err)
}

// TestGenerateAbiValueProducesBoundedIntegers checks generated integers respect the type's bit length.
func TestGenerateAbiValueProducesBoundedIntegers(t *testing.T) {
	generator := testRandomGenerator(777)
	uint8Type, err := abi.NewType("uint8", "", nil)
	require.NoError(t, err)
	int8Type, err := abi.NewType("int8", "", nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		unsigned := GenerateAbiValue(generator, &uint8Type).(uint8)
		_ = unsigned

		signed := GenerateAbiValue(generator, &int8Type).(int8)
		assert.GreaterOrEqual(t, int(signed), -128)
		assert.LessOrEqual(t, int(signed), 127)
	}
}

// TestMutateAbiValuePreservesTypes checks a shrinking mutation pass yields values of the same dynamic type as
// its inputs, so mutated calls still ABI-encode.
func TestMutateAbiValuePreservesTypes(t *testing.T) {
	args := testABIArguments(t)
	generator := testRandomGenerator(999)
	mutator := NewShrinkingValueMutator(&ShrinkingValueMutatorConfig{ShrinkValueProbability: 1}, NewValueSet(), rand.New(rand.NewSource(999)))

	for i := 0; i < 20; i++ {
		for _, arg := range args {
			argType := arg.Type
			value := GenerateAbiValue(generator, &argType)
			mutated, err := MutateAbiValue(generator, mutator, &argType, value)
			require.NoError(t, err)
			assert.IsType(t, value, mutated)

			// Mutated values must still pack against the original definition.
			_, err = abi.Arguments{arg}.Pack(mutated)
			assert.NoError(t, err)
		}
	}
}
