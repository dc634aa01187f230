package utils

import "math/big"

// ConstrainIntegerToBitLength takes a provided big integer and a signed/unsigned indicator, ensuring the value
// is wrapped around the maximum and minimum value bounds which the provided bit length supports.
func ConstrainIntegerToBitLength(b *big.Int, signed bool, bitLength int) *big.Int {
	// Calculate our min and maximum bounds for this integer type, then constrain to them.
	min, max := GetIntegerConstraints(signed, bitLength)
	return ConstrainIntegerToBounds(b, min, max)
}

// ConstrainIntegerToBounds takes a provided big integer and minimum/maximum bounds (inclusive), wrapping the value
// around the bounds if it exceeds them in either direction.
func ConstrainIntegerToBounds(b *big.Int, min *big.Int, max *big.Int) *big.Int {
	// Get the range of this integer space
	rangeSize := new(big.Int).Sub(max, min)
	rangeSize = rangeSize.Add(rangeSize, big.NewInt(1))

	// If we overflowed, wrap around the maximum back to the minimum.
	if b.Cmp(max) > 0 {
		distance := new(big.Int).Sub(b, max)
		distance = distance.Sub(distance, big.NewInt(1))
		distance = distance.Mod(distance, rangeSize)
		return new(big.Int).Add(min, distance)
	}

	// If we underflowed, wrap around the minimum back to the maximum.
	if b.Cmp(min) < 0 {
		distance := new(big.Int).Sub(min, b)
		distance = distance.Sub(distance, big.NewInt(1))
		distance = distance.Mod(distance, rangeSize)
		return new(big.Int).Sub(max, distance)
	}

	// The value is within bounds already.
	return b
}

// GetIntegerConstraints takes a provided signed/unsigned indicator and bit length for an integer type and returns
// the minimum and maximum value bounds (inclusive) which an integer of this type can express.
func GetIntegerConstraints(signed bool, bitLength int) (*big.Int, *big.Int) {
	var min, max *big.Int
	if signed {
		// Set max as (2^(bitLength-1)) - 1
		max = new(big.Int).Lsh(big.NewInt(1), uint(bitLength-1))
		max = max.Sub(max, big.NewInt(1))

		// Set min as -(2^(bitLength-1))
		min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bitLength-1)))
	} else {
		// Set max as (2^bitLength) - 1
		max = new(big.Int).Lsh(big.NewInt(1), uint(bitLength))
		max = max.Sub(max, big.NewInt(1))

		// Set min as zero
		min = big.NewInt(0)
	}
	return min, max
}
