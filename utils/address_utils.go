package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// HexStringToAddress converts a hex string (with or without the "0x" prefix) to a common.Address. Returns the parsed
// address, or an error if one occurs during conversion.
func HexStringToAddress(addressHexString string) (common.Address, error) {
	// Remove the 0x prefix and ensure we have a valid address length
	trimmedString := strings.TrimPrefix(addressHexString, "0x")
	if len(trimmedString) != common.AddressLength*2 {
		return common.Address{}, fmt.Errorf("invalid address provided: %v", addressHexString)
	}

	// Decode the string into an address
	if !common.IsHexAddress(addressHexString) {
		return common.Address{}, fmt.Errorf("invalid address provided: %v", addressHexString)
	}
	return common.HexToAddress(addressHexString), nil
}

// HexStringsToAddresses converts hex strings (with or without the "0x" prefix) to common.Address objects. Returns the
// parsed addresses, or an error if one occurs during conversion.
func HexStringsToAddresses(addressHexStrings []string) ([]common.Address, error) {
	// Create our array of address types
	addresses := make([]common.Address, 0, len(addressHexStrings))

	// Convert all hex strings to address types
	for _, addressHexString := range addressHexStrings {
		address, err := HexStringToAddress(addressHexString)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}

// AddressesContain returns a boolean indicating whether the provided address is present in the provided address slice.
func AddressesContain(addresses []common.Address, address common.Address) bool {
	for _, a := range addresses {
		if a == address {
			return true
		}
	}
	return false
}
