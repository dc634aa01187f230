package targeting

import (
	"encoding/binary"

	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// defaultSenderCount is the number of pseudo-random sender addresses generated when neither the test contract nor
// the project configuration provides a sender pool.
const defaultSenderCount = 5

// deniedSenders describes infrastructure addresses which must never be used as call senders: the cheat primitive
// address, the console logging address, the deterministic create2 deployer, the zero address and the precompiles.
var deniedSenders = func() map[common.Address]struct{} {
	denied := map[common.Address]struct{}{
		common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D"): {},
		common.HexToAddress("0x000000000000000000636F6e736F6c652e6c6f67"): {},
		common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C"): {},
		common.Address{}: {},
	}
	for i := 1; i <= 9; i++ {
		denied[common.BytesToAddress([]byte{byte(i)})] = struct{}{}
	}
	return denied
}()

// DefaultSenderPool returns the built-in deterministic pseudo-random sender addresses. Addresses are derived by
// hashing a fixed tag with an index, so the pool is stable across runs and versions of the engine.
func DefaultSenderPool() []common.Address {
	senders := make([]common.Address, 0, defaultSenderCount)
	for i := uint64(0); len(senders) < defaultSenderCount; i++ {
		preimage := make([]byte, 8+len("charybdis.sender"))
		copy(preimage, "charybdis.sender")
		binary.BigEndian.PutUint64(preimage[len("charybdis.sender"):], i)
		candidate := common.BytesToAddress(crypto.Keccak256(preimage)[12:])
		if _, denied := deniedSenders[candidate]; denied {
			continue
		}
		senders = append(senders, candidate)
	}
	return senders
}

// IsDeniedSender reports whether the provided address belongs to the fixed infrastructure deny-list.
func IsDeniedSender(addr common.Address) bool {
	_, denied := deniedSenders[addr]
	return denied
}

// filterSenders removes denied addresses, excluded addresses and the test contract address from the provided
// sender pool, preserving order and deduplicating.
func filterSenders(pool []common.Address, excluded []common.Address, testContract common.Address) []common.Address {
	filtered := make([]common.Address, 0, len(pool))
	for _, addr := range pool {
		if utils.AddressesContain(filtered, addr) {
			continue
		}
		if IsDeniedSender(addr) || addr == testContract {
			continue
		}
		if utils.AddressesContain(excluded, addr) {
			continue
		}
		filtered = append(filtered, addr)
	}
	return filtered
}
