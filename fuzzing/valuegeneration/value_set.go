package valuegeneration

import (
	"encoding/hex"
	"hash"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/maps"
)

// ValueSet is the campaign dictionary: the addresses, integers, strings and byte sequences observed to be
// state-relevant so far, used to bias argument generation. Entries are deduplicated per kind; integers key on
// their decimal form and byte sequences on their keccak hash.
type ValueSet struct {
	// addresses describes the address entries of the dictionary.
	addresses map[common.Address]struct{}

	// integers describes the integer entries, keyed by decimal string.
	integers map[string]*big.Int

	// strings describes the string entries.
	strings map[string]struct{}

	// bytes describes the byte sequence entries, keyed by hex-encoded keccak hash.
	bytes map[string][]byte

	// hashProvider computes the byte sequence keys.
	hashProvider hash.Hash
}

// NewValueSet creates an empty ValueSet.
func NewValueSet() *ValueSet {
	return &ValueSet{
		addresses:    make(map[common.Address]struct{}),
		integers:     make(map[string]*big.Int),
		strings:      make(map[string]struct{}),
		bytes:        make(map[string][]byte),
		hashProvider: sha3.NewLegacyKeccak256(),
	}
}

// Clone creates an independent copy of the set. Later additions to either set do not affect the other.
func (vs *ValueSet) Clone() *ValueSet {
	return &ValueSet{
		addresses:    maps.Clone(vs.addresses),
		integers:     maps.Clone(vs.integers),
		strings:      maps.Clone(vs.strings),
		bytes:        maps.Clone(vs.bytes),
		hashProvider: sha3.NewLegacyKeccak256(),
	}
}

// Size returns the total number of entries across all kinds. Growth of this count during a run marks the run as
// interesting.
func (vs *ValueSet) Size() int {
	return len(vs.addresses) + len(vs.integers) + len(vs.strings) + len(vs.bytes)
}

// Addresses returns the address entries of the set.
func (vs *ValueSet) Addresses() []common.Address {
	return maps.Keys(vs.addresses)
}

// AddAddress adds an address entry to the set.
func (vs *ValueSet) AddAddress(a common.Address) {
	vs.addresses[a] = struct{}{}
}

// ContainsAddress reports whether the provided address is an entry of the set.
func (vs *ValueSet) ContainsAddress(a common.Address) bool {
	_, contains := vs.addresses[a]
	return contains
}

// RemoveAddress removes an address entry from the set.
func (vs *ValueSet) RemoveAddress(a common.Address) {
	delete(vs.addresses, a)
}

// Integers returns the integer entries of the set.
func (vs *ValueSet) Integers() []*big.Int {
	return maps.Values(vs.integers)
}

// AddInteger adds an integer entry to the set.
func (vs *ValueSet) AddInteger(b *big.Int) {
	vs.integers[b.String()] = b
}

// RemoveInteger removes an integer entry from the set.
func (vs *ValueSet) RemoveInteger(b *big.Int) {
	delete(vs.integers, b.String())
}

// Strings returns the string entries of the set.
func (vs *ValueSet) Strings() []string {
	return maps.Keys(vs.strings)
}

// AddString adds a string entry to the set.
func (vs *ValueSet) AddString(s string) {
	vs.strings[s] = struct{}{}
}

// RemoveString removes a string entry from the set.
func (vs *ValueSet) RemoveString(s string) {
	delete(vs.strings, s)
}

// Bytes returns the byte sequence entries of the set.
func (vs *ValueSet) Bytes() [][]byte {
	return maps.Values(vs.bytes)
}

// AddBytes adds a byte sequence entry to the set.
func (vs *ValueSet) AddBytes(b []byte) {
	vs.bytes[vs.bytesKey(b)] = b
}

// RemoveBytes removes a byte sequence entry from the set.
func (vs *ValueSet) RemoveBytes(b []byte) {
	delete(vs.bytes, vs.bytesKey(b))
}

// bytesKey computes the deduplication key of a byte sequence.
func (vs *ValueSet) bytesKey(b []byte) string {
	vs.hashProvider.Write(b)
	key := hex.EncodeToString(vs.hashProvider.Sum(nil))
	vs.hashProvider.Reset()
	return key
}
