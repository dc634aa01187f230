package corpus

import (
	"math/big"
	"path/filepath"
	"time"

	"github.com/charybdis-fuzz/charybdis/fuzzing/valuegeneration"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// Bucket names used by the persisted value dictionary.
var (
	dictionaryAddressBucket = []byte("addresses")
	dictionaryIntegerBucket = []byte("integers")
	dictionaryStringBucket  = []byte("strings")
	dictionaryBytesBucket   = []byte("bytes")
)

// ValueDictionary persists dictionary values scraped during fuzzing campaigns across runs, backed by a bbolt
// database in the test's corpus directory. Values are CBOR-encoded and keyed by their hash for deduplication.
type ValueDictionary struct {
	db *bbolt.DB
}

// OpenValueDictionary opens (or creates) the persisted value dictionary database within the provided directory.
func OpenValueDictionary(dir string) (*ValueDictionary, error) {
	db, err := bbolt.Open(filepath.Join(dir, "values.db"), 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not open value dictionary database")
	}

	// Create our buckets if they do not exist yet.
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{dictionaryAddressBucket, dictionaryIntegerBucket, dictionaryStringBucket, dictionaryBytesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize value dictionary buckets")
	}
	return &ValueDictionary{db: db}, nil
}

// dictionaryKey derives a deduplicating key for a serialized value.
func dictionaryKey(serialized []byte) []byte {
	return crypto.Keccak256(serialized)
}

// SeedValueSet loads every persisted dictionary value into the provided value set.
func (d *ValueDictionary) SeedValueSet(valueSet *valuegeneration.ValueSet) error {
	return d.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(dictionaryAddressBucket).ForEach(func(k, v []byte) error {
			var addrBytes []byte
			if err := cbor.Unmarshal(v, &addrBytes); err != nil {
				return err
			}
			valueSet.AddAddress(common.BytesToAddress(addrBytes))
			return nil
		})
		if err != nil {
			return err
		}

		err = tx.Bucket(dictionaryIntegerBucket).ForEach(func(k, v []byte) error {
			var decimal string
			if err := cbor.Unmarshal(v, &decimal); err != nil {
				return err
			}
			integer, parsed := new(big.Int).SetString(decimal, 10)
			if !parsed {
				return errors.Errorf("value dictionary carried a malformed integer: %q", decimal)
			}
			valueSet.AddInteger(integer)
			return nil
		})
		if err != nil {
			return err
		}

		err = tx.Bucket(dictionaryStringBucket).ForEach(func(k, v []byte) error {
			var str string
			if err := cbor.Unmarshal(v, &str); err != nil {
				return err
			}
			valueSet.AddString(str)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(dictionaryBytesBucket).ForEach(func(k, v []byte) error {
			var b []byte
			if err := cbor.Unmarshal(v, &b); err != nil {
				return err
			}
			valueSet.AddBytes(b)
			return nil
		})
	})
}

// SaveValueSet persists every value of the provided value set into the dictionary database. Values already
// persisted are overwritten in place, keeping the database deduplicated.
func (d *ValueDictionary) SaveValueSet(valueSet *valuegeneration.ValueSet) error {
	encOpts := cbor.EncOptions{}
	return d.db.Update(func(tx *bbolt.Tx) error {
		for _, addr := range valueSet.Addresses() {
			serialized, err := cbor.Marshal(addr.Bytes(), encOpts)
			if err != nil {
				return err
			}
			if err = tx.Bucket(dictionaryAddressBucket).Put(dictionaryKey(serialized), serialized); err != nil {
				return err
			}
		}
		for _, integer := range valueSet.Integers() {
			serialized, err := cbor.Marshal(integer.String(), encOpts)
			if err != nil {
				return err
			}
			if err = tx.Bucket(dictionaryIntegerBucket).Put(dictionaryKey(serialized), serialized); err != nil {
				return err
			}
		}
		for _, str := range valueSet.Strings() {
			serialized, err := cbor.Marshal(str, encOpts)
			if err != nil {
				return err
			}
			if err = tx.Bucket(dictionaryStringBucket).Put(dictionaryKey(serialized), serialized); err != nil {
				return err
			}
		}
		for _, b := range valueSet.Bytes() {
			serialized, err := cbor.Marshal(b, encOpts)
			if err != nil {
				return err
			}
			if err = tx.Bucket(dictionaryBytesBucket).Put(dictionaryKey(serialized), serialized); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close flushes and closes the underlying database.
func (d *ValueDictionary) Close() error {
	return d.db.Close()
}
