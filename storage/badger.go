// Package storage is the persistence layer of a Tessera peer.
//
// BadgerStorage is the low-level key-value store on BadgerDB v3.
// StateStorage persists mutable ledger state (accounts, validators,
// height, state root) and DB persists immutable history (blocks,
// transactions). Store bundles both over one BadgerDB instance and is
// what WorldState writes through to.
package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

var ErrKeyNotFound = fmt.Errorf("key not found")

// Storage is the low-level KV interface BadgerStorage implements.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Update(fn func(txn Transaction) error) error
	View(fn func(txn Transaction) error) error
	Iterator(prefix []byte) Iterator
	Close() error
	RunGC(discardRatio float64) error
	Size() (int64, error)
}

// Transaction is the view of a store transaction exposed to Update and
// View callbacks.
type Transaction interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
}

// Iterator walks keys under a prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close()
}

// BadgerStorage implements Storage on BadgerDB v3.
type BadgerStorage struct {
	db *badger.DB
	mu sync.RWMutex
}

// NewBadgerStorage opens (creating if needed) a BadgerDB at dataDir.
func NewBadgerStorage(dataDir string) (*BadgerStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", dataDir, err)
	}

	return &BadgerStorage{db: db}, nil
}

func (bs *BadgerStorage) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.db == nil {
		return nil
	}
	err := bs.db.Close()
	bs.db = nil
	return err
}

func (bs *BadgerStorage) Get(key []byte) ([]byte, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	var value []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (bs *BadgerStorage) Set(key, value []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (bs *BadgerStorage) Delete(key []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (bs *BadgerStorage) Has(key []byte) (bool, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	err := bs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update executes fn inside a single write transaction.
func (bs *BadgerStorage) Update(fn func(txn Transaction) error) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// View executes fn inside a read transaction.
func (bs *BadgerStorage) View(fn func(txn Transaction) error) error {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (bs *BadgerStorage) Iterator(prefix []byte) Iterator {
	return &badgerIterator{db: bs.db, prefix: prefix}
}

func (bs *BadgerStorage) RunGC(discardRatio float64) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.RunValueLogGC(discardRatio)
}

func (bs *BadgerStorage) Size() (int64, error) {
	lsm, vlog := bs.db.Size()
	return lsm + vlog, nil
}

type badgerTxn struct {
	txn *badger.Txn
}

func (bt *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := bt.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (bt *badgerTxn) Set(key, value []byte) error {
	return bt.txn.Set(key, value)
}

func (bt *badgerTxn) Delete(key []byte) error {
	return bt.txn.Delete(key)
}

func (bt *badgerTxn) Has(key []byte) (bool, error) {
	_, err := bt.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type badgerIterator struct {
	db     *badger.DB
	prefix []byte
	txn    *badger.Txn
	iter   *badger.Iterator
	closed bool
}

func (bi *badgerIterator) Next() bool {
	if bi.closed {
		return false
	}
	if bi.txn == nil {
		bi.txn = bi.db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		bi.iter = bi.txn.NewIterator(opts)
		bi.iter.Seek(bi.prefix)
	} else {
		bi.iter.Next()
	}
	return bi.iter.ValidForPrefix(bi.prefix)
}

func (bi *badgerIterator) Key() []byte {
	if bi.iter == nil {
		return nil
	}
	return bi.iter.Item().KeyCopy(nil)
}

func (bi *badgerIterator) Value() []byte {
	if bi.iter == nil {
		return nil
	}
	val, _ := bi.iter.Item().ValueCopy(nil)
	return val
}

func (bi *badgerIterator) Close() {
	if bi.closed {
		return
	}
	if bi.iter != nil {
		bi.iter.Close()
	}
	if bi.txn != nil {
		bi.txn.Discard()
	}
	bi.closed = true
}

// Key prefixes for the different record types.
const (
	BlockPrefix       = "blk:"
	AccountPrefix     = "acc:"
	ValidatorPrefix   = "val:"
	HeightPrefix      = "hgt:"
	StateRootPrefix   = "srt:"
	TransactionPrefix = "txn:"
	HeightIndexPrefix = "idx:height:"
)

func BlockKey(hash string) []byte {
	return []byte(BlockPrefix + hash)
}

func BlockHeightKey(height int64) []byte {
	return []byte(fmt.Sprintf("%s%d", HeightIndexPrefix, height))
}

func AccountKey(address string) []byte {
	return []byte(AccountPrefix + address)
}

func ValidatorKey(address string) []byte {
	return []byte(ValidatorPrefix + address)
}

func HeightKey() []byte {
	return []byte(HeightPrefix + "current")
}

func StateRootKey() []byte {
	return []byte(StateRootPrefix + "current")
}

func TransactionKey(hash string) []byte {
	return []byte(TransactionPrefix + hash)
}
