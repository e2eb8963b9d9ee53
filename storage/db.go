package storage

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/core/types"
)

// DB persists immutable ledger history: blocks, transactions and the
// height index.
type DB struct {
	storage Storage
}

// NewDB creates a database operations handler over an open store.
func NewDB(storage Storage) *DB {
	return &DB{storage: storage}
}

// SaveBlock writes the block, its height index entry and every
// contained transaction in one transaction.
func (db *DB) SaveBlock(block *types.Block) error {
	blockData, err := types.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to encode block: %w", err)
	}

	return db.storage.Update(func(txn Transaction) error {
		if err := txn.Set(BlockKey(block.Hash), blockData); err != nil {
			return err
		}
		if err := txn.Set(BlockHeightKey(block.Header.Index), []byte(block.Hash)); err != nil {
			return err
		}
		for _, tx := range block.Transactions {
			txData, err := types.Marshal(tx)
			if err != nil {
				return fmt.Errorf("failed to encode transaction %s: %w", tx.Hash, err)
			}
			if err := txn.Set(TransactionKey(tx.Hash), txData); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) GetBlock(hash string) (*types.Block, error) {
	data, err := db.storage.Get(BlockKey(hash))
	if err != nil {
		return nil, err
	}

	var block types.Block
	if err := types.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}
	return &block, nil
}

func (db *DB) GetBlockByHeight(height int64) (*types.Block, error) {
	hash, err := db.storage.Get(BlockHeightKey(height))
	if err != nil {
		return nil, err
	}
	return db.GetBlock(string(hash))
}

func (db *DB) GetTransaction(hash string) (*types.Transaction, error) {
	data, err := db.storage.Get(TransactionKey(hash))
	if err != nil {
		return nil, err
	}

	var tx types.Transaction
	if err := types.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}
