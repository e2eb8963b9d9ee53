// Package transaction implements the intake side of the transaction
// pipeline: the acceptance checks run before a transaction may enter the
// node, and the pending pool fed by the gateway's transaction outbox.
package transaction

import (
	"fmt"
	"time"

	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/account"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto"
	"github.com/tessera-labs/go-tessera/crypto/address"
)

// Validator runs domain-level acceptance on decoded transactions.
type Validator struct {
	cfg *config.Config
}

// NewValidator creates a transaction validator.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// Accept performs the full acceptance check a transaction must pass
// before it is handed to the outbox: structure, hash integrity,
// signature, sender identity and economic floor rules. It normalizes
// the id/hash fields as a side effect.
func (v *Validator) Accept(tx *types.Transaction) error {
	if tx == nil {
		return fmt.Errorf("transaction cannot be nil")
	}

	if err := account.ValidateAddress(tx.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if tx.To != "" {
		if err := account.ValidateAddress(tx.To); err != nil {
			return fmt.Errorf("invalid recipient address: %w", err)
		}
	}
	if tx.Amount < 0 {
		return fmt.Errorf("amount cannot be negative: %d", tx.Amount)
	}
	if tx.Amount < v.cfg.Economics.MinTransfer && tx.Type == types.TxTransfer {
		return fmt.Errorf("transfer amount %d below minimum %d", tx.Amount, v.cfg.Economics.MinTransfer)
	}
	if tx.GasPrice < v.cfg.Economics.MinGasPrice {
		return fmt.Errorf("gas price %d below minimum %d", tx.GasPrice, v.cfg.Economics.MinGasPrice)
	}

	// The hash on the wire is advisory; recompute and compare.
	computed, err := tx.ComputeHash()
	if err != nil {
		return fmt.Errorf("failed to compute transaction hash: %w", err)
	}
	if tx.Hash != "" && tx.Hash != computed {
		return fmt.Errorf("transaction hash mismatch: claimed %s, computed %s", tx.Hash, computed)
	}
	tx.Hash = computed
	tx.Id = computed

	// The sender address must be derived from the signing key.
	derived, err := address.Generate(tx.PubKey)
	if err != nil {
		return fmt.Errorf("failed to derive address from public key: %w", err)
	}
	if derived != account.Normalize(tx.From) {
		return fmt.Errorf("sender address %s does not match signing key address %s", tx.From, derived)
	}

	pub, err := crypto.NewPublicKeyFromBytes(tx.PubKey)
	if err != nil {
		return fmt.Errorf("invalid transaction public key: %w", err)
	}
	sig, err := crypto.NewSignatureFromBytes(tx.Signature)
	if err != nil {
		return fmt.Errorf("invalid transaction signature: %w", err)
	}
	payload, err := tx.SigningPayload()
	if err != nil {
		return fmt.Errorf("failed to build signing payload: %w", err)
	}
	if err := pub.Verify(payload, sig); err != nil {
		return fmt.Errorf("transaction signature verification failed: %w", err)
	}

	return nil
}

// NewSigned builds and signs a transaction with the given key. Used by
// client tooling and tests; the gateway itself never constructs
// transactions.
func NewSigned(key crypto.PrivateKey, to string, amount, gas, gasPrice int64, nonce uint64, txType types.TransactionType) (*types.Transaction, error) {
	pubBytes := key.PublicKey().Bytes()
	from, err := address.Generate(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sender address: %w", err)
	}

	tx := &types.Transaction{
		From:      from,
		To:        account.Normalize(to),
		Amount:    amount,
		Gas:       gas,
		GasPrice:  gasPrice,
		Nonce:     nonce,
		Type:      txType,
		Timestamp: time.Now().Unix(),
		PubKey:    pubBytes,
	}

	payload, err := tx.SigningPayload()
	if err != nil {
		return nil, fmt.Errorf("failed to build signing payload: %w", err)
	}
	sig, err := key.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signature = sig.Bytes()

	h, err := tx.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("failed to compute transaction hash: %w", err)
	}
	tx.Hash = h
	tx.Id = h

	return tx, nil
}
