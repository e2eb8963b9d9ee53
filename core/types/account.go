package types

// Account is the mutable per-address ledger record.
type Account struct {
	Address      string `cbor:"1,keyasint" json:"address"`
	Balance      int64  `cbor:"2,keyasint" json:"balance"`
	Nonce        uint64 `cbor:"3,keyasint" json:"nonce"`
	StakedAmount int64  `cbor:"4,keyasint" json:"staked_amount"`
	Rewards      int64  `cbor:"5,keyasint" json:"rewards"`
}

// Validator is a consensus participant record kept in replicated state.
type Validator struct {
	Address   string `cbor:"1,keyasint" json:"address"`
	Pubkey    []byte `cbor:"2,keyasint" json:"pubkey"`
	Stake     int64  `cbor:"3,keyasint" json:"stake"`
	Active    bool   `cbor:"4,keyasint" json:"active"`
	CreatedAt int64  `cbor:"5,keyasint" json:"created_at"`
	UpdatedAt int64  `cbor:"6,keyasint" json:"updated_at"`
}
