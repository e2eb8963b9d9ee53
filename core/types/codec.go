// Package types defines the wire-level domain values of a Tessera peer:
// transactions, blocks, peer messages, accounts and validators, all
// encoded as deterministic CBOR.
package types

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Deterministic encode mode: identical values always produce identical
// bytes, which the query path relies on for idempotent results.
var encMode cbor.EncMode

// Decode mode rejects payloads that silently lose data.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("types: failed to build CBOR encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("types: failed to build CBOR decode mode: %v", err))
	}
}

// Marshal encodes v as deterministic CBOR.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
