// Package rlp supplies the single canonical byte encoding used for every
// persisted and wire type in the node: a thin, typed front door onto the
// teacher's RLP implementation (github.com/luxfi/geth/rlp), the same
// library go-ethereum-family nodes use to encode headers, transactions
// and trie nodes. Every type in package types implements
// encoding.BinaryMarshaler-shaped Encode/Decode pairs by embedding RLP
// struct tags and routing through EncodeToBytes/DecodeBytes here, so
// encode(decode(x)) == x byte-for-byte by construction.
package rlp

import (
	gethrlp "github.com/luxfi/geth/rlp"
)

// EncodeToBytes returns the canonical RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	return gethrlp.EncodeToBytes(val)
}

// DecodeBytes parses the RLP-encoded data in b into val, which must be a
// non-nil pointer.
func DecodeBytes(b []byte, val interface{}) error {
	return gethrlp.DecodeBytes(b, val)
}

// RawValue represents an already RLP-encoded value; encoding a RawValue
// copies it verbatim instead of re-encoding it.
type RawValue = gethrlp.RawValue

// ListSize returns the encoded size of an RLP list with the given
// content size, used when computing per-index keys for the
// transactions/receipts tries.
func ListSize(contentSize uint64) uint64 {
	return gethrlp.ListSize(contentSize)
}
