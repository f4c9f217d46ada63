package types

import (
	"github.com/luxfi/axon/common"
	axonrlp "github.com/luxfi/axon/rlp"
)

// Block is a header plus the ordered list of transaction hashes it
// commits to; full transaction bodies are fetched separately from the
// mempool or the tx store (spec.md §3, §4.4).
type Block struct {
	Header   *Header
	TxHashes []common.Hash
}

type rlpBlock struct {
	Header   *rlpHeader
	TxHashes []common.Hash
}

// Encode returns the canonical RLP encoding of the block.
func (b *Block) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpBlock{b.Header.toRLP(), b.TxHashes})
}

// Decode parses the canonical RLP encoding produced by Encode.
func (b *Block) Decode(data []byte) error {
	var r rlpBlock
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	h := &Header{}
	henc, err := axonrlp.EncodeToBytes(r.Header)
	if err != nil {
		return err
	}
	if err := h.Decode(henc); err != nil {
		return err
	}
	b.Header, b.TxHashes = h, r.TxHashes
	return nil
}

// Hash returns the block's identity, the hash of its header.
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Number returns the block height.
func (b *Block) Number() uint64 { return b.Header.Number }
