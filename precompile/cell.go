package precompile

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	axonrlp "github.com/luxfi/axon/rlp"
)

// ErrInvalidCellKeyInput is returned when a CellLookup call's input
// cannot be decoded as a CellKey, mirroring get_cell.rs's
// CellKey::decode failure path.
var ErrInvalidCellKeyInput = errors.New("precompile: cell lookup input is not a valid cell key")

const cellLookupMinGas = 15

// CellKey identifies one parent-chain cell by its creating transaction
// hash and output index, the same two fields the Rust original's
// CellKey carries.
type CellKey struct {
	TxHash common.Hash
	Index  uint32
}

type rlpCellKey struct {
	TxHash common.Hash
	Index  uint32
}

// Decode parses the RLP encoding this chain's callers use to build a
// CellLookup input (a deliberate deviation from the Rust original's
// custom fixed-width byte layout: this module encodes every precompile
// input/output with package rlp like everything else it persists, for
// one codec instead of two).
func (k *CellKey) Decode(data []byte) error {
	var r rlpCellKey
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	k.TxHash, k.Index = r.TxHash, r.Index
	return nil
}

// Cell is the minimal parent-chain cell record the image-cell system
// contract tracks: its live/consumed status plus opaque capacity and
// data payload carried over from the parent chain.
type Cell struct {
	TxHash   common.Hash
	Index    uint32
	Capacity uint64
	Lock     []byte
	Type     []byte
	Data     []byte
	Consumed bool
}

type rlpCell struct {
	TxHash   common.Hash
	Index    uint32
	Capacity uint64
	Lock     []byte
	Type     []byte
	Data     []byte
	Consumed bool
}

// Encode returns the canonical RLP encoding of the cell.
func (c *Cell) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpCell{c.TxHash, c.Index, c.Capacity, c.Lock, c.Type, c.Data, c.Consumed})
}

// Decode parses the RLP encoding produced by Encode.
func (c *Cell) Decode(data []byte) error {
	var r rlpCell
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	c.TxHash, c.Index, c.Capacity, c.Lock, c.Type, c.Data, c.Consumed = r.TxHash, r.Index, r.Capacity, r.Lock, r.Type, r.Data, r.Consumed
	return nil
}

// Encode returns the canonical RLP encoding of the cell key.
func (k *CellKey) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpCellKey{k.TxHash, k.Index})
}

// CellSource resolves a parent-chain cell by key; the image-cell system
// contract owns the cell store this reads from.
type CellSource interface {
	GetCell(state *execution.StateDB, key CellKey) (*Cell, bool, error)
}

// CellLookup is the get_cell precompile: given an RLP-encoded CellKey,
// returns the RLP encoding of the matching Cell record.
type CellLookup struct {
	Source CellSource
}

func (c *CellLookup) RequiredGas(input []byte) uint64 {
	return gasCostPerWord(input, cellLookupMinGas)
}

func (c *CellLookup) Run(state *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	var key CellKey
	if err := key.Decode(input); err != nil {
		return nil, ErrInvalidCellKeyInput
	}

	cell, found, err := c.Source.GetCell(state, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return cell.Encode()
}
