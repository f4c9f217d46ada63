package syscontract

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/precompile"
	"github.com/luxfi/axon/storage/kv"
	axonrlp "github.com/luxfi/axon/rlp"
)

// ErrImageCellReadsDisabled mirrors ParentLightClient's allow_read gate:
// the image-cell mirror starts serving lookups only once an operator
// enables reads, so a partially synced snapshot is never trusted.
var ErrImageCellReadsDisabled = errors.New("syscontract: parent-chain image cell reads are disabled")

const imageCellMinGas = 30000

const (
	icOpSetState byte = 0
	icOpUpdate   byte = 1
	icOpRollback byte = 2
)

type rlpCellUpdate struct {
	Key  precompile.CellKey
	Cell precompile.Cell
}

// ParentImageCell mirrors the live/consumed state of a window of
// parent-chain cells, fed by Update calls from an off-chain relayer and
// exposed to package precompile's CellLookup via GetCell.
type ParentImageCell struct {
	db        kv.Database
	allowRead bool
}

// NewParentImageCell wraps the image-cell state column family.
func NewParentImageCell(db kv.Database) *ParentImageCell {
	return &ParentImageCell{db: db}
}

func (ic *ParentImageCell) RequiredGas([]byte) uint64 { return imageCellMinGas }

// Run dispatches on input[0]: 0 = set_state(allow_read bool at
// input[1]), 1 = update(RLP-encoded rlpCellUpdate at input[1:]), 2 =
// rollback(RLP-encoded precompile.CellKey at input[1:]).
func (ic *ParentImageCell) Run(_ *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	if len(input) < 1 {
		return nil, errors.New("syscontract: empty image cell input")
	}
	switch input[0] {
	case icOpSetState:
		if len(input) != 2 {
			return nil, errors.New("syscontract: set_state input must be 2 bytes")
		}
		ic.allowRead = input[1] != 0
		return nil, nil
	case icOpUpdate:
		var update rlpCellUpdate
		if err := axonrlp.DecodeBytes(input[1:], &update); err != nil {
			return nil, err
		}
		return nil, ic.put(update.Key, &update.Cell)
	case icOpRollback:
		var key precompile.CellKey
		if err := key.Decode(input[1:]); err != nil {
			return nil, err
		}
		return nil, ic.delete(key)
	default:
		return nil, errors.New("syscontract: invalid image cell opcode")
	}
}

func cellDBKey(key precompile.CellKey) []byte {
	enc, _ := key.Encode()
	return enc
}

func (ic *ParentImageCell) put(key precompile.CellKey, cell *precompile.Cell) error {
	enc, err := cell.Encode()
	if err != nil {
		return err
	}
	return ic.db.Put(cellDBKey(key), enc)
}

func (ic *ParentImageCell) delete(key precompile.CellKey) error {
	return ic.db.Delete(cellDBKey(key))
}

// GetCell implements precompile.CellSource.
func (ic *ParentImageCell) GetCell(_ *execution.StateDB, key precompile.CellKey) (*precompile.Cell, bool, error) {
	if !ic.allowRead {
		return nil, false, ErrImageCellReadsDisabled
	}
	dbKey := cellDBKey(key)
	has, err := ic.db.Has(dbKey)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	enc, err := ic.db.Get(dbKey)
	if err != nil {
		return nil, false, err
	}
	var cell precompile.Cell
	if err := cell.Decode(enc); err != nil {
		return nil, false, err
	}
	return &cell, true, nil
}
