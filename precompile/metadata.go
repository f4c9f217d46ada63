package precompile

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/types"
)

// ErrInvalidMetadataInput is returned when a Metadata precompile call's
// input is not exactly the 1-byte call-type + 8-byte big-endian number
// schema the Rust original's parse_input enforces.
var ErrInvalidMetadataInput = errors.New("precompile: metadata input must be 9 bytes (1 type byte + 8 big-endian number bytes)")

// ErrInvalidMetadataCallType is returned for a call-type byte other than
// 0 (by block number) or 1 (by epoch).
var ErrInvalidMetadataCallType = errors.New("precompile: invalid metadata call type")

// MetadataSource resolves the epoch metadata effective at a block height
// or at a given epoch number; the system-contract package's metadata
// handler implements this over its own sub-trie stored in state.
type MetadataSource interface {
	MetadataByBlockNumber(state *execution.StateDB, number uint64) (*types.Metadata, error)
	MetadataByEpoch(state *execution.StateDB, epoch uint64) (*types.Metadata, error)
}

// metadataMinGas is the Rust original's MIN_GAS for the metadata
// precompile; unlike get_header/get_cell it does not scale with input
// size since the input is always exactly 9 bytes.
const metadataMinGas = 500

// Metadata is the epoch-metadata lookup precompile: input[0] selects
// lookup by block number (0) or by epoch (1), input[1:9] is the
// big-endian argument, output is the canonical RLP encoding of the
// resolved types.Metadata.
type Metadata struct {
	Source MetadataSource
}

func (m *Metadata) RequiredGas([]byte) uint64 { return metadataMinGas }

func (m *Metadata) Run(state *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	if len(input) != 9 {
		return nil, ErrInvalidMetadataInput
	}
	number := binary.BigEndian.Uint64(input[1:9])

	var meta *types.Metadata
	var err error
	switch input[0] {
	case 0:
		meta, err = m.Source.MetadataByBlockNumber(state, number)
	case 1:
		meta, err = m.Source.MetadataByEpoch(state, number)
	default:
		return nil, ErrInvalidMetadataCallType
	}
	if err != nil {
		return nil, err
	}
	return meta.Encode()
}
