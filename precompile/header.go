package precompile

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/types"
)

// ErrInvalidHeaderInput is returned when a HeaderLookup call's input is
// not exactly one 32-byte block hash, matching get_header.rs's
// H256::from_slice(input) (which panics on any other length; we return
// an error instead).
var ErrInvalidHeaderInput = errors.New("precompile: header lookup input must be exactly 32 bytes")

const headerLookupMinGas = 15

// HeaderSource resolves a previously recorded parent-chain header by its
// block hash; the parent-chain light-client system contract owns the
// header store this reads from.
type HeaderSource interface {
	HeaderByHash(state *execution.StateDB, blockHash common.Hash) (*types.Header, bool, error)
}

// HeaderLookup is the get_header precompile: given a 32-byte parent-chain
// block hash, returns the RLP encoding of the header the light-client
// contract has recorded for it, or an empty result if none is known yet
// (mirroring the Rust original's `.unwrap_or_default()` on a missing
// header rather than reverting).
type HeaderLookup struct {
	Source HeaderSource
}

func (h *HeaderLookup) RequiredGas(input []byte) uint64 {
	return gasCostPerWord(input, headerLookupMinGas)
}

func (h *HeaderLookup) Run(state *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	if len(input) != 32 {
		return nil, ErrInvalidHeaderInput
	}
	blockHash := common.BytesToHash(input)

	header, found, err := h.Source.HeaderByHash(state, blockHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return header.Encode()
}
