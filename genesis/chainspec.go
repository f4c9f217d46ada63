// Package genesis builds and seeds the chain's height-0 block from a
// JSON chain-spec file, mirroring the one-shot bootstrap step
// devtools/genesis-generator performs against a running node: credit
// the configured balances, then submit the epoch-0 (and, immediately
// following it, epoch-1) metadata-append calls that every node needs
// committed before consensus can resolve a validator set for height 1.
package genesis

import (
	"encoding/json"
	"math/big"

	"github.com/luxfi/geth/common/hexutil"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// ChainSpec is the on-disk description of a chain's genesis: the
// initial account balances, the EVM/consensus parameters carried in the
// header, and the epoch-0 metadata template every validator set and gas
// policy ultimately derives from.
type ChainSpec struct {
	ChainID       uint64                      `json:"chainId"`
	Timestamp     uint64                      `json:"timestamp"`
	GasLimit      uint64                      `json:"gasLimit"`
	BaseFeePerGas *big.Int                    `json:"baseFeePerGas"`
	ExtraData     hexutil.Bytes               `json:"extraData"`
	GenesisKey    hexutil.Bytes               `json:"genesisKey"`
	Alloc         map[common.Address]*big.Int `json:"alloc"`
	Metadata      types.Metadata              `json:"metadata"`
}

// Parse decodes a chain-spec document. BaseFeePerGas defaults to zero
// and GasLimit to a sane floor when left unset, so a minimal spec
// (alloc + metadata only) is still usable for a test network.
func Parse(data []byte) (*ChainSpec, error) {
	spec := &ChainSpec{}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, err
	}
	if spec.BaseFeePerGas == nil {
		spec.BaseFeePerGas = new(big.Int)
	}
	if spec.GasLimit == 0 {
		spec.GasLimit = defaultGasLimit
	}
	return spec, nil
}

// defaultGasLimit is used when a chain-spec omits gasLimit entirely.
const defaultGasLimit = 30_000_000
