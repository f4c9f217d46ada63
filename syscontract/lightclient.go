package syscontract

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/types"
)

// ErrLightClientReadsDisabled is returned by HeaderByHash while
// allow_read is false, mirroring the Rust original's ALLOW_READ gate:
// the light client accepts updates from genesis but only starts serving
// get_header lookups once its operator flips the switch (so a partially
// synced mirror is never read as authoritative).
var ErrLightClientReadsDisabled = errors.New("syscontract: parent-chain light client reads are disabled")

const lightClientMinGas = 30000

const (
	lcOpSetState byte = 0
	lcOpUpdate   byte = 1
	lcOpRollback byte = 2
)

// ParentLightClient mirrors a window of parent-chain headers, keyed by
// block hash, fed by Update calls from an off-chain relayer and exposed
// to package precompile's HeaderLookup via HeaderByHash.
type ParentLightClient struct {
	db        kv.Database
	allowRead bool
}

// NewParentLightClient wraps the parent-chain light-client state column
// family.
func NewParentLightClient(db kv.Database) *ParentLightClient {
	return &ParentLightClient{db: db}
}

func (lc *ParentLightClient) RequiredGas([]byte) uint64 { return lightClientMinGas }

// Run dispatches on input[0]: 0 = set_state(allow_read bool at
// input[1]), 1 = update(header RLP at input[1:]), 2 =
// rollback(block_hash at input[1:33]).
func (lc *ParentLightClient) Run(_ *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	if len(input) < 1 {
		return nil, errors.New("syscontract: empty light client input")
	}
	switch input[0] {
	case lcOpSetState:
		if len(input) != 2 {
			return nil, errors.New("syscontract: set_state input must be 2 bytes")
		}
		lc.allowRead = input[1] != 0
		return nil, nil
	case lcOpUpdate:
		var header types.Header
		if err := header.Decode(input[1:]); err != nil {
			return nil, err
		}
		return nil, lc.put(&header)
	case lcOpRollback:
		if len(input) != 33 {
			return nil, errors.New("syscontract: rollback input must be 33 bytes")
		}
		return nil, lc.delete(common.BytesToHash(input[1:33]))
	default:
		return nil, errors.New("syscontract: invalid light client opcode")
	}
}

func headerKey(hash common.Hash) []byte { return hash.Bytes() }

func (lc *ParentLightClient) put(header *types.Header) error {
	enc, err := header.Encode()
	if err != nil {
		return err
	}
	return lc.db.Put(headerKey(header.Hash()), enc)
}

func (lc *ParentLightClient) delete(hash common.Hash) error {
	return lc.db.Delete(headerKey(hash))
}

// HeaderByHash implements precompile.HeaderSource.
func (lc *ParentLightClient) HeaderByHash(_ *execution.StateDB, blockHash common.Hash) (*types.Header, bool, error) {
	if !lc.allowRead {
		return nil, false, ErrLightClientReadsDisabled
	}
	has, err := lc.db.Has(headerKey(blockHash))
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	enc, err := lc.db.Get(headerKey(blockHash))
	if err != nil {
		return nil, false, err
	}
	var header types.Header
	if err := header.Decode(enc); err != nil {
		return nil, false, err
	}
	return &header, true, nil
}
