package crosschain

import (
	"context"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// HeaderFeed is the external parent-chain client this package polls —
// grounded on protocol::traits::CkbClient's get_tip_header/
// get_block_by_number, reduced to the two calls Monitor needs. A
// concrete implementation (a CKB RPC client, a testnet faucet, a replay
// fixture) is supplied by the embedding node; none is provided here per
// spec.md §1's external-collaborator scope. Parent headers are handed
// back as types.Header so they need no translation before reaching
// syscontract.ParentLightClient.Run's update opcode, which already
// decodes its input as a types.Header.
type HeaderFeed interface {
	TipHeight(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// LightClientSink is the in-chain side Monitor drives once it has
// confirmed a run of parent headers: an adapter that submits them as
// calls to syscontract.ParentLightClientAddress (update) or unwinds a
// reorg (rollback). Kept as an interface, not a direct
// syscontract.ParentLightClient dependency, so Monitor can run against
// either a live mempool-submission path or a direct in-process call in
// tests.
type LightClientSink interface {
	Update(ctx context.Context, headers []*types.Header) error
	Rollback(ctx context.Context, toHash common.Hash) error
}
