package crosschain

import (
	"context"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// Checkpoint is one committed (block, commit-QC) pair submitted outward
// to the parent chain as proof this chain reached consensus on it —
// the Go analogue of sidechain.rs's SubmitCheckpointPayload, minus the
// identity/lock-hash fields that only make sense against CKB's cell
// model, which this package does not reach into.
type Checkpoint struct {
	Block *types.Block
	Proof *types.Proof
}

// Encode concatenates the block's and proof's canonical RLP encodings,
// mirroring sidechain.rs's run(): "proposal.append(&mut proof)" — the
// block and its commit proof travel together as one opaque payload the
// remote chain's verifier splits back apart.
func (c *Checkpoint) Encode() ([]byte, error) {
	blockEnc, err := c.Block.Encode()
	if err != nil {
		return nil, err
	}
	proofEnc, err := c.Proof.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(blockEnc)+len(proofEnc))
	out = append(out, blockEnc...)
	out = append(out, proofEnc...)
	return out, nil
}

// OutboundClient submits a signed checkpoint transaction to the parent
// chain and returns its transaction identity there — the two
// CkbClient calls sidechain.rs's run() makes in sequence
// (build_submit_checkpoint_transaction, then send_transaction), folded
// into one call since this package does not model the parent chain's
// own unsigned-transaction/signing split.
type OutboundClient interface {
	SubmitCheckpoint(ctx context.Context, payload []byte) (common.Hash, error)
}

// Relayer pushes this chain's own committed blocks to the parent chain
// as they finalize, so the parent chain's mirror of this chain's state
// (its own light-client contract, symmetric to
// syscontract.ParentLightClient on this side) stays current. Grounded
// on original_source/core/cross-client/src/sidechain.rs's SidechainTask.
type Relayer struct {
	client OutboundClient
}

// NewRelayer wraps an OutboundClient.
func NewRelayer(client OutboundClient) *Relayer {
	return &Relayer{client: client}
}

// Submit encodes and submits one checkpoint. A submission error is
// returned to the caller rather than swallowed and logged the way
// sidechain.rs's run() does, since this package leaves logging policy
// to the embedding node (see the ambient logging convention other
// subsystems follow).
func (r *Relayer) Submit(ctx context.Context, cp *Checkpoint) (common.Hash, error) {
	payload, err := cp.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return r.client.SubmitCheckpoint(ctx, payload)
}
