package consensus

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/network"
	axonrlp "github.com/luxfi/axon/rlp"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/types"
)

// ErrNoSyncPeer is returned when no announced peer height exceeds the
// local height, so there is nothing to sync toward.
var ErrNoSyncPeer = errors.New("consensus: no peer ahead of local height")

// Syncer pulls committed history from peers when the local chain falls
// behind — spec.md §4.5.4: "Peers broadcast their height periodically
// (BROADCAST_HEIGHT); once a peer's height exceeds the local
// latest_committed_height by more than the sync threshold, the node
// enters sync mode and pulls blocks, proofs, and transaction bodies in
// ascending order, verifying each exactly as consensus would before
// committing it." It reuses the same verification pipeline
// (consensus.VerifyBlock) and storage write path (commitBlock) as the
// live BFT engine, so a synced chain and a consensus-committed chain are
// byte-identical.
type Syncer struct {
	epochs    EpochSource
	executor  *execution.Executor
	chain     *chain.Store
	kv        *kv.Store
	transport network.Transport
}

// NewSyncer constructs a Syncer over the same storage/execution/network
// dependencies an Engine uses, so it can hand off a caught-up chain to
// Engine.Resume without any format translation.
func NewSyncer(epochs EpochSource, exec *execution.Executor, chainStore *chain.Store, store *kv.Store, transport network.Transport) *Syncer {
	return &Syncer{epochs: epochs, executor: exec, chain: chainStore, kv: store, transport: transport}
}

// SyncThreshold is how far behind the furthest announced peer height
// the local height must fall before Syncer.MaybeSync enters sync mode,
// per spec.md §4.5.4's "more than the sync threshold": a peer exactly
// one height ahead does not trigger sync, a peer two or more heights
// ahead does.
const SyncThreshold = 1

// validatorsForHeight resolves the active verifier_list effective at
// height from the epoch rooted at height's parent, matching
// Engine.validatorsForHeightLocked's contract.
func validatorsForHeight(epochs EpochSource, height uint64) (types.ValidatorList, error) {
	parentHeight := uint64(0)
	if height > 0 {
		parentHeight = height - 1
	}
	meta, err := epochs.MetadataAt(parentHeight)
	if err != nil {
		return nil, err
	}
	return meta.VerifierList.SortCanonical(), nil
}

// MaybeSync checks announced peer heights against the local tip and, if
// any peer is ahead by more than SyncThreshold, syncs to the furthest
// one. It is a no-op (returns nil, not ErrNoSyncPeer) when already
// caught up, so callers can poll it on a timer without special-casing
// the steady state.
func (s *Syncer) MaybeSync(ctx context.Context) error {
	local, err := s.chain.ReadLatestBlock()
	if err != nil {
		return err
	}
	localHeight := uint64(0)
	if local != nil {
		localHeight = local.Number()
	}

	peer, target, err := s.furthestPeer(localHeight)
	if err != nil {
		if errors.Is(err, ErrNoSyncPeer) {
			return nil
		}
		return err
	}
	return s.SyncTo(ctx, peer, target)
}

func (s *Syncer) furthestPeer(localHeight uint64) (network.PeerID, uint64, error) {
	var best network.PeerID
	var bestHeight uint64
	for peer, height := range s.transport.PeerHeights() {
		if height > bestHeight {
			best, bestHeight = peer, height
		}
	}
	if bestHeight <= localHeight+SyncThreshold {
		return "", 0, ErrNoSyncPeer
	}
	return best, bestHeight, nil
}

// SyncTo pulls and commits every block from the local tip (exclusive)
// through target (inclusive) from peer, verifying each with the same
// pipeline consensus uses before voting. A block's commit QC is only
// knowable once its successor's header arrives (spec.md §3's
// carry-forward proof design), so the latest-proof pointer for each
// height is written one iteration behind; the final height's QC is
// fetched explicitly via RPCSyncPullProof since no successor exists yet
// to carry it.
func (s *Syncer) SyncTo(ctx context.Context, peer network.PeerID, target uint64) error {
	parent, err := s.chain.ReadLatestBlock()
	if err != nil {
		return err
	}
	if parent == nil {
		return errors.New("consensus: sync requires a seeded genesis block")
	}
	if target <= parent.Number() {
		return nil // already caught up
	}

	pendingBlock := parent
	var pendingResults []execution.TxResult
	havePending := false // becomes true once pendingBlock is a newly-pulled block still awaiting its QC

	for height := parent.Number() + 1; height <= target; height++ {
		block, err := s.pullBlock(ctx, peer, height)
		if err != nil {
			return err
		}
		txs, err := s.pullTxs(ctx, peer, block.TxHashes)
		if err != nil {
			return err
		}
		validators, err := validatorsForHeight(s.epochs, height)
		if err != nil {
			return err
		}
		execCtx := execution.BlockExecContext{
			Number:   block.Header.Number,
			Time:     block.Header.Timestamp,
			Proposer: block.Header.Proposer,
			BaseFee:  block.Header.BaseFeePerGas,
			GasLimit: block.Header.GasLimit,
		}
		results, err := VerifyBlock(s.executor, pendingBlock.Header, block.Header, txs, validators, execCtx)
		if err != nil {
			return err
		}

		// block.Header.Proof is now verified to be the QC committing
		// pendingBlock (height-1); that finalizes pendingBlock's
		// latest-pointer write, one iteration after pendingBlock itself
		// was pulled.
		if havePending {
			if block.Header.Proof == nil || block.Header.Proof.BlockHash != pendingBlock.Hash() {
				return ErrInvalidProposal
			}
			if err := commitBlock(s.chain, s.kv, pendingBlock, pendingResults, block.Header.Proof); err != nil {
				return err
			}
		}

		pendingBlock, pendingResults, havePending = block, results, true
	}

	finalProof, err := s.pullProof(ctx, peer, target)
	if err != nil {
		return err
	}
	return commitBlock(s.chain, s.kv, pendingBlock, pendingResults, finalProof)
}

const syncRequestTimeout = 10 * time.Second

func heightPayload(height uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, height)
	return buf
}

func (s *Syncer) pullBlock(ctx context.Context, peer network.PeerID, height uint64) (*types.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, syncRequestTimeout)
	defer cancel()
	resp, err := s.transport.Request(ctx, peer, network.RPCSyncPullBlock, heightPayload(height))
	if err != nil {
		return nil, err
	}
	block := &types.Block{}
	if err := block.Decode(resp); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *Syncer) pullProof(ctx context.Context, peer network.PeerID, height uint64) (*types.Proof, error) {
	ctx, cancel := context.WithTimeout(ctx, syncRequestTimeout)
	defer cancel()
	resp, err := s.transport.Request(ctx, peer, network.RPCSyncPullProof, heightPayload(height))
	if err != nil {
		return nil, err
	}
	proof := &types.Proof{}
	if err := proof.Decode(resp); err != nil {
		return nil, err
	}
	return proof, nil
}

type rlpHashList struct {
	Hashes []common.Hash
}

type rlpTxList struct {
	Encs [][]byte
}

func (s *Syncer) pullTxs(ctx context.Context, peer network.PeerID, hashes []common.Hash) ([]*types.SignedTransaction, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, syncRequestTimeout)
	defer cancel()
	req, err := axonrlp.EncodeToBytes(&rlpHashList{Hashes: hashes})
	if err != nil {
		return nil, err
	}
	resp, err := s.transport.Request(ctx, peer, network.RPCSyncPullTxs, req)
	if err != nil {
		return nil, err
	}
	var list rlpTxList
	if err := axonrlp.DecodeBytes(resp, &list); err != nil {
		return nil, err
	}
	if len(list.Encs) != len(hashes) {
		return nil, errors.New("consensus: sync peer returned wrong transaction count")
	}
	txs := make([]*types.SignedTransaction, len(list.Encs))
	for i, enc := range list.Encs {
		utx := &types.UnverifiedTransaction{}
		if err := utx.Decode(enc); err != nil {
			return nil, err
		}
		tx, err := types.Recover(utx)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return txs, nil
}

// ServeSyncPullBlock answers an RPCSyncPullBlock request with the block
// committed at the requested height — the peer-facing half of
// Syncer.pullBlock, wired into a concrete Transport's request handler.
func (s *Syncer) ServeSyncPullBlock(payload []byte) ([]byte, error) {
	if len(payload) != 8 {
		return nil, errors.New("consensus: malformed sync_pull_block request")
	}
	height := binary.BigEndian.Uint64(payload)
	block, err := s.chain.ReadBlockByHeight(height)
	if err != nil {
		return nil, err
	}
	return block.Encode()
}

// ServeSyncPullProof answers an RPCSyncPullProof request with the QC
// that commits the requested height: ordinarily that QC is embedded in
// height+1's header, but the chain tip has no successor yet, so the tip
// case falls back to the persisted latest-proof pointer.
func (s *Syncer) ServeSyncPullProof(payload []byte) ([]byte, error) {
	if len(payload) != 8 {
		return nil, errors.New("consensus: malformed sync_pull_proof request")
	}
	height := binary.BigEndian.Uint64(payload)

	if successor, err := s.chain.ReadBlockByHeight(height + 1); err == nil {
		return successor.Header.Proof.Encode()
	} else if !errors.Is(err, chain.ErrNotFound) {
		return nil, err
	}

	latest, err := s.chain.ReadLatestBlock()
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Number() != height {
		return nil, chain.ErrNotFound
	}
	proof, err := s.chain.ReadLatestProof()
	if err != nil {
		return nil, err
	}
	return proof.Encode()
}

// ServeSyncPullTxs answers an RPCSyncPullTxs request with the wire
// encodings of the requested transaction bodies, resolved via the
// tx_hash_to_height index and the signed-transaction store.
func (s *Syncer) ServeSyncPullTxs(payload []byte) ([]byte, error) {
	var req rlpHashList
	if err := axonrlp.DecodeBytes(payload, &req); err != nil {
		return nil, err
	}
	encs := make([][]byte, len(req.Hashes))
	for i, h := range req.Hashes {
		height, err := s.chain.HeightForTxHash(h)
		if err != nil {
			return nil, err
		}
		tx, err := s.chain.ReadSignedTx(height, h)
		if err != nil {
			return nil, err
		}
		enc, err := tx.UnverifiedTransaction.Encode()
		if err != nil {
			return nil, err
		}
		encs[i] = enc
	}
	return axonrlp.EncodeToBytes(&rlpTxList{Encs: encs})
}
