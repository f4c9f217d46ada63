package consensus

import (
	"context"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/network"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/wal"
	"github.com/luxfi/axon/types"
)

// chokeSignHash is the message a choke vote signs: Keccak over the RLP
// of a Vote with ChokeType and the nil block hash, so a choke can't be
// replayed as a vote for a different (height, round) or vice versa.
func chokeSignHash(height, round uint64) common.Hash {
	return types.Vote{Height: height, Round: round, VoteType: types.ChokeType, BlockHash: NilBlockHash}.SignHash()
}

// handleProposal is the Prevote phase's entry point: spec.md §4.5.5's
// cheap checks (ancestry, authority, integrity, proof-against-parent)
// run synchronously; the expensive EVM execution check is handed to a
// worker goroutine so the engine can prevote without waiting for it,
// per spec.md §5 "Speculative execution of a Propose-phase block runs
// on a worker while the state machine is in Prevote."
func (e *Engine) handleProposal(sp SignedProposal) error {
	e.mu.Lock()
	height, round, validators, phase := e.height, e.round, e.validators, e.phase
	e.mu.Unlock()

	if sp.Block.Header.Number != height || sp.Round != round || phase != PhasePropose {
		return nil // stale, future, or already-past-Propose; drop per spec.md §7
	}

	parent, err := e.parentHeader(height)
	if err != nil {
		return err
	}
	if err := VerifyAncestry(parent, sp.Block.Header); err != nil {
		return err
	}
	if err := VerifyAuthority(validators, sp.Block.Header); err != nil {
		return err
	}

	txs, missing := e.mempool.GetFullTxs(sp.Block.TxHashes)
	if len(missing) > 0 {
		return e.pullMissingTxs(missing)
	}
	if err := VerifyIntegrity(sp.Block.Header, txs); err != nil {
		return err
	}
	if err := VerifyProofAgainstParent(validators, sp.Block.Header); err != nil {
		return err
	}

	e.mu.Lock()
	e.proposal = &sp
	e.phase = PhasePrevote
	e.mu.Unlock()
	if e.timers.propose != nil {
		e.timers.propose.Stop()
	}

	e.startSpeculativeExecution(parent, sp.Block.Header, txs, validators)

	meta, err := e.metadataForRound(height)
	if err != nil {
		return err
	}
	e.armTimer(&e.timers.prevote, height, round, PhasePrevote, ratioTimeout(meta.Interval, meta.Consensus.PrevoteRatio))

	vote := types.Vote{Height: height, Round: round, VoteType: types.PrevoteType, BlockHash: sp.Block.Hash()}
	return e.broadcastVote(vote)
}

// pullMissingTxs handles a proposal whose bodies are not all in the
// local mempool. It sends no RPC_PULL_TXS request and returns nil, so
// the proposal is dropped without a prevote from this node.
func (e *Engine) pullMissingTxs(missing []common.Hash) error {
	_ = missing
	return nil
}

// startSpeculativeExecution re-executes the candidate block against the
// parent state and checks the result against the header's committed
// roots, concurrently with the engine continuing into Prevote/
// Precommit — spec.md §4.5.5 step 4, run off the critical path.
func (e *Engine) startSpeculativeExecution(parent *types.Header, header *types.Header, txs []*types.SignedTransaction, validators types.ValidatorList) {
	spec := &speculativeResult{blockHash: header.Hash(), done: make(chan struct{})}
	e.mu.Lock()
	e.speculative = spec
	e.mu.Unlock()

	go func() {
		defer close(spec.done)
		execCtx := execution.BlockExecContext{
			Number:   header.Number,
			Time:     header.Timestamp,
			Proposer: header.Proposer,
			BaseFee:  header.BaseFeePerGas,
			GasLimit: header.GasLimit,
		}
		results, err := VerifyExecution(e.executor, parent.StateRoot, execCtx, header, txs, validators)
		spec.results, spec.stateRoot, spec.err = results, header.StateRoot, err
	}()
}

func (e *Engine) broadcastVote(vote types.Vote) error {
	sig := e.cfg.Identity.BLSPrivateKey.Sign(vote.SignHash().Bytes())
	sv := SignedVote{Vote: vote, Voter: e.cfg.Identity.Address, Signature: sig.Bytes()}

	phase := wal.PhasePrevote
	if vote.VoteType == types.PrecommitType {
		phase = wal.PhasePrecommit
	}
	enc, err := encodeVote(sv)
	if err != nil {
		return err
	}
	if err := e.wal.Append(wal.Entry{Height: vote.Height, Round: vote.Round, Phase: phase, Payload: enc}); err != nil {
		return err
	}
	if e.transport != nil {
		if err := e.transport.Broadcast(context.Background(), network.ChannelSignedVote, enc); err != nil {
			return err
		}
	}
	// a validator's own vote counts toward its own tally immediately
	return e.handleVote(sv)
}

// handleVote tallies an incoming Prevote or Precommit and advances the
// phase once ⅔ weight is reached (spec.md §4.5.1 "Precommit"/"Commit").
func (e *Engine) handleVote(sv SignedVote) error {
	e.mu.Lock()
	height, round := e.height, e.round
	var set *VoteSet
	switch sv.Vote.VoteType {
	case types.PrevoteType:
		set = e.prevotes
	case types.PrecommitType:
		set = e.precommit
	}
	e.mu.Unlock()

	if set == nil || sv.Vote.Height != height || sv.Vote.Round != round {
		return nil
	}
	if _, err := set.Add(sv); err != nil {
		return err
	}

	hash, ok := set.Quorum()
	if !ok {
		return nil
	}

	switch sv.Vote.VoteType {
	case types.PrevoteType:
		return e.enterPrecommit(height, round, hash)
	case types.PrecommitType:
		return e.enterCommit(height, round, hash)
	}
	return nil
}

// enterPrecommit broadcasts this validator's precommit for hash and
// arms the precommit timeout.
func (e *Engine) enterPrecommit(height, round uint64, hash common.Hash) error {
	e.mu.Lock()
	if e.phase != PhasePrevote {
		e.mu.Unlock()
		return nil
	}
	e.phase = PhasePrecommit
	e.mu.Unlock()

	if e.timers.prevote != nil {
		e.timers.prevote.Stop()
	}

	meta, err := e.metadataForRound(height)
	if err != nil {
		return err
	}
	timeout := ratioTimeout(meta.Interval, meta.Consensus.PrecommitRatio)
	e.armTimer(&e.timers.precommit, height, round, PhasePrecommit, timeout)

	vote := types.Vote{Height: height, Round: round, VoteType: types.PrecommitType, BlockHash: hash}
	return e.broadcastVote(vote)
}

// enterCommit finalises the block once ⅔ precommit weight is reached:
// aggregates the QC, waits on speculative execution, writes
// (block, txs, receipts, latest_proof) atomically, flushes the mempool,
// and advances to the next height — spec.md §4.5.1 "Commit".
func (e *Engine) enterCommit(height, round uint64, hash common.Hash) error {
	e.mu.Lock()
	if e.phase != PhasePrecommit {
		e.mu.Unlock()
		return nil
	}
	e.phase = PhaseCommit
	proposal := e.proposal
	precommitSet := e.precommit
	spec := e.speculative
	e.mu.Unlock()

	if e.timers.precommit != nil {
		e.timers.precommit.Stop()
	}
	if proposal == nil || proposal.Block.Hash() != hash {
		return ErrInvalidProposal
	}
	if spec == nil || spec.blockHash != hash {
		return ErrInvalidProposal
	}
	<-spec.done
	if spec.err != nil {
		return spec.err
	}

	proof, err := precommitSet.BuildProof(hash)
	if err != nil {
		return err
	}

	payload, err := proposal.Block.Encode()
	if err != nil {
		return err
	}
	if err := e.wal.Append(wal.Entry{Height: height, Round: round, Phase: wal.PhaseCommit, Payload: payload}); err != nil {
		return err
	}

	if err := e.commitToStorage(proposal.Block, spec.results, proof); err != nil {
		return err
	}

	e.mu.Lock()
	e.pendingProof = proof
	e.mu.Unlock()

	e.mempool.Flush(proposal.Block.TxHashes)
	if err := e.wal.GarbageCollect(height); err != nil {
		return err
	}

	return e.enterNewHeight(height + 1)
}

// commitToStorage atomically persists the committed block, its receipts,
// the hash/height indexes, and the latest-block/latest-proof pointers —
// spec.md §6's "the latest-block pointer is advanced atomically with the
// block and receipt writes". committingProof is the QC that commits
// block itself (built from this height's precommit tally), not the QC
// embedded in block's own header (which commits block's *parent*):
// ReadLatestProof must return the proof the next proposal carries
// forward, matching Engine.pendingProof's semantics.
func (e *Engine) commitToStorage(block *types.Block, results []execution.TxResult, committingProof *types.Proof) error {
	return commitBlock(e.chain, e.kv, block, results, committingProof)
}

// commitBlock is commitToStorage's storage-only core, factored out so
// the sync subsystem can persist a peer-verified block through the
// identical write path without needing a running Engine.
func commitBlock(chainStore *chain.Store, kvStore *kv.Store, block *types.Block, results []execution.TxResult, committingProof *types.Proof) error {
	blockBatch := kvStore.NewBatch(kv.CFBlock)
	if err := chainStore.WriteBlockBatch(blockBatch, block); err != nil {
		return err
	}

	receipts := make([]*types.Receipt, len(results))
	for i, r := range results {
		receipts[i] = r.Receipt
	}
	receiptBatch := kvStore.NewBatch(kv.CFReceipt)
	if err := chainStore.WriteReceiptsBatch(receiptBatch, block.Header.Number, block.TxHashes, receipts); err != nil {
		return err
	}

	hashIndexBatch := kvStore.NewBatch(kv.CFHashToHeight)
	if err := chainStore.IndexHashToHeight(hashIndexBatch, block.Hash(), block.Header.Number); err != nil {
		return err
	}

	latestBlockBatch := kvStore.NewBatch(kv.CFLatestBlock)
	latestProofBatch := kvStore.NewBatch(kv.CFLatestProof)
	if err := chainStore.WriteLatestBatch(latestBlockBatch, latestProofBatch, block, committingProof); err != nil {
		return err
	}

	return kv.WriteBatches(blockBatch, receiptBatch, hashIndexBatch, latestBlockBatch, latestProofBatch)
}

// handleChoke tallies a liveness-escape vote and advances the round once
// ⅔ choke weight is reached — spec.md §4.5.1 "Choke / liveness escape".
func (e *Engine) handleChoke(sc SignedChoke) error {
	e.mu.Lock()
	height, round, validators := e.height, e.round, e.validators
	e.mu.Unlock()

	if sc.Height != height || sc.Round != round {
		return nil
	}
	idx := validators.IndexOf(sc.Voter)
	if idx < 0 {
		return ErrUnknownVoter
	}
	pub, err := crypto.BLSPublicKeyFromBytes(validators[idx].BLSPubKey)
	if err != nil {
		return err
	}
	sig, err := crypto.BLSSignatureFromBytes(sc.Signature)
	if err != nil {
		return err
	}
	if !crypto.Verify(pub, chokeSignHash(height, round).Bytes(), sig) {
		return ErrInvalidVoteSignature
	}

	e.mu.Lock()
	if e.chokes[round] == nil {
		e.chokes[round] = make(map[common.Address]bool)
	}
	e.chokes[round][sc.Voter] = true
	votedWeight := uint64(0)
	for _, v := range validators {
		if e.chokes[round][v.Address] {
			votedWeight += uint64(v.VoteWeight)
		}
	}
	total := validators.TotalVoteWeight()
	e.mu.Unlock()

	if votedWeight*3 < total*2 {
		return nil
	}
	return e.enterNextRound(height, round+1)
}

// handleTimeout responds to a phase timer firing without quorum: moves
// to the next phase with a nil vote, or (on prevote/precommit timeout)
// broadcasts a choke to escalate toward the next round.
func (e *Engine) handleTimeout(t timeoutMsg) error {
	e.mu.Lock()
	stale := t.height != e.height || t.round != e.round || t.phase != e.phase
	e.mu.Unlock()
	if stale {
		return nil
	}

	switch t.phase {
	case PhasePropose:
		vote := types.Vote{Height: t.height, Round: t.round, VoteType: types.PrevoteType, BlockHash: NilBlockHash}
		e.mu.Lock()
		e.phase = PhasePrevote
		e.mu.Unlock()
		meta, err := e.metadataForRound(t.height)
		if err != nil {
			return err
		}
		e.armTimer(&e.timers.prevote, t.height, t.round, PhasePrevote, ratioTimeout(meta.Interval, meta.Consensus.PrevoteRatio))
		return e.broadcastVote(vote)
	case PhasePrevote, PhasePrecommit:
		return e.broadcastChoke(t.height, t.round)
	}
	return nil
}

func (e *Engine) broadcastChoke(height, round uint64) error {
	msg := chokeSignHash(height, round)
	sig := e.cfg.Identity.BLSPrivateKey.Sign(msg.Bytes())
	sc := SignedChoke{Height: height, Round: round, Voter: e.cfg.Identity.Address, Signature: sig.Bytes()}
	enc, err := encodeChoke(sc)
	if err != nil {
		return err
	}
	if e.transport != nil {
		if err := e.transport.Broadcast(context.Background(), network.ChannelSignedChoke, enc); err != nil {
			return err
		}
	}
	return e.handleChoke(sc)
}

// enterNextRound resets round-scoped state and restarts Propose for the
// next round at the same height, per spec.md §4.5.1's round-cycle
// diagram: "next round on timeout without ⅔ agreement."
func (e *Engine) enterNextRound(height, round uint64) error {
	e.timers.cancelAll()

	e.mu.Lock()
	e.round = round
	e.phase = PhasePropose
	e.proposal = nil
	e.speculative = nil
	validators := e.validators
	e.prevotes = NewVoteSet(validators, types.PrevoteType, height, round)
	e.precommit = NewVoteSet(validators, types.PrecommitType, height, round)
	e.mu.Unlock()

	return e.enterPropose(height, round)
}
