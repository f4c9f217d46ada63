package consensus

import (
	"context"
	"testing"

	gethparams "github.com/luxfi/geth/params"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/internal/merkleutil"
	"github.com/luxfi/axon/network"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

// fixedEpoch is a minimal EpochSource returning the same validator set
// for every height, enough to exercise Syncer without a genesis/epoch
// package.
type fixedEpoch struct {
	validators types.ValidatorList
}

func (f fixedEpoch) MetadataAt(uint64) (*types.Metadata, error) {
	return &types.Metadata{VerifierList: f.validators}, nil
}

func newTestHarness(t *testing.T, validators types.ValidatorList) (*execution.Executor, *chain.Store, *kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	accountStore := trie.NewStore(store.CF(kv.CFEVMState))
	codeDB := store.CF(kv.CFEVMCode)
	exec := execution.NewExecutor(accountStore, accountStore, codeDB, &gethparams.ChainConfig{}, nil)
	return exec, chain.New(store), store
}

// seedGenesis constructs and seeds an empty-transaction genesis block
// at height 0 directly, without going through the genesis package.
func seedGenesis(t *testing.T, chainStore *chain.Store, store *kv.Store) *types.Block {
	t.Helper()
	txRoot, err := merkleutil.MerkleRoot(nil)
	require.NoError(t, err)
	signedHash, err := merkleutil.SignedTxsHash(nil)
	require.NoError(t, err)

	header := &types.Header{
		Number:           0,
		StateRoot:        common.EmptyRootHash,
		TransactionsRoot: txRoot,
		SignedTxsHash:    signedHash,
		ReceiptsRoot:     txRoot,
		Proof:            types.GenesisProof(),
	}
	block := &types.Block{Header: header}

	blockBatch := store.NewBatch(kv.CFBlock)
	latestBlockBatch := store.NewBatch(kv.CFLatestBlock)
	latestProofBatch := store.NewBatch(kv.CFLatestProof)
	require.NoError(t, chainStore.WriteBlockBatch(blockBatch, block))
	require.NoError(t, chainStore.WriteLatestBatch(latestBlockBatch, latestProofBatch, block, types.GenesisProof()))
	require.NoError(t, kv.WriteBatches(blockBatch, latestBlockBatch, latestProofBatch))
	return block
}

// buildChildBlock produces the next empty-transaction block after
// parent, proposed by the deterministic leader and carrying parentProof
// (the QC that commits parent) in its header, per the carry-forward
// convention.
func buildChildBlock(t *testing.T, validators types.ValidatorList, parent *types.Block, parentProof *types.Proof) *types.Block {
	t.Helper()
	txRoot, err := merkleutil.MerkleRoot(nil)
	require.NoError(t, err)
	signedHash, err := merkleutil.SignedTxsHash(nil)
	require.NoError(t, err)

	height := parent.Number() + 1
	header := &types.Header{
		PrevHash:         parent.Hash(),
		Proposer:         Leader(validators, height, 0),
		StateRoot:        parent.Header.StateRoot,
		TransactionsRoot: txRoot,
		SignedTxsHash:    signedHash,
		ReceiptsRoot:     txRoot,
		Number:           height,
		Round:            0,
		Proof:            parentProof,
	}
	return &types.Block{Header: header}
}

// buildProof has every member of validators precommit hash at
// (height, round) and aggregates the result, mirroring what a live
// Engine's VoteSet would produce.
func buildProof(t *testing.T, validators types.ValidatorList, members []blsValidator, height, round uint64, hash common.Hash) *types.Proof {
	t.Helper()
	vs := NewVoteSet(validators, types.PrecommitType, height, round)
	vote := types.Vote{Height: height, Round: round, VoteType: types.PrecommitType, BlockHash: hash}
	for _, m := range members {
		_, err := vs.Add(signVote(m, vote))
		require.NoError(t, err)
	}
	require.True(t, vs.HasQuorum(hash))
	proof, err := vs.BuildProof(hash)
	require.NoError(t, err)
	return proof
}

// fakeSyncTransport routes Request calls directly to a remote Syncer's
// Serve* handlers, standing in for a concrete P2P transport in tests.
type fakeSyncTransport struct {
	remote       *Syncer
	remoteHeight uint64
}

func (f *fakeSyncTransport) Broadcast(context.Context, network.Channel, []byte) error { return nil }

func (f *fakeSyncTransport) Request(_ context.Context, _ network.PeerID, channel network.Channel, payload []byte) ([]byte, error) {
	switch channel {
	case network.RPCSyncPullBlock:
		return f.remote.ServeSyncPullBlock(payload)
	case network.RPCSyncPullProof:
		return f.remote.ServeSyncPullProof(payload)
	case network.RPCSyncPullTxs:
		return f.remote.ServeSyncPullTxs(payload)
	}
	return nil, errUnsupportedChannel
}

func (f *fakeSyncTransport) PeerHeights() map[network.PeerID]uint64 {
	return map[network.PeerID]uint64{"remote": f.remoteHeight}
}

func (f *fakeSyncTransport) AnnounceHeight(context.Context, uint64) error { return nil }

var errUnsupportedChannel = errNew("consensus: test transport does not serve this channel")

func errNew(s string) error { return &simpleErr{s} }

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }

func TestSyncToCatchesUpFromGenesis(t *testing.T) {
	validators, members := blsValidators(t, 1, 1, 1)
	epochs := fixedEpoch{validators: validators}

	remoteExec, remoteChain, remoteKV := newTestHarness(t, validators)
	genesis := seedGenesis(t, remoteChain, remoteKV)

	parentBlock := genesis
	parentProof := types.GenesisProof() // genesis's own header.Proof placeholder; block 1 carries it forward
	committed := []*types.Block{genesis}
	for h := uint64(1); h <= 3; h++ {
		block := buildChildBlock(t, validators, parentBlock, parentProof)
		proof := buildProof(t, validators, members, h, 0, block.Hash()) // QC committing this very block
		require.NoError(t, commitBlock(remoteChain, remoteKV, block, nil, proof))
		committed = append(committed, block)
		parentBlock, parentProof = block, proof
	}

	remoteTip, err := remoteChain.ReadLatestBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(3), remoteTip.Number())

	remoteSyncer := NewSyncer(epochs, remoteExec, remoteChain, remoteKV, nil)

	localExec, localChain, localKV := newTestHarness(t, validators)
	seedGenesis(t, localChain, localKV)

	transport := &fakeSyncTransport{remote: remoteSyncer, remoteHeight: 3}
	localSyncer := NewSyncer(epochs, localExec, localChain, localKV, transport)

	require.NoError(t, localSyncer.SyncTo(context.Background(), "remote", 3))

	localTip, err := localChain.ReadLatestBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(3), localTip.Number())
	require.Equal(t, committed[3].Hash(), localTip.Hash())

	localProof, err := localChain.ReadLatestProof()
	require.NoError(t, err)
	remoteProof, err := remoteChain.ReadLatestProof()
	require.NoError(t, err)
	require.Equal(t, remoteProof.Signature, localProof.Signature)
	require.Equal(t, remoteProof.BlockHash, localProof.BlockHash)
}

func TestMaybeSyncIsNoOpWhenCaughtUp(t *testing.T) {
	validators, _ := blsValidators(t, 1, 1, 1)
	epochs := fixedEpoch{validators: validators}

	exec, chainStore, store := newTestHarness(t, validators)
	seedGenesis(t, chainStore, store)

	transport := &fakeSyncTransport{remoteHeight: 0}
	syncer := NewSyncer(epochs, exec, chainStore, store, transport)

	require.NoError(t, syncer.MaybeSync(context.Background()))

	tip, err := chainStore.ReadLatestBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(0), tip.Number())
}

func TestSyncToRejectsUnseededChain(t *testing.T) {
	validators, _ := blsValidators(t, 1)
	epochs := fixedEpoch{validators: validators}
	exec, chainStore, store := newTestHarness(t, validators)

	syncer := NewSyncer(epochs, exec, chainStore, store, &fakeSyncTransport{})
	err := syncer.SyncTo(context.Background(), "remote", 1)
	require.Error(t, err)
}
