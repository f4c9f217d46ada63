package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/internal/merkleutil"
	"github.com/luxfi/axon/types"
)

func testTx(nonce uint64) *types.SignedTransaction {
	tx := &types.Transaction{
		Type:                 types.DynamicFeeTxType,
		Nonce:                nonce,
		MaxPriorityFeePerGas: big.NewInt(0),
		MaxFeePerGas:         big.NewInt(1),
		GasLimit:             21000,
		Action:               types.TxAction{To: common.Address{0x9}},
		Value:                big.NewInt(0),
		ChainID:              big.NewInt(1),
	}
	return &types.SignedTransaction{UnverifiedTransaction: types.UnverifiedTransaction{Transaction: tx}}
}

func TestVerifyAncestryRequiresContiguousNumberAndHash(t *testing.T) {
	parent := &types.Header{Number: 5}
	good := &types.Header{Number: 6, PrevHash: parent.Hash()}
	require.NoError(t, VerifyAncestry(parent, good))

	badNumber := &types.Header{Number: 7, PrevHash: parent.Hash()}
	require.ErrorIs(t, VerifyAncestry(parent, badNumber), ErrUnknownAncestor)

	badHash := &types.Header{Number: 6, PrevHash: common.Hash{0x1}}
	require.ErrorIs(t, VerifyAncestry(parent, badHash), ErrUnknownAncestor)
}

func TestVerifyAuthorityChecksDeterministicLeader(t *testing.T) {
	validators, _ := blsValidators(t, 1, 1, 1)
	leader := Leader(validators, 10, 2)

	candidate := &types.Header{Number: 10, Round: 2, Proposer: leader}
	require.NoError(t, VerifyAuthority(validators, candidate))

	impostor := &types.Header{Number: 10, Round: 2, Proposer: common.Address{0xee}}
	require.ErrorIs(t, VerifyAuthority(validators, impostor), ErrNotLeader)
}

func TestVerifyIntegrityChecksSignedTxsHashAndRoot(t *testing.T) {
	txs := []*types.SignedTransaction{testTx(0), testTx(1)}

	signedHash, err := merkleutil.SignedTxsHash(txs)
	require.NoError(t, err)
	encoded := make([][]byte, len(txs))
	for i, tx := range txs {
		enc, err := tx.UnverifiedTransaction.Encode()
		require.NoError(t, err)
		encoded[i] = enc
	}
	root, err := merkleutil.MerkleRoot(encoded)
	require.NoError(t, err)

	candidate := &types.Header{SignedTxsHash: signedHash, TransactionsRoot: root}
	require.NoError(t, VerifyIntegrity(candidate, txs))

	tampered := &types.Header{SignedTxsHash: common.Hash{0x1}, TransactionsRoot: root}
	require.ErrorIs(t, VerifyIntegrity(tampered, txs), ErrSignedTxsMismatch)

	wrongRoot := &types.Header{SignedTxsHash: signedHash, TransactionsRoot: common.Hash{0x2}}
	require.ErrorIs(t, VerifyIntegrity(wrongRoot, txs), ErrRootMismatch)
}

func TestVerifyProofAgainstParentSkipsFirstBlock(t *testing.T) {
	validators, _ := blsValidators(t, 1, 1)
	candidate := &types.Header{Number: 1, Proof: types.GenesisProof()}
	require.NoError(t, VerifyProofAgainstParent(validators, candidate))
}

func TestVerifyProofAgainstParentChecksAggregateSignature(t *testing.T) {
	validators, members := blsValidators(t, 1, 1, 1)
	height, round := uint64(4), uint64(0)
	vs := NewVoteSet(validators, types.PrecommitType, height, round)
	hash := common.Hash{0x5}
	vote := types.Vote{Height: height, Round: round, VoteType: types.PrecommitType, BlockHash: hash}
	for i := 0; i < 3; i++ {
		_, err := vs.Add(signVote(members[i], vote))
		require.NoError(t, err)
	}
	proof, err := vs.BuildProof(hash)
	require.NoError(t, err)

	candidate := &types.Header{Number: proof.Number, Proof: proof}
	require.NoError(t, VerifyProofAgainstParent(validators, candidate))

	proof.Signature[0] ^= 0xff
	require.Error(t, VerifyProofAgainstParent(validators, candidate))
}
