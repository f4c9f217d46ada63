package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

func TestProposalCodecRoundTrip(t *testing.T) {
	header := &types.Header{Number: 3, Round: 1, Proposer: common.Address{0x1}, Proof: types.GenesisProof()}
	block := &types.Block{Header: header, TxHashes: []common.Hash{{0xa}, {0xb}}}
	proposal := SignedProposal{Block: block, Round: 1, Signature: []byte{1, 2, 3}}

	enc, err := encodeProposal(proposal)
	require.NoError(t, err)
	decoded, err := decodeProposal(enc)
	require.NoError(t, err)

	require.Equal(t, block.Hash(), decoded.Block.Hash())
	require.Equal(t, proposal.Round, decoded.Round)
	require.Equal(t, proposal.Signature, decoded.Signature)
}

func TestVoteCodecRoundTrip(t *testing.T) {
	sv := SignedVote{
		Vote:      types.Vote{Height: 4, Round: 2, VoteType: types.PrecommitType, BlockHash: common.Hash{0xc}},
		Voter:     common.Address{0x2},
		Signature: []byte{4, 5, 6},
	}

	enc, err := encodeVote(sv)
	require.NoError(t, err)
	decoded, err := decodeVote(enc)
	require.NoError(t, err)
	require.Equal(t, sv, decoded)
}

func TestChokeCodecRoundTrip(t *testing.T) {
	sc := SignedChoke{Height: 8, Round: 3, Voter: common.Address{0x3}, Signature: []byte{7, 8}}

	enc, err := encodeChoke(sc)
	require.NoError(t, err)
	decoded, err := decodeChoke(enc)
	require.NoError(t, err)
	require.Equal(t, sc, decoded)
}
