package consensus

import (
	"github.com/luxfi/axon/common"
	axonrlp "github.com/luxfi/axon/rlp"
	"github.com/luxfi/axon/types"
)

type rlpSignedProposal struct {
	BlockEnc  []byte
	Round     uint64
	Signature []byte
}

// encodeProposal returns the canonical RLP encoding of a SignedProposal
// for gossip over network.ChannelSignedProposal.
func encodeProposal(p SignedProposal) ([]byte, error) {
	blockEnc, err := p.Block.Encode()
	if err != nil {
		return nil, err
	}
	return axonrlp.EncodeToBytes(&rlpSignedProposal{BlockEnc: blockEnc, Round: p.Round, Signature: p.Signature})
}

// decodeProposal parses the encoding produced by encodeProposal.
func decodeProposal(data []byte) (SignedProposal, error) {
	var r rlpSignedProposal
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return SignedProposal{}, err
	}
	block := &types.Block{}
	if err := block.Decode(r.BlockEnc); err != nil {
		return SignedProposal{}, err
	}
	return SignedProposal{Block: block, Round: r.Round, Signature: r.Signature}, nil
}

type rlpSignedVote struct {
	Height    uint64
	Round     uint64
	VoteType  uint8
	BlockHash []byte
	Voter     []byte
	Signature []byte
}

// encodeVote returns the canonical RLP encoding of a SignedVote for
// gossip over network.ChannelSignedVote/ChannelAggregatedVote.
func encodeVote(v SignedVote) ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpSignedVote{
		Height:    v.Vote.Height,
		Round:     v.Vote.Round,
		VoteType:  uint8(v.Vote.VoteType),
		BlockHash: v.Vote.BlockHash.Bytes(),
		Voter:     v.Voter.Bytes(),
		Signature: v.Signature,
	})
}

// decodeVote parses the encoding produced by encodeVote.
func decodeVote(data []byte) (SignedVote, error) {
	var r rlpSignedVote
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return SignedVote{}, err
	}
	return SignedVote{
		Vote: types.Vote{
			Height:    r.Height,
			Round:     r.Round,
			VoteType:  types.VoteType(r.VoteType),
			BlockHash: common.BytesToHash(r.BlockHash),
		},
		Voter:     common.BytesToAddress(r.Voter),
		Signature: r.Signature,
	}, nil
}

type rlpSignedChoke struct {
	Height    uint64
	Round     uint64
	Voter     []byte
	Signature []byte
}

// encodeChoke returns the canonical RLP encoding of a SignedChoke for
// gossip over network.ChannelSignedChoke.
func encodeChoke(c SignedChoke) ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpSignedChoke{Height: c.Height, Round: c.Round, Voter: c.Voter.Bytes(), Signature: c.Signature})
}

// decodeChoke parses the encoding produced by encodeChoke.
func decodeChoke(data []byte) (SignedChoke, error) {
	var r rlpSignedChoke
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return SignedChoke{}, err
	}
	return SignedChoke{Height: r.Height, Round: r.Round, Voter: common.BytesToAddress(r.Voter), Signature: r.Signature}, nil
}
