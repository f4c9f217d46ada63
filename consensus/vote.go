package consensus

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/types"
)

// ErrUnknownVoter is returned when a vote's signer address is not a
// member of the active validator set.
var ErrUnknownVoter = errors.New("consensus: vote signer is not in the active validator set")

// ErrInvalidVoteSignature is returned when a vote's BLS signature does
// not verify under the claimed voter's public key.
var ErrInvalidVoteSignature = errors.New("consensus: invalid vote signature")

// VoteSet accumulates SignedVotes for a single (height, round, type)
// and, once ⅔ of total vote_weight agrees on one block_hash, can
// produce an aggregated Proof/QC. Grounded on spec.md §4.5.2: a vote is
// validated by locating its Voter address in the epoch's verifier_list,
// verifying its BLS signature under that validator's stored public key,
// and summing its vote_weight.
type VoteSet struct {
	validators types.ValidatorList // already SortCanonical-ed by the caller
	voteType   types.VoteType
	height     uint64
	round      uint64

	// byHash tracks, for each candidate block_hash, which canonical
	// validator indices have voted for it and their aggregate weight.
	byHash map[common.Hash]*hashTally
}

type hashTally struct {
	weight    uint64
	indices   map[int]bool
	signature []*crypto.BLSSignature
	pubkeys   []*crypto.BLSPublicKey
}

// NewVoteSet creates an empty accumulator for (height, round, voteType)
// over validators, which must already be in canonical (BLSPubKey
// ascending) order.
func NewVoteSet(validators types.ValidatorList, voteType types.VoteType, height, round uint64) *VoteSet {
	return &VoteSet{
		validators: validators,
		voteType:   voteType,
		height:     height,
		round:      round,
		byHash:     make(map[common.Hash]*hashTally),
	}
}

// Add verifies and tallies one signed vote, returning the cumulative
// weight now recorded for its block_hash. A vote for the wrong
// (height, round, type) is silently ignored (returns 0, nil) since a
// late/misrouted message is not an error condition for the accumulator
// itself — the caller's dispatch layer is responsible for routing.
func (vs *VoteSet) Add(sv SignedVote) (uint64, error) {
	if sv.Vote.Height != vs.height || sv.Vote.Round != vs.round || sv.Vote.VoteType != vs.voteType {
		return 0, nil
	}

	idx := vs.validators.IndexOf(sv.Voter)
	if idx < 0 {
		return 0, ErrUnknownVoter
	}
	validator := vs.validators[idx]

	pub, err := crypto.BLSPublicKeyFromBytes(validator.BLSPubKey)
	if err != nil {
		return 0, err
	}
	sig, err := crypto.BLSSignatureFromBytes(sv.Signature)
	if err != nil {
		return 0, err
	}
	if !crypto.Verify(pub, sv.Vote.SignHash().Bytes(), sig) {
		return 0, ErrInvalidVoteSignature
	}

	tally, ok := vs.byHash[sv.Vote.BlockHash]
	if !ok {
		tally = &hashTally{indices: make(map[int]bool)}
		vs.byHash[sv.Vote.BlockHash] = tally
	}
	if tally.indices[idx] {
		return tally.weight, nil // duplicate vote from the same validator
	}
	tally.indices[idx] = true
	tally.weight += uint64(validator.VoteWeight)
	tally.signature = append(tally.signature, sig)
	tally.pubkeys = append(tally.pubkeys, pub)

	return tally.weight, nil
}

// HasQuorum reports whether blockHash has accumulated at least ⅔ of the
// active set's total vote_weight.
func (vs *VoteSet) HasQuorum(blockHash common.Hash) bool {
	tally, ok := vs.byHash[blockHash]
	if !ok {
		return false
	}
	total := vs.validators.TotalVoteWeight()
	return tally.weight*3 >= total*2
}

// Quorum returns the blockHash that has reached ⅔ weight, if any.
func (vs *VoteSet) Quorum() (common.Hash, bool) {
	for hash := range vs.byHash {
		if vs.HasQuorum(hash) {
			return hash, true
		}
	}
	return common.Hash{}, false
}

// BuildProof aggregates every signature tallied for blockHash into a
// Proof, with contributors folded into Bitmap in ascending canonical
// order (spec.md §4.5.2: "the engine must include contributors in
// ascending canonical order to make the bitmap deterministic"). The
// proof's Number is vs.height+1: a Proof is carried forward into the
// header of the block that follows the one it commits, matching
// Proof.VoteHash's Number-1 reconstruction.
// BuildProof only produces a meaningful Proof once HasQuorum(blockHash)
// is true; callers are expected to check that first.
func (vs *VoteSet) BuildProof(blockHash common.Hash) (*types.Proof, error) {
	tally, ok := vs.byHash[blockHash]
	if !ok || len(tally.signature) == 0 {
		return nil, errors.New("consensus: no votes tallied for block hash")
	}

	agg, err := crypto.AggregateBLSSignatures(tally.signature)
	if err != nil {
		return nil, err
	}

	var bitmap types.Bitmap
	for i := range vs.validators {
		if tally.indices[i] {
			bitmap = bitmap.Set(i)
		}
	}

	return &types.Proof{
		Number:    vs.height + 1,
		Round:     vs.round,
		BlockHash: blockHash,
		Signature: agg.Bytes(),
		Bitmap:    bitmap,
	}, nil
}

// VerifyProof checks proof against validators (the parent block's
// active set, already in canonical order): recovers the bitmap-selected
// public keys, aggregates them, and verifies the aggregate signature
// over Keccak(RLP(Vote{number-1, round, precommit, block_hash})), then
// checks the selected weight reaches ⅔ of the set's total — spec.md
// §4.5.5 step 3.
func VerifyProof(validators types.ValidatorList, proof *types.Proof) error {
	indices := proof.Bitmap.Indices(len(validators))
	if len(indices) == 0 {
		return errors.New("consensus: proof has no contributors")
	}

	var weight uint64
	pubs := make([]*crypto.BLSPublicKey, 0, len(indices))
	for _, idx := range indices {
		if idx >= len(validators) {
			return errors.New("consensus: proof bitmap references out-of-range validator")
		}
		v := validators[idx]
		pub, err := crypto.BLSPublicKeyFromBytes(v.BLSPubKey)
		if err != nil {
			return err
		}
		pubs = append(pubs, pub)
		weight += uint64(v.VoteWeight)
	}

	total := validators.TotalVoteWeight()
	if weight*3 < total*2 {
		return errors.New("consensus: proof committed weight below two-thirds quorum")
	}

	sig, err := crypto.BLSSignatureFromBytes(proof.Signature)
	if err != nil {
		return err
	}
	if !crypto.VerifyAggregate(pubs, proof.VoteHash().Bytes(), sig) {
		return errors.New("consensus: aggregate proof signature verification failed")
	}
	return nil
}
