package types

import (
	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	axonrlp "github.com/luxfi/axon/rlp"
)

// VoteType distinguishes the two vote phases whose aggregate forms a QC.
type VoteType byte

const (
	PrevoteType   VoteType = 1
	PrecommitType VoteType = 2
	// ChokeType never appears in a Proof (chokes are tallied locally, not
	// aggregated into a QC) but shares Vote's signing envelope so a choke
	// message can't be replayed as a prevote/precommit for the same
	// (height, round) or vice versa.
	ChokeType VoteType = 3
)

// Vote is the message a validator signs during Prevote/Precommit; its
// RLP encoding is exactly the payload aggregated BLS signatures in a
// Proof attest to (spec.md §3, §4.5.2).
type Vote struct {
	Height    uint64
	Round     uint64
	VoteType  VoteType
	BlockHash common.Hash
}

type rlpVote struct {
	Height    uint64
	Round     uint64
	VoteType  uint8
	BlockHash common.Hash
}

// Encode returns the canonical RLP encoding of the vote.
func (v *Vote) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpVote{v.Height, v.Round, uint8(v.VoteType), v.BlockHash})
}

// Decode parses the canonical RLP encoding produced by Encode.
func (v *Vote) Decode(data []byte) error {
	var r rlpVote
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	v.Height, v.Round, v.VoteType, v.BlockHash = r.Height, r.Round, VoteType(r.VoteType), r.BlockHash
	return nil
}

// SignHash is the message BLS signatures over this vote are taken over:
// Keccak(RLP(Vote)).
func (v *Vote) SignHash() common.Hash {
	enc, _ := v.Encode()
	return crypto.Keccak256Hash(enc)
}

// Bitmap is a big-endian bit vector selecting validators, by position in
// the canonical (bls_pub_key-ascending) validator ordering, whose
// signatures were aggregated.
type Bitmap []byte

// Set marks validator index i (0-based) as a contributor.
func (b Bitmap) Set(i int) Bitmap {
	byteIdx := i / 8
	for len(b) <= byteIdx {
		b = append(b, 0)
	}
	b[byteIdx] |= 1 << (7 - uint(i%8))
	return b
}

// IsSet reports whether validator index i contributed.
func (b Bitmap) IsSet(i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(b) {
		return false
	}
	return b[byteIdx]&(1<<(7-uint(i%8))) != 0
}

// Indices returns the sorted list of contributor indices, ascending —
// the canonical order required when aggregating BLS keys (spec.md
// §4.5.2: "the engine must include contributors in ascending canonical
// order to make the bitmap deterministic").
func (b Bitmap) Indices(n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if b.IsSet(i) {
			out = append(out, i)
		}
	}
	return out
}

// Proof is the BFT commit certificate for the previous block: an
// aggregated BLS signature over Keccak(RLP(Vote{height, round,
// precommit, block_hash})) by the bitmap-selected subset of the parent
// epoch's validator set.
type Proof struct {
	Number    uint64
	Round     uint64
	BlockHash common.Hash
	Signature []byte
	Bitmap    Bitmap
}

type rlpProof struct {
	Number    uint64
	Round     uint64
	BlockHash common.Hash
	Signature []byte
	Bitmap    []byte
}

// Encode returns the canonical RLP encoding of the proof.
func (p *Proof) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(&rlpProof{p.Number, p.Round, p.BlockHash, p.Signature, []byte(p.Bitmap)})
}

// Decode parses the canonical RLP encoding produced by Encode.
func (p *Proof) Decode(data []byte) error {
	var r rlpProof
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	p.Number, p.Round, p.BlockHash, p.Signature, p.Bitmap = r.Number, r.Round, r.BlockHash, r.Signature, Bitmap(r.Bitmap)
	return nil
}

// VoteHash returns the Keccak(RLP(Vote{Number-1, Round, precommit,
// BlockHash})) the proof's aggregated signature is taken over: the
// precommit is for the parent block at its own height, carried forward
// into this header.
func (p *Proof) VoteHash() common.Hash {
	v := Vote{Height: p.Number - 1, Round: p.Round, VoteType: PrecommitType, BlockHash: p.BlockHash}
	return v.SignHash()
}

// GenesisProof is the well-known zero-value proof a genesis header
// carries (there is no parent to attest to).
func GenesisProof() *Proof {
	return &Proof{Signature: []byte{}, Bitmap: Bitmap{}}
}
