// Package crosschain models the parent-chain mirroring loop this node
// runs alongside consensus: a Monitor polls an external header feed and
// keeps the in-chain light-client contract (syscontract.ParentLightClient)
// current, and a Relayer pushes this chain's own committed checkpoints
// outward to that same parent chain. The actual parent-chain RPC client
// is out of scope (spec.md §1); this package defines the seam — feed,
// sink, and outbound client interfaces — a concrete client plugs into.
//
// Grounded on original_source/core/cross-client: monitor.rs's
// CrossChainMonitor (poll tip, fetch blocks behind a non-fork gap,
// forward matching transactions) and sidechain.rs's SidechainTask
// (build and sign an outbound checkpoint submission).
package crosschain

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
)

// ErrLeafIndexOutOfRange is returned when a proof is requested for a
// leaf index the tree was not built with.
var ErrLeafIndexOutOfRange = errors.New("crosschain: leaf index out of range")

// LeafProof is one leaf's audit path to a Tree's root: Index is the
// leaf's 0-based position, and Siblings holds one sibling hash per
// level, lowest level first — the same shape precompile.LeafProof
// uses for the inbound direction, kept as an independent type here
// since this tree commits to this chain's own checkpoint leaves, not
// a mirrored parent-chain transactions_root.
type LeafProof struct {
	Leaf     common.Hash
	Index    uint64
	Siblings []common.Hash
}

// Tree is a binary Merkle tree over an ordered list of leaf hashes,
// grounded on common/merkle/src/lib.rs's Merkle type (Tree::from_hashes
// plus a Keccak merge function, rather than the CKB CBMT library that
// original's static_merkle_tree crate wraps).
type Tree struct {
	levels [][]common.Hash // levels[0] is the leaves, levels[len-1] is a single root
}

// merge mirrors lib.rs's merge(): Keccak256(left || right).
func merge(left, right common.Hash) common.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, left.Bytes()...)
	buf = append(buf, right.Bytes()...)
	return crypto.Keccak256Hash(buf)
}

// NewTree builds a tree over leaves. An odd level is completed by
// duplicating its last node, the conventional Bitcoin-style padding
// rule the original's static_merkle_tree crate also applies.
func NewTree(leaves []common.Hash) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]common.Hash{{}}}
	}
	level := append([]common.Hash{}, leaves...)
	levels := [][]common.Hash{level}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, merge(level[i], level[i+1]))
			} else {
				next = append(next, merge(level[i], level[i]))
			}
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}
}

// Root returns the tree's root hash, or the zero hash for an empty tree.
func (t *Tree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return common.Hash{}
	}
	return top[0]
}

// ProofFor returns the audit path for leaf index, climbing one sibling
// per level the same way lib.rs's get_proof_by_input_index does.
func (t *Tree) ProofFor(index int) (*LeafProof, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, ErrLeafIndexOutOfRange
	}
	proof := &LeafProof{Leaf: t.levels[0][index], Index: uint64(index)}
	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]
		var sibling common.Hash
		if idx%2 == 0 {
			if idx+1 < len(nodes) {
				sibling = nodes[idx+1]
			} else {
				sibling = nodes[idx] // the odd-node-duplicated case
			}
		} else {
			sibling = nodes[idx-1]
		}
		proof.Siblings = append(proof.Siblings, sibling)
		idx /= 2
	}
	return proof, nil
}

// Verify reconstructs root from proof and reports whether it matches.
func Verify(root common.Hash, proof *LeafProof) bool {
	cur := proof.Leaf
	idx := proof.Index
	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			cur = merge(cur, sibling)
		} else {
			cur = merge(sibling, cur)
		}
		idx /= 2
	}
	return cur == root
}
