package trie

import (
	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	axonrlp "github.com/luxfi/axon/rlp"
)

// nodeKind distinguishes the 2-field shape's two meanings on decode.
type nodeKind byte

const (
	kindBranch nodeKind = iota
	kindExtension
	kindLeaf
)

// node is the in-memory representation of one MPT node. Branch holds 16
// child references plus an optional value at the branch itself; Ext/Leaf
// share a path+value shape distinguished by hex-prefix terminator bit.
type node struct {
	kind     nodeKind
	children [16]common.Hash // branch only; zero hash means empty slot
	hasChild [16]bool
	value    []byte // branch in-place value, or leaf value
	path     []byte // raw nibbles (no hex-prefix), ext/leaf only
	child    common.Hash // extension only
}

// rlpBranch/rlpPathNode are the wire shapes. A branch is always a
// 17-element list; ext/leaf are always a 2-element list, so a decoder
// can tell them apart purely from list length before even looking at
// the hex-prefix flag nibble.
type rlpBranch struct {
	Children [16][]byte
	Value    []byte
}

type rlpPathNode struct {
	Path  []byte
	Value []byte
}

func emptyHashBytes(h common.Hash) []byte {
	if h == (common.Hash{}) {
		return nil
	}
	return h.Bytes()
}

// encode returns the canonical RLP encoding of n.
func (n *node) encode() ([]byte, error) {
	switch n.kind {
	case kindBranch:
		var r rlpBranch
		for i := 0; i < 16; i++ {
			if n.hasChild[i] {
				r.Children[i] = n.children[i].Bytes()
			}
		}
		r.Value = n.value
		return axonrlp.EncodeToBytes(&r)
	case kindExtension:
		return axonrlp.EncodeToBytes(&rlpPathNode{Path: hexToCompact(n.path), Value: n.child.Bytes()})
	case kindLeaf:
		path := append(append([]byte{}, n.path...), 16)
		return axonrlp.EncodeToBytes(&rlpPathNode{Path: hexToCompact(path), Value: n.value})
	}
	panic("trie: unknown node kind")
}

// hash returns Keccak256 of the node's canonical RLP encoding — its key
// in the node store.
func (n *node) hash() (common.Hash, []byte, error) {
	enc, err := n.encode()
	if err != nil {
		return common.Hash{}, nil, err
	}
	return crypto.Keccak256Hash(enc), enc, nil
}

// decodeNode parses a node's canonical RLP encoding, distinguishing
// branch (17 fields) from ext/leaf (2 fields) and leaf from extension
// via the hex-prefix terminator flag.
func decodeNode(enc []byte) (*node, error) {
	var asBranch rlpBranch
	if err := axonrlp.DecodeBytes(enc, &asBranch); err == nil {
		n := &node{kind: kindBranch, value: asBranch.Value}
		for i := 0; i < 16; i++ {
			if len(asBranch.Children[i]) > 0 {
				n.hasChild[i] = true
				n.children[i] = common.BytesToHash(asBranch.Children[i])
			}
		}
		return n, nil
	}
	var asPath rlpPathNode
	if err := axonrlp.DecodeBytes(enc, &asPath); err != nil {
		return nil, err
	}
	nibbles := compactToHex(asPath.Path)
	if hasTerm(nibbles) {
		return &node{kind: kindLeaf, path: nibbles[:len(nibbles)-1], value: asPath.Value}, nil
	}
	return &node{kind: kindExtension, path: nibbles, child: common.BytesToHash(asPath.Value)}, nil
}

func newLeaf(path []byte, value []byte) *node {
	return &node{kind: kindLeaf, path: path, value: value}
}

func newExtension(path []byte, child common.Hash) *node {
	return &node{kind: kindExtension, path: path, child: child}
}

func newBranch() *node {
	return &node{kind: kindBranch}
}
