package trie

import (
	"github.com/luxfi/axon/common"
)

// Trie is one handle onto a logical Merkle-Patricia trie rooted at a
// specific root hash; it holds no mutable state beyond the nodes it has
// staged for the next Commit, so opening two Trie instances at two
// different historical roots over the same Store never conflicts
// (spec.md §4.1 "Ownership").
type Trie struct {
	store   *Store
	root    common.Hash
	pending *Batch
}

// New opens a trie at root (common.EmptyRootHash for a brand-new trie)
// over store.
func New(store *Store, root common.Hash) *Trie {
	if root == (common.Hash{}) {
		root = common.EmptyRootHash
	}
	return &Trie{store: store, root: root}
}

// Root returns the trie's current root hash.
func (t *Trie) Root() common.Hash { return t.root }

func (t *Trie) ensurePending() *Batch {
	if t.pending == nil {
		t.pending = t.store.NewBatch()
	}
	return t.pending
}

func (t *Trie) writeNode(n *node) (common.Hash, error) {
	h, enc, err := n.hash()
	if err != nil {
		return common.Hash{}, err
	}
	if err := t.ensurePending().Put(h, enc); err != nil {
		return common.Hash{}, err
	}
	return h, nil
}

// loadNode resolves a node reference to its decoded form, checking the
// pending batch first (so a read-after-write within one Commit cycle
// sees its own uncommitted writes) and then the store.
func (t *Trie) loadNode(h common.Hash) (*node, error) {
	if h == common.EmptyRootHash || h == (common.Hash{}) {
		return nil, nil
	}
	if t.pending != nil {
		if enc, ok := t.pending.pending[h]; ok {
			return decodeNode(enc)
		}
	}
	enc, err := t.store.get(h)
	if err != nil {
		return nil, err
	}
	return decodeNode(enc)
}

// Get returns the value stored under key, and whether it was present.
func (t *Trie) Get(key []byte) ([]byte, bool, error) {
	return t.get(t.root, keybytesToHex(key))
}

func (t *Trie) get(h common.Hash, path []byte) ([]byte, bool, error) {
	n, err := t.loadNode(h)
	if err != nil || n == nil {
		return nil, false, err
	}
	switch n.kind {
	case kindLeaf:
		if prefixLen(n.path, path) == len(n.path) && len(n.path) == len(path) {
			return n.value, true, nil
		}
		return nil, false, nil
	case kindExtension:
		if prefixLen(n.path, path) < len(n.path) {
			return nil, false, nil
		}
		return t.get(n.child, path[len(n.path):])
	case kindBranch:
		if len(path) == 0 {
			if n.value != nil {
				return n.value, true, nil
			}
			return nil, false, nil
		}
		idx := path[0]
		if !n.hasChild[idx] {
			return nil, false, nil
		}
		return t.get(n.children[idx], path[1:])
	}
	panic("trie: unknown node kind")
}

// Insert sets key to value, creating any intermediate leaf/extension/
// branch nodes needed, and advances t.Root() to the new root. Re-
// inserting the same (key, value) is idempotent: it produces the same
// root it already had (spec.md §8 round-trip laws).
func (t *Trie) Insert(key, value []byte) error {
	newRoot, err := t.insert(t.root, keybytesToHex(key), value)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) insert(h common.Hash, path []byte, value []byte) (common.Hash, error) {
	n, err := t.loadNode(h)
	if err != nil {
		return common.Hash{}, err
	}
	if n == nil {
		return t.writeNode(newLeaf(path, value))
	}
	switch n.kind {
	case kindLeaf:
		return t.insertAtLeaf(n, path, value)
	case kindExtension:
		return t.insertAtExtension(n, path, value)
	case kindBranch:
		return t.insertAtBranch(n, path, value)
	}
	panic("trie: unknown node kind")
}

func (t *Trie) insertAtLeaf(n *node, path, value []byte) (common.Hash, error) {
	plen := prefixLen(n.path, path)
	if plen == len(n.path) && plen == len(path) {
		return t.writeNode(newLeaf(n.path, value)) // same-key overwrite
	}
	branch := newBranch()
	if plen == len(n.path) {
		// n.path is a prefix of path (or equal length handled above):
		// the existing leaf's value sits at the branch itself.
		branch.value = n.value
	} else {
		if err := t.setBranchChild(branch, n.path[plen:], n.value, true); err != nil {
			return common.Hash{}, err
		}
	}
	if plen < len(path) {
		if err := t.setBranchChild(branch, path[plen:], value, false); err != nil {
			return common.Hash{}, err
		}
	} else {
		branch.value = value
	}
	return t.wrapWithExtension(n.path[:plen], branch)
}

// setBranchChild installs a new leaf for the remaining suffix at
// branch.children[suffix[0]]; isExistingLeaf distinguishes which of the
// two diverging entries this call is placing purely for readability.
func (t *Trie) setBranchChild(branch *node, suffix []byte, value []byte, isExistingLeaf bool) error {
	idx := suffix[0]
	leafHash, err := t.writeNode(newLeaf(suffix[1:], value))
	if err != nil {
		return err
	}
	branch.hasChild[idx] = true
	branch.children[idx] = leafHash
	return nil
}

func (t *Trie) wrapWithExtension(prefix []byte, branch *node) (common.Hash, error) {
	branchHash, err := t.writeNode(branch)
	if err != nil {
		return common.Hash{}, err
	}
	if len(prefix) == 0 {
		return branchHash, nil
	}
	return t.writeNode(newExtension(prefix, branchHash))
}

func (t *Trie) insertAtExtension(n *node, path, value []byte) (common.Hash, error) {
	plen := prefixLen(n.path, path)
	if plen == len(n.path) {
		newChild, err := t.insert(n.child, path[plen:], value)
		if err != nil {
			return common.Hash{}, err
		}
		return t.writeNode(newExtension(n.path, newChild))
	}
	branch := newBranch()
	if plen == len(n.path)-1 {
		branch.hasChild[n.path[plen]] = true
		branch.children[n.path[plen]] = n.child
	} else {
		subExt := newExtension(n.path[plen+1:], n.child)
		subHash, err := t.writeNode(subExt)
		if err != nil {
			return common.Hash{}, err
		}
		branch.hasChild[n.path[plen]] = true
		branch.children[n.path[plen]] = subHash
	}
	if plen < len(path) {
		if err := t.setBranchChild(branch, path[plen:], value, false); err != nil {
			return common.Hash{}, err
		}
	} else {
		branch.value = value
	}
	return t.wrapWithExtension(n.path[:plen], branch)
}

func (t *Trie) insertAtBranch(n *node, path, value []byte) (common.Hash, error) {
	cp := *n
	if len(path) == 0 {
		cp.value = value
		return t.writeNode(&cp)
	}
	idx := path[0]
	var childHash common.Hash
	var err error
	if cp.hasChild[idx] {
		childHash, err = t.insert(cp.children[idx], path[1:], value)
	} else {
		childHash, err = t.writeNode(newLeaf(path[1:], value))
	}
	if err != nil {
		return common.Hash{}, err
	}
	cp.hasChild[idx] = true
	cp.children[idx] = childHash
	return t.writeNode(&cp)
}

// Commit flushes every node staged by Insert/Delete since the last
// Commit to the physical store and cache, atomically.
func (t *Trie) Commit() (common.Hash, error) {
	if t.pending == nil {
		return t.root, nil
	}
	if err := t.pending.Commit(); err != nil {
		return common.Hash{}, err
	}
	t.pending = nil
	return t.root, nil
}
