package trie

import "github.com/luxfi/axon/common"

// Delete removes key from the trie, collapsing branches that are left
// with a single remaining child so the trie shape stays canonical
// (two tries built by different insert/delete histories that end up
// holding the same key/value set produce the same root). Deleting a
// key that is not present is a no-op.
func (t *Trie) Delete(key []byte) error {
	newRoot, _, err := t.delete(t.root, keybytesToHex(key))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// delete returns the new subtree root and whether the key was found.
func (t *Trie) delete(h common.Hash, path []byte) (common.Hash, bool, error) {
	n, err := t.loadNode(h)
	if err != nil || n == nil {
		return h, false, err
	}
	switch n.kind {
	case kindLeaf:
		if prefixLen(n.path, path) == len(n.path) && len(n.path) == len(path) {
			return common.EmptyRootHash, true, nil
		}
		return h, false, nil
	case kindExtension:
		if prefixLen(n.path, path) < len(n.path) {
			return h, false, nil
		}
		childRoot, found, err := t.delete(n.child, path[len(n.path):])
		if err != nil || !found {
			return h, found, err
		}
		return t.rebuildExtension(n.path, childRoot)
	case kindBranch:
		return t.deleteFromBranch(n, path)
	}
	panic("trie: unknown node kind")
}

func (t *Trie) rebuildExtension(prefix []byte, childRoot common.Hash) (common.Hash, bool, error) {
	if childRoot == common.EmptyRootHash || childRoot == (common.Hash{}) {
		return common.EmptyRootHash, true, nil
	}
	child, err := t.loadNode(childRoot)
	if err != nil {
		return common.Hash{}, false, err
	}
	merged, err := t.mergePrefix(prefix, child, childRoot)
	if err != nil {
		return common.Hash{}, false, err
	}
	return merged, true, nil
}

// mergePrefix folds prefix into child, producing a single node when
// child is itself a leaf or extension (canonical collapsing).
func (t *Trie) mergePrefix(prefix []byte, child *node, childHash common.Hash) (common.Hash, error) {
	if child == nil {
		return t.writeNode(newExtension(prefix, childHash))
	}
	switch child.kind {
	case kindLeaf:
		return t.writeNode(newLeaf(append(append([]byte{}, prefix...), child.path...), child.value))
	case kindExtension:
		return t.writeNode(newExtension(append(append([]byte{}, prefix...), child.path...), child.child))
	default:
		return t.writeNode(newExtension(prefix, childHash))
	}
}

func (t *Trie) deleteFromBranch(n *node, path []byte) (common.Hash, bool, error) {
	cp := *n
	var found bool
	var err error
	if len(path) == 0 {
		if cp.value == nil {
			return common.Hash{}, false, nil
		}
		cp.value = nil
		found = true
	} else {
		idx := path[0]
		if !cp.hasChild[idx] {
			return common.Hash{}, false, nil
		}
		var newChild common.Hash
		newChild, found, err = t.delete(cp.children[idx], path[1:])
		if err != nil || !found {
			return common.Hash{}, found, err
		}
		if newChild == common.EmptyRootHash || newChild == (common.Hash{}) {
			cp.hasChild[idx] = false
			cp.children[idx] = common.Hash{}
		} else {
			cp.children[idx] = newChild
		}
	}
	h, err := t.collapseBranch(&cp)
	return h, found, err
}

// collapseBranch writes cp as-is unless exactly one child (and no
// in-place value) remains, in which case it folds that single child
// into an extension (or a bare leaf/extension if there is no prefix).
func (t *Trie) collapseBranch(cp *node) (common.Hash, error) {
	count, only := 0, -1
	for i := 0; i < 16; i++ {
		if cp.hasChild[i] {
			count++
			only = i
		}
	}
	if count == 0 && cp.value != nil {
		return t.writeNode(newLeaf(nil, cp.value))
	}
	if count == 1 && cp.value == nil {
		child, err := t.loadNode(cp.children[only])
		if err != nil {
			return common.Hash{}, err
		}
		prefix := []byte{byte(only)}
		return t.mergePrefix(prefix, child, cp.children[only])
	}
	return t.writeNode(cp)
}
