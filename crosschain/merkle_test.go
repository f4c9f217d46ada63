package crosschain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
)

func leafHash(b byte) common.Hash {
	var h common.Hash
	h[31] = b
	return h
}

func TestTreeProofVerifiesForEveryLeaf(t *testing.T) {
	leaves := []common.Hash{leafHash(1), leafHash(2), leafHash(3), leafHash(4), leafHash(5)}
	tree := NewTree(leaves)
	root := tree.Root()
	require.NotEqual(t, common.Hash{}, root)

	for i := range leaves {
		proof, err := tree.ProofFor(i)
		require.NoError(t, err)
		require.Equal(t, leaves[i], proof.Leaf)
		require.True(t, Verify(root, proof), "leaf %d failed to verify", i)
	}
}

func TestTreeProofRejectsTamperedLeaf(t *testing.T) {
	leaves := []common.Hash{leafHash(1), leafHash(2), leafHash(3)}
	tree := NewTree(leaves)
	root := tree.Root()

	proof, err := tree.ProofFor(1)
	require.NoError(t, err)
	proof.Leaf = leafHash(9)
	require.False(t, Verify(root, proof))
}

func TestProofForOutOfRangeIndex(t *testing.T) {
	tree := NewTree([]common.Hash{leafHash(1)})
	_, err := tree.ProofFor(5)
	require.ErrorIs(t, err, ErrLeafIndexOutOfRange)
}

func TestEmptyTreeHasZeroRoot(t *testing.T) {
	tree := NewTree(nil)
	require.Equal(t, common.Hash{}, tree.Root())
}
