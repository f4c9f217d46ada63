package trie

import (
	"testing"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/storage/kv"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := kv.NewMemory()
	return NewStore(store.CF(kv.CFEVMState))
}

func TestTrieEmptyRoot(t *testing.T) {
	tr := New(newTestStore(t), common.Hash{})
	require.Equal(t, common.EmptyRootHash, tr.Root())
}

func TestTrieInsertGet(t *testing.T) {
	tr := New(newTestStore(t), common.Hash{})
	require.NoError(t, tr.Insert([]byte("do"), []byte("verb")))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	require.NoError(t, tr.Insert([]byte("horse"), []byte("stallion")))

	v, ok, err := tr.Get([]byte("dog"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("puppy"), v)

	_, err = tr.Commit()
	require.NoError(t, err)

	v, ok, err = tr.Get([]byte("doge"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("coin"), v)

	_, ok, err = tr.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestTrieIdempotentInsert is the idempotence law from spec.md §8:
// root(insert(insert(t, k, v), k, v)) == root(insert(t, k, v)).
func TestTrieIdempotentInsert(t *testing.T) {
	store := newTestStore(t)
	tr1 := New(store, common.Hash{})
	require.NoError(t, tr1.Insert([]byte("key"), []byte("value")))
	root1, err := tr1.Commit()
	require.NoError(t, err)

	tr2 := New(store, common.Hash{})
	require.NoError(t, tr2.Insert([]byte("key"), []byte("value")))
	require.NoError(t, tr2.Insert([]byte("key"), []byte("value")))
	root2, err := tr2.Commit()
	require.NoError(t, err)

	require.Equal(t, root1, root2)
}

func TestTrieDeleteConvergesWithNeverInserted(t *testing.T) {
	store := newTestStore(t)

	withExtra := New(store, common.Hash{})
	require.NoError(t, withExtra.Insert([]byte("aa"), []byte("1")))
	require.NoError(t, withExtra.Insert([]byte("ab"), []byte("2")))
	require.NoError(t, withExtra.Delete([]byte("ab")))
	rootAfterDelete, err := withExtra.Commit()
	require.NoError(t, err)

	baseline := New(store, common.Hash{})
	require.NoError(t, baseline.Insert([]byte("aa"), []byte("1")))
	rootBaseline, err := baseline.Commit()
	require.NoError(t, err)

	require.Equal(t, rootBaseline, rootAfterDelete)
}

func TestTrieHistoricalRootStillReadable(t *testing.T) {
	store := newTestStore(t)
	tr := New(store, common.Hash{})
	require.NoError(t, tr.Insert([]byte("k1"), []byte("v1")))
	root1, err := tr.Commit()
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("k2"), []byte("v2")))
	_, err = tr.Commit()
	require.NoError(t, err)

	old := New(store, root1)
	_, ok, err := old.Get([]byte("k2"))
	require.NoError(t, err)
	require.False(t, ok, "k2 must not be visible at the historical root")

	v, ok, err := old.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}
