package syscontract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/types"
)

func TestMetadataAppendRequiresContiguity(t *testing.T) {
	store := kv.NewMemory()
	m := NewMetadata(store.CF(kv.CFMetadataState))

	first := &types.Metadata{Version: types.VersionRange{Start: 0, End: 99}, Epoch: 0, GasLimit: 30_000_000}
	require.NoError(t, m.append(first))

	gap := &types.Metadata{Version: types.VersionRange{Start: 101, End: 200}, Epoch: 1}
	require.ErrorIs(t, m.append(gap), ErrMetadataNotContiguous)

	badEpoch := &types.Metadata{Version: types.VersionRange{Start: 100, End: 200}, Epoch: 5}
	require.ErrorIs(t, m.append(badEpoch), ErrMetadataNotContiguous)

	next := &types.Metadata{Version: types.VersionRange{Start: 100, End: 200}, Epoch: 1, GasLimit: 40_000_000}
	require.NoError(t, m.append(next))
}

func TestMetadataByBlockNumberResolvesEffectiveEpoch(t *testing.T) {
	store := kv.NewMemory()
	m := NewMetadata(store.CF(kv.CFMetadataState))

	require.NoError(t, m.append(&types.Metadata{Version: types.VersionRange{Start: 0, End: 99}, Epoch: 0, GasLimit: 1}))
	require.NoError(t, m.append(&types.Metadata{Version: types.VersionRange{Start: 100, End: 199}, Epoch: 1, GasLimit: 2}))

	meta, err := m.MetadataByBlockNumber(nil, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(0), meta.Epoch)

	meta, err = m.MetadataByBlockNumber(nil, 150)
	require.NoError(t, err)
	require.Equal(t, uint64(1), meta.Epoch)
}

func TestMetadataByEpoch(t *testing.T) {
	store := kv.NewMemory()
	m := NewMetadata(store.CF(kv.CFMetadataState))
	require.NoError(t, m.append(&types.Metadata{Version: types.VersionRange{Start: 0, End: 99}, Epoch: 0, GasLimit: 7}))

	meta, err := m.MetadataByEpoch(nil, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(7), meta.GasLimit)
}
