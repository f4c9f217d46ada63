package wal

import (
	"testing"

	"github.com/luxfi/axon/storage/kv"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	store := kv.NewMemory()
	return New(store.CF(kv.CFWAL))
}

func TestAppendGet(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Entry{Height: 10, Round: 0, Phase: PhasePrevote, Payload: []byte("vote-a")}))

	v, ok, err := l.Get(10, PhasePrevote, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("vote-a"), v)

	_, ok, err = l.Get(10, PhasePrecommit, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReplayOrdersByHeightRoundPhase(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Entry{Height: 5, Round: 1, Phase: PhasePropose, Payload: []byte("p5")}))
	require.NoError(t, l.Append(Entry{Height: 5, Round: 0, Phase: PhasePrevote, Payload: []byte("p0")}))
	require.NoError(t, l.Append(Entry{Height: 6, Round: 0, Phase: PhasePropose, Payload: []byte("p6")}))

	resume, entries, err := l.Replay(0)
	require.NoError(t, err)
	require.True(t, resume.Found)
	require.Equal(t, uint64(6), resume.Height)

	require.Len(t, entries, 3)
	require.Equal(t, uint64(5), entries[0].Height)
	require.Equal(t, uint64(0), entries[0].Round)
	require.Equal(t, uint64(5), entries[1].Height)
	require.Equal(t, uint64(1), entries[1].Round)
	require.Equal(t, uint64(6), entries[2].Height)
}

func TestReplaySkipsBelowGCFloor(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Entry{Height: 3, Round: 0, Phase: PhaseCommit, Payload: []byte("old")}))
	require.NoError(t, l.Append(Entry{Height: 4, Round: 0, Phase: PhasePropose, Payload: []byte("new")}))

	_, entries, err := l.Replay(3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(4), entries[0].Height)
}

func TestGarbageCollectRemovesCommittedHeights(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Entry{Height: 1, Round: 0, Phase: PhaseCommit, Payload: []byte("a")}))
	require.NoError(t, l.Append(Entry{Height: 2, Round: 0, Phase: PhaseCommit, Payload: []byte("b")}))
	require.NoError(t, l.Append(Entry{Height: 3, Round: 0, Phase: PhasePropose, Payload: []byte("c")}))

	require.NoError(t, l.GarbageCollect(2))

	_, ok, err := l.Get(1, PhaseCommit, 0)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = l.Get(2, PhaseCommit, 0)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = l.Get(3, PhasePropose, 0)
	require.NoError(t, err)
	require.True(t, ok)
}
