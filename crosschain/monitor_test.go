package crosschain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

type fakeFeed struct {
	tip     uint64
	headers map[uint64]*types.Header
}

func (f *fakeFeed) TipHeight(context.Context) (uint64, error) { return f.tip, nil }

func (f *fakeFeed) HeaderByNumber(_ context.Context, number uint64) (*types.Header, error) {
	return f.headers[number], nil
}

func buildFeedChain(n uint64) *fakeFeed {
	feed := &fakeFeed{tip: n, headers: make(map[uint64]*types.Header)}
	var prev common.Hash
	for h := uint64(1); h <= n; h++ {
		header := &types.Header{Number: h, PrevHash: prev}
		feed.headers[h] = header
		prev = header.Hash()
	}
	return feed
}

type fakeSink struct {
	updated    [][]*types.Header
	rolledBack []common.Hash
}

func (s *fakeSink) Update(_ context.Context, headers []*types.Header) error {
	s.updated = append(s.updated, headers)
	return nil
}

func (s *fakeSink) Rollback(_ context.Context, toHash common.Hash) error {
	s.rolledBack = append(s.rolledBack, toHash)
	return nil
}

func TestMonitorForwardsOnlyPastNonForkGap(t *testing.T) {
	feed := buildFeedChain(NonForkGap + 5)
	sink := &fakeSink{}
	m := NewMonitor(feed, sink, 0, common.Hash{})

	require.NoError(t, m.Poll(context.Background()))
	require.Len(t, sink.updated, 1)
	require.Len(t, sink.updated[0], 5)
	require.Equal(t, uint64(1), sink.updated[0][0].Number)
	require.Equal(t, uint64(5), sink.updated[0][len(sink.updated[0])-1].Number)
}

func TestMonitorIsNoOpBeforeNonForkGapElapses(t *testing.T) {
	feed := buildFeedChain(NonForkGap - 1)
	sink := &fakeSink{}
	m := NewMonitor(feed, sink, 0, common.Hash{})

	require.NoError(t, m.Poll(context.Background()))
	require.Empty(t, sink.updated)
}

func TestMonitorDetectsReorgBeyondWindow(t *testing.T) {
	feed := buildFeedChain(NonForkGap + 5)
	sink := &fakeSink{}
	m := NewMonitor(feed, sink, 0, common.Hash{})
	require.NoError(t, m.Poll(context.Background()))
	require.Equal(t, uint64(5), m.handledHeight)

	// simulate a parent-chain reorg: height 6 (the next height Monitor
	// will try to confirm) no longer descends from the hash Monitor
	// already accepted for height 5.
	feed.headers[6] = &types.Header{Number: 6, PrevHash: common.Hash{}, ExtraData: []byte("fork")}
	feed.tip = NonForkGap + 6

	require.ErrorIs(t, m.Poll(context.Background()), ErrReorgBeyondWindow)
}
