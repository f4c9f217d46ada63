package crosschain

import (
	"context"
	"errors"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// ErrReorgBeyondWindow is returned when the feed's tip no longer
// descends from the last header Monitor confirmed, and the divergence
// is deeper than NonForkGap — a reorg this monitor cannot safely unwind
// with a single Rollback call.
var ErrReorgBeyondWindow = errors.New("crosschain: parent-chain reorg exceeds the non-fork confirmation gap")

// NonForkGap is how many blocks behind the feed's reported tip Monitor
// trails before treating a height as settled, mirroring monitor.rs's
// NON_FORK_BLOCK_GAP: CKB headers within this many blocks of the tip are
// still liable to be reorged out, so Monitor never forwards them to the
// light-client sink.
const NonForkGap = 24

// PollInterval is how often Monitor checks the feed for a new tip,
// mirroring monitor.rs's CKB_BLOCK_INTERVAL.
const PollInterval = 10 * time.Second

// Monitor polls a HeaderFeed and keeps a LightClientSink's mirrored
// window of parent-chain headers current, staying NonForkGap blocks
// behind the feed's reported tip. Grounded on
// original_source/core/cross-client/src/monitor.rs's CrossChainMonitor:
// update_tip_number (poll + track the tip) and fetch_block (pull every
// block from the last handled height through the non-fork-safe tip,
// forward it, advance).
type Monitor struct {
	feed HeaderFeed
	sink LightClientSink
	log  log.Logger

	handledHeight uint64
	lastHash      common.Hash
}

// NewMonitor starts tracking from initHeight (exclusive): the first
// header Monitor ever forwards is initHeight+1. A node seeds initHeight
// from the height its light-client mirror was last confirmed at
// (genesis's configured starting height, or whatever height a previous
// run's sink last accepted).
func NewMonitor(feed HeaderFeed, sink LightClientSink, initHeight uint64, initHash common.Hash) *Monitor {
	return &Monitor{feed: feed, sink: sink, log: log.Root(), handledHeight: initHeight, lastHash: initHash}
}

// SetLogger overrides the default root logger, the way a node wires a
// subsystem-scoped logger into every other long-running component.
func (m *Monitor) SetLogger(l log.Logger) {
	m.log = l
}

// Run polls on PollInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.log.Error("crosschain monitor poll failed", "err", err)
				return err
			}
		}
	}
}

// Poll runs one update_tip_number + fetch_block cycle: it fetches every
// header from the last handled height through tip-NonForkGap, verifies
// each extends the previous one's hash, and forwards the run to the
// sink in one Update call.
func (m *Monitor) Poll(ctx context.Context) error {
	tip, err := m.feed.TipHeight(ctx)
	if err != nil {
		return err
	}
	if tip <= NonForkGap {
		return nil // parent chain hasn't produced enough blocks to settle any yet
	}
	safeTip := tip - NonForkGap
	if m.handledHeight >= safeTip {
		return nil
	}

	var run []*types.Header
	for h := m.handledHeight + 1; h <= safeTip; h++ {
		header, err := m.feed.HeaderByNumber(ctx, h)
		if err != nil {
			return err
		}
		if m.lastHash != (common.Hash{}) && header.PrevHash != m.lastHash {
			return ErrReorgBeyondWindow
		}
		run = append(run, header)
		m.lastHash = header.Hash()
	}
	if len(run) == 0 {
		return nil
	}

	if err := m.sink.Update(ctx, run); err != nil {
		return err
	}
	m.log.Debug("forwarded parent-chain headers", "from", run[0].Number, "to", run[len(run)-1].Number)
	m.handledHeight = safeTip
	return nil
}
