// Package wal implements the consensus write-ahead log of spec.md
// §4.5.3: every outgoing vote/proposal and every block commit is
// journaled before it is broadcast/applied, keyed by
// (height, phase, round), so a crash can resume from the highest
// persisted entry instead of re-deriving state from scratch. Entries
// for already-committed heights are garbage-collected on each commit.
package wal

import (
	"encoding/binary"
	"sort"

	"github.com/luxfi/axon/storage/kv"
)

// Phase names the four BFT phases a WAL entry can record, the last of
// which (PhaseCommit) is the terminal "committed" marker.
type Phase byte

const (
	PhasePropose Phase = iota
	PhasePrevote
	PhasePrecommit
	PhaseCommit
)

// Entry is one journaled intent: its address plus the opaque,
// already-RLP-encoded payload (a SignedProposal, SignedVote, SignedChoke
// or committed Block+SignedTransactions, depending on Phase).
type Entry struct {
	Height  uint64
	Round   uint64
	Phase   Phase
	Payload []byte
}

// Log is the durable journal; it owns one column family of the shared
// KV store.
type Log struct {
	db kv.Database
}

// New opens a WAL over db (callers pass kv.Store.CF(kv.CFWAL)).
func New(db kv.Database) *Log { return &Log{db: db} }

func key(height uint64, phase Phase, round uint64) []byte {
	k := make([]byte, 8+1+8)
	binary.BigEndian.PutUint64(k[:8], height)
	k[8] = byte(phase)
	binary.BigEndian.PutUint64(k[9:], round)
	return k
}

// Append durably journals an intent before it is broadcast or applied.
// Per spec.md §5, this is one of the engine's suspension points.
func (l *Log) Append(e Entry) error {
	return l.db.Put(key(e.Height, e.Phase, e.Round), e.Payload)
}

// Get returns a previously-appended entry, or (nil, false) if absent.
func (l *Log) Get(height uint64, phase Phase, round uint64) ([]byte, bool, error) {
	has, err := l.db.Has(key(height, phase, round))
	if err != nil || !has {
		return nil, false, err
	}
	v, err := l.db.Get(key(height, phase, round))
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ResumePoint is the highest (height, round, phase) recorded in the log,
// the point a restarted engine resumes from.
type ResumePoint struct {
	Height uint64
	Round  uint64
	Phase  Phase
	Found  bool
}

// Replay scans every entry with height > gcFloor (entries at or below
// the last committed height are retained only until the next GC sweep,
// so a replay right after a crash may still see them; callers pass the
// chain store's latest committed height as gcFloor to skip them) and
// returns the resume point plus every entry above it, in (height, round,
// phase) order, for the engine to re-derive in-flight state from.
func (l *Log) Replay(gcFloor uint64) (ResumePoint, []Entry, error) {
	it := l.db.NewIterator(nil, nil)
	defer it.Release()

	var entries []Entry
	for it.Next() {
		k := it.Key()
		if len(k) != 17 {
			continue
		}
		height := binary.BigEndian.Uint64(k[:8])
		if height <= gcFloor {
			continue
		}
		phase := Phase(k[8])
		round := binary.BigEndian.Uint64(k[9:])
		payload := make([]byte, len(it.Value()))
		copy(payload, it.Value())
		entries = append(entries, Entry{Height: height, Round: round, Phase: phase, Payload: payload})
	}
	if err := it.Error(); err != nil {
		return ResumePoint{}, nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Height != entries[j].Height {
			return entries[i].Height < entries[j].Height
		}
		if entries[i].Round != entries[j].Round {
			return entries[i].Round < entries[j].Round
		}
		return entries[i].Phase < entries[j].Phase
	})

	if len(entries) == 0 {
		return ResumePoint{}, nil, nil
	}
	last := entries[len(entries)-1]
	return ResumePoint{Height: last.Height, Round: last.Round, Phase: last.Phase, Found: true}, entries, nil
}

// GarbageCollect deletes every entry at or below latestCommittedHeight,
// called once per commit (spec.md §4.5.3 "Retention").
func (l *Log) GarbageCollect(latestCommittedHeight uint64) error {
	it := l.db.NewIterator(nil, nil)
	defer it.Release()

	var toDelete [][]byte
	for it.Next() {
		k := it.Key()
		if len(k) != 17 {
			continue
		}
		if binary.BigEndian.Uint64(k[:8]) <= latestCommittedHeight {
			kc := make([]byte, len(k))
			copy(kc, k)
			toDelete = append(toDelete, kc)
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	batch := l.db.NewBatch()
	for _, k := range toDelete {
		if err := batch.Delete(k); err != nil {
			return err
		}
	}
	return batch.Write()
}
