package types

import (
	axonrlp "github.com/luxfi/axon/rlp"
)

// VersionRange is the [start, end] block-height range an epoch's
// metadata is in effect for; a fresh append must set
// new.Start == old.End + 1 (spec.md §4.3 metadata contract).
type VersionRange struct {
	Start uint64
	End   uint64
}

// ConsensusConfig carries the BFT timing/sizing knobs an epoch commits
// to, independent of the validator set itself.
type ConsensusConfig struct {
	// ProposeRatio, PrevoteRatio, PrecommitRatio and BrakeRatio are
	// tenths: timeout = interval * ratio / 10 (spec.md §4.5.1).
	ProposeRatio   uint64
	PrevoteRatio   uint64
	PrecommitRatio uint64
	BrakeRatio     uint64
}

// Metadata is one epoch's full parameter set: the validator set, gas
// policy, consensus timing and per-block transaction limits (spec.md
// §3).
type Metadata struct {
	Version         VersionRange
	Epoch           uint64
	GasLimit        uint64
	GasPrice        uint64
	Interval        uint64
	VerifierList    ValidatorList
	Consensus       ConsensusConfig
	TxNumLimit      uint64
	MaxTxSize       uint64
	ProposeCounter  []uint64
}

type rlpValidator struct {
	BLSPubKey     []byte
	Secp256k1Key  []byte
	Address       [20]byte
	ProposeWeight uint32
	VoteWeight    uint32
}

type rlpMetadata struct {
	Start, End                                 uint64
	Epoch, GasLimit, GasPrice, Interval         uint64
	VerifierList                                []rlpValidator
	ProposeRatio, PrevoteRatio, PrecommitRatio,
	BrakeRatio uint64
	TxNumLimit, MaxTxSize uint64
	ProposeCounter        []uint64
}

// Encode returns the canonical RLP encoding of the epoch metadata.
func (m *Metadata) Encode() ([]byte, error) {
	r := rlpMetadata{
		Start: m.Version.Start, End: m.Version.End,
		Epoch: m.Epoch, GasLimit: m.GasLimit, GasPrice: m.GasPrice, Interval: m.Interval,
		ProposeRatio: m.Consensus.ProposeRatio, PrevoteRatio: m.Consensus.PrevoteRatio,
		PrecommitRatio: m.Consensus.PrecommitRatio, BrakeRatio: m.Consensus.BrakeRatio,
		TxNumLimit: m.TxNumLimit, MaxTxSize: m.MaxTxSize, ProposeCounter: m.ProposeCounter,
	}
	r.VerifierList = make([]rlpValidator, len(m.VerifierList))
	for i, v := range m.VerifierList {
		r.VerifierList[i] = rlpValidator{v.BLSPubKey, v.Secp256k1Key, v.Address, v.ProposeWeight, v.VoteWeight}
	}
	return axonrlp.EncodeToBytes(&r)
}

// Decode parses the canonical RLP encoding produced by Encode.
func (m *Metadata) Decode(data []byte) error {
	var r rlpMetadata
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	m.Version = VersionRange{r.Start, r.End}
	m.Epoch, m.GasLimit, m.GasPrice, m.Interval = r.Epoch, r.GasLimit, r.GasPrice, r.Interval
	m.Consensus = ConsensusConfig{r.ProposeRatio, r.PrevoteRatio, r.PrecommitRatio, r.BrakeRatio}
	m.TxNumLimit, m.MaxTxSize, m.ProposeCounter = r.TxNumLimit, r.MaxTxSize, r.ProposeCounter
	m.VerifierList = make(ValidatorList, len(r.VerifierList))
	for i, v := range r.VerifierList {
		m.VerifierList[i] = &ValidatorExtend{v.BLSPubKey, v.Secp256k1Key, v.Address, v.ProposeWeight, v.VoteWeight}
	}
	return nil
}

// EpochSegment indexes which epoch governs a given block-height range,
// so a reader holding only a block number can find its metadata without
// scanning every epoch (spec.md §3).
type EpochSegment struct {
	// Boundaries holds, in ascending order, the first height of every
	// epoch after genesis; epoch i spans [Boundaries[i-1], Boundaries[i]).
	Boundaries []uint64
}

// EpochForHeight returns the epoch number in effect at height.
func (s *EpochSegment) EpochForHeight(height uint64) uint64 {
	epoch := uint64(0)
	for _, b := range s.Boundaries {
		if height < b {
			break
		}
		epoch++
	}
	return epoch
}

// Append records that a new epoch begins at firstHeight; callers must
// ensure firstHeight is strictly greater than every previously recorded
// boundary (append-only growth per spec.md §3 lifecycle rules).
func (s *EpochSegment) Append(firstHeight uint64) {
	s.Boundaries = append(s.Boundaries, firstHeight)
}
