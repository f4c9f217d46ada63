package consensus

import (
	"encoding/binary"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/types"
)

// Leader selects the deterministic leader for (height, round) by a
// weighted round-robin over validators, seeded by (height, round) per
// spec.md §4.5.1: "chosen deterministically by a weighted round-robin
// over the epoch's verifier_list seeded by (height, round)". Validators
// with a larger propose_weight occupy proportionally more of the
// selection space, and a Keccak-derived seed of (height, round) picks
// one point in it: a deterministic hash-seeded weighted draw, so the
// outcome needs no external randomness beacon.
func Leader(validators types.ValidatorList, height, round uint64) common.Address {
	var totalWeight uint64
	for _, v := range validators {
		totalWeight += uint64(v.ProposeWeight)
	}
	if totalWeight == 0 || len(validators) == 0 {
		return common.Address{}
	}

	seed := seedFor(height, round)
	target := seed % totalWeight

	var cumulative uint64
	for _, v := range validators {
		cumulative += uint64(v.ProposeWeight)
		if target < cumulative {
			return v.Address
		}
	}
	return validators[len(validators)-1].Address
}

// seedFor derives a pseudo-random uint64 from (height, round) by
// hashing their big-endian encoding — deterministic and
// network-agnostic, so every honest validator computes the same leader
// without exchanging anything.
func seedFor(height, round uint64) uint64 {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], height)
	binary.BigEndian.PutUint64(buf[8:], round)
	digest := crypto.Keccak256(buf)
	return binary.BigEndian.Uint64(digest[:8])
}

// IsLeader reports whether addr is the deterministic leader for
// (height, round) under validators.
func IsLeader(validators types.ValidatorList, height, round uint64, addr common.Address) bool {
	return Leader(validators, height, round) == addr
}
