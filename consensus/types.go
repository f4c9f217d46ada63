// Package consensus implements the Overlord-style BFT state machine
// (spec.md §4.5): weighted round-robin leader election, the
// Propose/Prevote/Precommit/Commit round cycle with a Choke liveness
// escape, vote/QC aggregation over BLS12-381, write-ahead-log-backed
// crash recovery, and the sync subsystem that pulls committed history
// from peers. Grounded on the engine shape described by
// original_source/core/consensus/src/{status,types}.rs (CurrentStatus,
// the RPC pull-blocks/pull-txs request/response pair) and the teacher's
// own `consensus/dummy` package for header-verification idiom and error
// naming conventions, since no Go BFT engine exists in the example
// corpus to imitate line-for-line.
package consensus

import (
	"math/big"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// Phase names the four per-round BFT phases the engine cycles through;
// it reuses storage/wal.Phase's numbering so a WAL entry's Phase byte is
// directly this type.
type Phase byte

const (
	PhasePropose Phase = iota
	PhasePrevote
	PhasePrecommit
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhasePropose:
		return "propose"
	case PhasePrevote:
		return "prevote"
	case PhasePrecommit:
		return "precommit"
	case PhaseCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Status is the engine's view of chain head state, the fields a new
// round's Propose phase and every verification step need — grounded on
// original_source's CurrentStatus (prev_hash/state_root/receipts_root/
// log_bloom/gas_used/gas_limit/base_fee_per_gas/proof).
type Status struct {
	Height        uint64
	PrevHash      common.Hash
	StateRoot     common.Hash
	ReceiptsRoot  common.Hash
	LogBloom      types.Bloom
	GasUsed       uint64
	GasLimit      uint64
	BaseFeePerGas *big.Int
	Proof         *types.Proof
	Validators    types.ValidatorList
}

// SignedProposal is a leader's broadcast proposal for (height, round).
type SignedProposal struct {
	Block     *types.Block
	Round     uint64
	Signature []byte // carried on the wire; the engine leaves it empty when proposing and does not check it on receipt
}

// SignedVote is a validator's Prevote or Precommit, individually signed
// with BLS so many can later be aggregated into a Proof.
type SignedVote struct {
	Vote      types.Vote
	Voter     common.Address
	Signature []byte // compressed BLS12-381 G2 signature
}

// SignedChoke is a validator's vote to abandon (height, round) and move
// to the next round, broadcast when the round's prevote or precommit
// timer fires without ⅔ agreement (spec.md §4.5.1 "Choke / liveness
// escape").
type SignedChoke struct {
	Height    uint64
	Round     uint64
	Voter     common.Address
	Signature []byte
}

// NilBlockHash is the sentinel block_hash a Prevote/Precommit carries
// when a validator has no candidate to vote for (timeout with no ⅔
// agreement on any real hash).
var NilBlockHash = common.Hash{}
