package types

import (
	"bytes"
	"sort"

	"github.com/luxfi/axon/common"
)

// ValidatorExtend is one member of an epoch's validator set: its BLS key
// (used for QC aggregation), its secp256k1 key (used to recover
// plaintext-signed gossip messages), its derived address, and its two
// independent weights — propose_weight drives leader selection,
// vote_weight drives quorum counting.
type ValidatorExtend struct {
	BLSPubKey     []byte
	Secp256k1Key  []byte
	Address       common.Address
	ProposeWeight uint32
	VoteWeight    uint32
}

// ValidatorList is an epoch's verifier_list, always handled in canonical
// order: ascending by BLSPubKey. A Proof.Bitmap indexes this order, so
// callers must sort with SortCanonical before deriving a bitmap index.
type ValidatorList []*ValidatorExtend

// SortCanonical sorts the list ascending by BLSPubKey in place and
// returns it, the ordering spec.md §3 fixes for bitmap indexing.
func (l ValidatorList) SortCanonical() ValidatorList {
	sort.Slice(l, func(i, j int) bool {
		return bytes.Compare(l[i].BLSPubKey, l[j].BLSPubKey) < 0
	})
	return l
}

// TotalVoteWeight sums every validator's vote_weight.
func (l ValidatorList) TotalVoteWeight() uint64 {
	var total uint64
	for _, v := range l {
		total += uint64(v.VoteWeight)
	}
	return total
}

// IndexOf returns the canonical-order index of the validator with the
// given address, or -1 if absent. The list must already be sorted via
// SortCanonical.
func (l ValidatorList) IndexOf(addr common.Address) int {
	for i, v := range l {
		if v.Address == addr {
			return i
		}
	}
	return -1
}
