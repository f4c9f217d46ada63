package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

func testValidators(n int) types.ValidatorList {
	out := make(types.ValidatorList, n)
	for i := 0; i < n; i++ {
		addr := common.Address{}
		addr[19] = byte(i + 1)
		out[i] = &types.ValidatorExtend{
			BLSPubKey:     []byte{byte(n - i)}, // descending so SortCanonical visibly reorders
			Address:       addr,
			ProposeWeight: 1,
			VoteWeight:    1,
		}
	}
	return out.SortCanonical()
}

func TestLeaderIsDeterministicAcrossCalls(t *testing.T) {
	validators := testValidators(4)
	a := Leader(validators, 10, 0)
	b := Leader(validators, 10, 0)
	require.Equal(t, a, b)
}

func TestLeaderVariesByRound(t *testing.T) {
	validators := testValidators(5)
	seen := make(map[common.Address]bool)
	for round := uint64(0); round < 20; round++ {
		seen[Leader(validators, 1, round)] = true
	}
	require.Greater(t, len(seen), 1, "weighted round-robin over 20 rounds should surface more than one leader")
}

func TestLeaderRespectsProposeWeight(t *testing.T) {
	heavy := common.Address{1}
	light := common.Address{2}
	validators := types.ValidatorList{
		{BLSPubKey: []byte{1}, Address: heavy, ProposeWeight: 99, VoteWeight: 1},
		{BLSPubKey: []byte{2}, Address: light, ProposeWeight: 1, VoteWeight: 1},
	}.SortCanonical()

	heavyWins := 0
	for round := uint64(0); round < 200; round++ {
		if Leader(validators, 1, round) == heavy {
			heavyWins++
		}
	}
	require.Greater(t, heavyWins, 150, "a 99:1 weight split should favor the heavy validator in most rounds")
}

func TestIsLeaderMatchesLeader(t *testing.T) {
	validators := testValidators(3)
	leader := Leader(validators, 7, 2)
	require.True(t, IsLeader(validators, 7, 2, leader))
	require.False(t, IsLeader(validators, 7, 2, common.Address{0xff}))
}

func TestLeaderEmptyValidatorsReturnsZeroAddress(t *testing.T) {
	require.Equal(t, common.Address{}, Leader(nil, 1, 0))
}
