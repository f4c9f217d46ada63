package syscontract

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
)

func newTestStateDB(t *testing.T) *execution.StateDB {
	t.Helper()
	store := kv.NewMemory()
	accountStore := trie.NewStore(store.CF(kv.CFEVMState))
	codeDB := store.CF(kv.CFEVMCode)
	return execution.New(common.Hash{}, accountStore, accountStore, codeDB)
}

func mintInput(target common.Address, amount *big.Int) []byte {
	input := make([]byte, 53)
	input[0] = opMint
	copy(input[1:21], target.Bytes())
	amtBytes := amount.Bytes()
	copy(input[53-len(amtBytes):53], amtBytes)
	return input
}

func burnInput(amount *big.Int) []byte {
	input := make([]byte, 53)
	input[0] = opBurn
	amtBytes := amount.Bytes()
	copy(input[53-len(amtBytes):53], amtBytes)
	return input
}

func TestNativeTokenMintRequiresAuthorizedMinter(t *testing.T) {
	state := newTestStateDB(t)
	nt := &NativeToken{Minters: map[common.Address]bool{}}
	caller := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")

	_, err := nt.Run(state, caller, mintInput(target, big.NewInt(100)))
	require.ErrorIs(t, err, ErrNotAuthorizedMinter)
}

func TestNativeTokenMintCreditsTarget(t *testing.T) {
	state := newTestStateDB(t)
	caller := common.HexToAddress("0x01")
	target := common.HexToAddress("0x02")
	nt := &NativeToken{Minters: map[common.Address]bool{caller: true}}

	_, err := nt.Run(state, caller, mintInput(target, big.NewInt(500)))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), state.GetBalance(target).ToBig())
}

func TestNativeTokenBurnRejectsInsufficientBalanceWithoutNonceBump(t *testing.T) {
	state := newTestStateDB(t)
	caller := common.HexToAddress("0x01")
	nt := &NativeToken{}

	_, err := nt.Run(state, caller, burnInput(big.NewInt(1)))
	require.ErrorIs(t, err, ErrInsufficientBurnBalance)
	require.False(t, nt.BumpNonceOnRevert())
}

func TestNativeTokenBurnDebitsCaller(t *testing.T) {
	state := newTestStateDB(t)
	caller := common.HexToAddress("0x01")
	nt := &NativeToken{Minters: map[common.Address]bool{caller: true}}

	_, err := nt.Run(state, caller, mintInput(caller, big.NewInt(1000)))
	require.NoError(t, err)

	_, err = nt.Run(state, caller, burnInput(big.NewInt(400)))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600), state.GetBalance(caller).ToBig())
}
