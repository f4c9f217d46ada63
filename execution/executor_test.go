package execution

import (
	"math/big"
	"testing"

	gethparams "github.com/luxfi/geth/params"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

func newTestExecutor(t *testing.T) (*Executor, *trie.Store) {
	t.Helper()
	store := kv.NewMemory()
	accountStore := trie.NewStore(store.CF(kv.CFEVMState))
	codeDB := store.CF(kv.CFEVMCode)
	return NewExecutor(accountStore, accountStore, codeDB, &gethparams.ChainConfig{}, nil), accountStore
}

func creditAccount(t *testing.T, accountStore *trie.Store, addr common.Address, balance *big.Int) common.Hash {
	t.Helper()
	tr := trie.New(accountStore, common.Hash{})
	acc := types.NewEmptyAccount()
	acc.Balance = balance
	enc, err := acc.Encode()
	require.NoError(t, err)
	require.NoError(t, tr.Insert(accountKey(addr), enc))
	root, err := tr.Commit()
	require.NoError(t, err)
	return root
}

func signedTransfer(t *testing.T, from common.Address, to common.Address, nonce uint64, value *big.Int) *types.SignedTransaction {
	t.Helper()
	tx := &types.Transaction{
		Type:                 types.DynamicFeeTxType,
		Nonce:                nonce,
		MaxPriorityFeePerGas: big.NewInt(0),
		MaxFeePerGas:         big.NewInt(1),
		GasLimit:             21000,
		Action:               types.TxAction{To: to},
		Value:                value,
		ChainID:              big.NewInt(1),
	}
	return &types.SignedTransaction{
		UnverifiedTransaction: types.UnverifiedTransaction{Transaction: tx},
		Sender:                from,
	}
}

func TestExecutorTransferMovesBalance(t *testing.T) {
	exec, accountStore := newTestExecutor(t)
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	root := creditAccount(t, accountStore, from, big.NewInt(1_000_000))

	stx := signedTransfer(t, from, to, 0, big.NewInt(100))
	execCtx := BlockExecContext{
		Number:   1,
		Proposer: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		BaseFee:  big.NewInt(1),
		GasLimit: 10_000_000,
	}

	newRoot, results, err := exec.Execute(root, execCtx, []*types.SignedTransaction{stx}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].VMError)
	require.Equal(t, uint64(21000), results[0].EffGasUsed)

	state := New(newRoot, accountStore, accountStore, exec.codeDB)
	require.Equal(t, big.NewInt(100), state.GetBalance(to).ToBig())
}

func TestExecutorRejectsNonceMismatch(t *testing.T) {
	exec, accountStore := newTestExecutor(t)
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	root := creditAccount(t, accountStore, from, big.NewInt(1_000_000))

	stx := signedTransfer(t, from, to, 5, big.NewInt(1))
	execCtx := BlockExecContext{BaseFee: big.NewInt(1), GasLimit: 10_000_000}

	_, _, err := exec.Execute(root, execCtx, []*types.SignedTransaction{stx}, nil)
	require.ErrorIs(t, err, ErrNonceMismatch)
}
