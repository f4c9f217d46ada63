package mempool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/internal/testutils"
	"github.com/luxfi/axon/types"
)

type fakeState struct {
	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
}

func newFakeState() *fakeState {
	return &fakeState{nonces: map[common.Address]uint64{}, balances: map[common.Address]*big.Int{}}
}

func (s *fakeState) NonceAt(addr common.Address) uint64 { return s.nonces[addr] }
func (s *fakeState) BalanceAt(addr common.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func newTx(nonce uint64, maxFee, tip int64, gasLimit uint64) *types.Transaction {
	return &types.Transaction{
		Type:                 types.DynamicFeeTxType,
		Nonce:                nonce,
		MaxPriorityFeePerGas: big.NewInt(tip),
		MaxFeePerGas:         big.NewInt(maxFee),
		GasLimit:             gasLimit,
		Action:               types.TxAction{To: common.HexToAddress("0xdead")},
		Value:                big.NewInt(0),
		ChainID:              big.NewInt(1),
	}
}

func TestInsertRejectsWrongChainID(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})
	key := testutils.NewKey(t)
	tx := newTx(0, 10, 1, 21000)
	tx.ChainID = big.NewInt(2)
	stx := key.SignTx(t, tx)
	state.balances[stx.Sender] = big.NewInt(1 << 30)

	err := p.Insert(stx)
	require.ErrorIs(t, err, ErrWrongChainID)
}

func TestInsertRejectsInsufficientBalance(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})
	key := testutils.NewKey(t)
	stx := key.SignTx(t, newTx(0, 1000, 1, 21000))
	state.balances[stx.Sender] = big.NewInt(10)

	err := p.Insert(stx)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestInsertAcceptsAndReplacesByFee(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})
	key := testutils.NewKey(t)
	stx := key.SignTx(t, newTx(0, 10, 1, 21000))
	state.balances[stx.Sender] = big.NewInt(1 << 30)

	require.NoError(t, p.Insert(stx))
	require.Equal(t, 1, p.GetTxCountByAddress(stx.Sender))

	lowReplacement := key.SignTx(t, newTx(0, 10, 2, 21000))
	err := p.Insert(lowReplacement)
	require.ErrorIs(t, err, ErrReplacementUnderpriced)

	higher := key.SignTx(t, newTx(0, 20, 2, 21000))
	require.NoError(t, p.Insert(higher))
	require.Equal(t, 1, p.GetTxCountByAddress(stx.Sender))

	found, missing := p.GetFullTxs([]common.Hash{higher.Hash()})
	require.Len(t, found, 1)
	require.Empty(t, missing)
}

func TestEnsureOrderTxsRequiresContiguousNonces(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})
	key := testutils.NewKey(t)
	stx0 := key.SignTx(t, newTx(0, 10, 1, 21000))
	stx1 := key.SignTx(t, newTx(1, 10, 1, 21000))
	state.balances[stx0.Sender] = big.NewInt(1 << 30)

	require.NoError(t, p.Insert(stx0))
	require.NoError(t, p.Insert(stx1))

	require.True(t, p.EnsureOrderTxs(stx0.Sender, []common.Hash{stx0.Hash(), stx1.Hash()}))
	require.False(t, p.EnsureOrderTxs(stx0.Sender, []common.Hash{stx1.Hash(), stx0.Hash()}))
}

func TestPackagePrioritizesHigherTipAndRespectsGasLimit(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})

	keyA := testutils.NewKey(t)
	keyB := testutils.NewKey(t)
	stxA := keyA.SignTx(t, newTx(0, 100, 50, 21000))
	stxB := keyB.SignTx(t, newTx(0, 100, 5, 21000))
	state.balances[stxA.Sender] = big.NewInt(1 << 30)
	state.balances[stxB.Sender] = big.NewInt(1 << 30)

	require.NoError(t, p.Insert(stxA))
	require.NoError(t, p.Insert(stxB))

	selected := p.Package(21000, big.NewInt(1), 0)
	require.Len(t, selected, 1)
	require.Equal(t, stxA.Sender, selected[0].Sender)
}

func TestFlushRemovesPackagedTransactions(t *testing.T) {
	state := newFakeState()
	p := New(state, Config{ChainID: big.NewInt(1), MaxGasPerTx: 100000})
	key := testutils.NewKey(t)
	stx := key.SignTx(t, newTx(0, 10, 1, 21000))
	state.balances[stx.Sender] = big.NewInt(1 << 30)
	require.NoError(t, p.Insert(stx))

	p.Flush([]common.Hash{stx.Hash()})
	require.Equal(t, 0, p.GetTxCountByAddress(stx.Sender))
	found, missing := p.GetFullTxs([]common.Hash{stx.Hash()})
	require.Empty(t, found)
	require.Len(t, missing, 1)
}
