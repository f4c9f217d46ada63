package execution

import (
	"errors"
	"math/big"

	gethparams "github.com/luxfi/geth/params"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

// ErrInsufficientBalance is returned when a transaction's sender cannot
// cover value + gas*price.
var ErrInsufficientBalance = errors.New("execution: insufficient balance for transfer")

// ErrNonceMismatch is returned when a transaction's nonce does not equal
// the sender's current account nonce.
var ErrNonceMismatch = errors.New("execution: nonce mismatch")

// BlockExecContext carries the per-block values the EVM's BlockContext
// needs that are not derivable from a single transaction: block number,
// time, the block's proposer (coinbase for priority-fee credit) and base
// fee, mirroring spec.md §5's exec_ctx argument.
type BlockExecContext struct {
	Number     uint64
	Time       uint64
	Proposer   common.Address
	BaseFee    *big.Int
	GasLimit   uint64
	Difficulty *big.Int
}

// FeeAllocate distributes one transaction's collected fee among the
// active validator set; spec.md §5 leaves the split policy pluggable.
// total is priority_fee_per_gas * gas_used.
type FeeAllocate func(validators types.ValidatorList, total *big.Int) map[common.Address]*big.Int

// ProportionalFeeAllocate is the default FeeAllocate: each validator's
// share is proportional to its vote weight within the active set,
// mirroring how consensus already weighs votes for quorum.
func ProportionalFeeAllocate(validators types.ValidatorList, total *big.Int) map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(validators))
	totalWeight := validators.TotalVoteWeight()
	if totalWeight == 0 || total.Sign() == 0 {
		return out
	}
	distributed := new(big.Int)
	for i, v := range validators {
		share := new(big.Int).Mul(total, big.NewInt(int64(v.VoteWeight)))
		share.Div(share, big.NewInt(int64(totalWeight)))
		if i == len(validators)-1 {
			// the last validator absorbs the integer-division remainder
			// so the sum of shares always equals total exactly.
			share = new(big.Int).Sub(total, distributed)
		}
		distributed.Add(distributed, share)
		out[v.Address] = share
	}
	return out
}

// StatefulPrecompile is a chain-specific precompile (package precompile):
// parent-chain header/cell lookup, Merkle-proof verification, sandbox-VM
// invocation, epoch-metadata lookup. It is dispatched only for
// transactions sent directly to its address; this fork of the EVM
// disables the interpreter-level stateful-precompile hook (see
// core/state_processor.go's "StatefulPrecompileHook disabled" note), so
// a contract calling one of these addresses via CALL falls through to
// the standard "no code here" behavior rather than reaching it — a
// known limitation recorded in DESIGN.md.
type StatefulPrecompile interface {
	RequiredGas(input []byte) uint64
	Run(state *StateDB, caller common.Address, input []byte) (ret []byte, err error)
}

// NonceRevertPolicy is an optional capability a StatefulPrecompile can
// implement to override the default EVM nonce-bump-on-revert behavior.
// The native-token burn system contract implements this: a burn that
// reverts (insufficient balance) must not consume a nonce, since the
// transaction never had an observable effect for replay-protection
// purposes, unlike a normal reverted EVM call which still burns gas and
// a nonce slot.
type NonceRevertPolicy interface {
	BumpNonceOnRevert() bool
}

// Executor applies transactions against a parent state root and produces
// the post-state root plus one receipt per transaction (spec.md §5
// "execute").
type Executor struct {
	accountStore *trie.Store
	storageStore *trie.Store
	codeDB       kv.Database
	chainConfig  *gethparams.ChainConfig
	precompiles  map[common.Address]StatefulPrecompile
	feeAllocate  FeeAllocate
}

// NewExecutor builds an executor over the given trie stores and code
// column family, with chain-specific precompiles registered by the
// caller (see package precompile's Registry).
func NewExecutor(accountStore, storageStore *trie.Store, codeDB kv.Database, chainConfig *gethparams.ChainConfig, precompiles map[common.Address]StatefulPrecompile) *Executor {
	return &Executor{
		accountStore: accountStore,
		storageStore: storageStore,
		codeDB:       codeDB,
		chainConfig:  chainConfig,
		precompiles:  precompiles,
		feeAllocate:  ProportionalFeeAllocate,
	}
}

// SetFeeAllocate overrides the default proportional fee split.
func (e *Executor) SetFeeAllocate(f FeeAllocate) { e.feeAllocate = f }

// TxResult is one transaction's outcome plus the per-validator fee split
// the caller folds into its own bookkeeping (e.g. the native-token
// system contract's balance updates).
type TxResult struct {
	Receipt    *types.Receipt
	FeeSplit   map[common.Address]*big.Int
	EffGasUsed uint64
	VMError    error
}

// Execute applies every transaction in txs against the state rooted at
// parentStateRoot, in order, and returns the post-execution root plus one
// TxResult per transaction. A transaction that reverts still consumes gas
// and produces a receipt; only an admission-level failure (bad nonce,
// insufficient balance) aborts the whole batch, since the mempool is
// expected to have already screened those out before packaging a block.
func (e *Executor) Execute(parentStateRoot common.Hash, execCtx BlockExecContext, txs []*types.SignedTransaction, validators types.ValidatorList) (common.Hash, []TxResult, error) {
	state := New(parentStateRoot, e.accountStore, e.storageStore, e.codeDB)
	results := make([]TxResult, 0, len(txs))
	var cumulativeGas uint64

	for i, stx := range txs {
		state.SetTxContext(stx.Hash(), i)
		result, err := e.applyTransaction(state, execCtx, stx)
		if err != nil {
			return common.Hash{}, nil, err
		}
		cumulativeGas += result.EffGasUsed
		result.Receipt.UsedGas = cumulativeGas
		if len(validators) > 0 && result.FeeSplit != nil {
			result.FeeSplit = e.feeAllocate(validators, totalFee(result.FeeSplit))
		}
		results = append(results, *result)
	}

	root, err := state.Commit()
	if err != nil {
		return common.Hash{}, nil, err
	}
	return root, results, nil
}

func totalFee(split map[common.Address]*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range split {
		total.Add(total, v)
	}
	return total
}

// effectiveGasPrice implements EIP-1559 fee-cap/tip clamping:
// min(max_fee_per_gas, base_fee + max_priority_fee_per_gas). A legacy
// transaction carries the same value duplicated into both fee fields (see
// types.Transaction's doc comment), so this formula covers all three
// encodings uniformly.
func effectiveGasPrice(tx *types.Transaction, baseFee *big.Int) *big.Int {
	tip := new(big.Int).Set(tx.MaxPriorityFeePerGas)
	capped := new(big.Int).Add(baseFee, tip)
	if capped.Cmp(tx.MaxFeePerGas) > 0 {
		capped = new(big.Int).Set(tx.MaxFeePerGas)
	}
	return capped
}

// applyTransaction performs the nonce/balance admission check, deducts
// gas cost up front, runs the action, and refunds leftover gas to the
// sender; the priority fee is reported in the result's FeeSplit and is
// not credited to any account.
func (e *Executor) applyTransaction(state *StateDB, execCtx BlockExecContext, stx *types.SignedTransaction) (*TxResult, error) {
	tx := stx.Transaction
	from := stx.Sender

	if state.GetNonce(from) != tx.Nonce {
		return nil, ErrNonceMismatch
	}

	gasPrice := effectiveGasPrice(tx, execCtx.BaseFee)
	upfrontCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.GasLimit))
	upfrontCost.Add(upfrontCost, tx.Value)
	if state.GetBalance(from).ToBig().Cmp(upfrontCost) < 0 {
		return nil, ErrInsufficientBalance
	}

	gasCostU256 := bigToU256(new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.GasLimit)))
	state.SubBalance(from, &gasCostU256, 0)

	gasUsed, vmErr := e.runAction(state, execCtx, from, tx)
	if gasUsed > tx.GasLimit {
		gasUsed = tx.GasLimit
	}

	if e.bumpNonceOnResult(tx, vmErr) {
		state.SetNonce(from, tx.Nonce+1, 0)
	} else {
		state.SetNonce(from, tx.Nonce, 0)
	}

	refundAmount := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.GasLimit-gasUsed))
	refundU256 := bigToU256(refundAmount)
	state.AddBalance(from, &refundU256, 0)

	priorityFeePerGas := new(big.Int).Sub(gasPrice, execCtx.BaseFee)
	if priorityFeePerGas.Sign() < 0 {
		priorityFeePerGas = new(big.Int)
	}
	tip := new(big.Int).Mul(priorityFeePerGas, new(big.Int).SetUint64(gasUsed))

	root, err := state.IntermediateRoot()
	if err != nil {
		return nil, err
	}

	receipt := &types.Receipt{
		TxHash:    stx.Hash(),
		StateRoot: root,
		Logs:      state.Logs(stx.Hash()),
	}
	if vmErr != nil {
		receipt.Logs = nil
	}
	receipt.LogsBloom = types.CreateBloom(receipt.Logs)

	return &TxResult{
		Receipt:    receipt,
		FeeSplit:   map[common.Address]*big.Int{execCtx.Proposer: tip},
		EffGasUsed: gasUsed,
		VMError:    vmErr,
	}, nil
}

// bumpNonceOnResult reports whether the sender's nonce should advance
// for this transaction's outcome. The default is true regardless of
// vmErr (a reverted EVM call still consumes a nonce), except when the
// call targeted a precompile implementing NonceRevertPolicy and the call
// failed: that precompile gets to veto the bump (see NonceRevertPolicy's
// doc comment for why the native-token burn contract needs this).
func (e *Executor) bumpNonceOnResult(tx *types.Transaction, vmErr error) bool {
	if vmErr == nil || tx.Action.IsCreate {
		return true
	}
	pc, ok := e.precompiles[tx.Action.To]
	if !ok {
		return true
	}
	policy, ok := pc.(NonceRevertPolicy)
	if !ok {
		return true
	}
	return policy.BumpNonceOnRevert()
}

// intrinsicTransferGas is the fixed cost of a value transfer with no
// call data and no code at the destination, matching Ethereum's G_transaction.
const intrinsicTransferGas = 21000

// runAction dispatches on the transaction's action: a plain value
// transfer (no code at the destination, no call data), a contract
// creation, or a call into an existing account. Calls and creations are
// delegated to runEVM, which drives github.com/luxfi/geth/core/vm.EVM
// over this transaction's StateDB.
func (e *Executor) runAction(state *StateDB, execCtx BlockExecContext, from common.Address, tx *types.Transaction) (uint64, error) {
	if !tx.Action.IsCreate {
		if pc, ok := e.precompiles[tx.Action.To]; ok {
			required := pc.RequiredGas(tx.Data)
			if required > tx.GasLimit {
				return tx.GasLimit, errors.New("execution: out of gas calling precompile")
			}
			valueU256 := bigToU256(tx.Value)
			state.SubBalance(from, &valueU256, 0)
			state.AddBalance(tx.Action.To, &valueU256, 0)
			_, err := pc.Run(state, from, tx.Data)
			return required, err
		}
		if len(tx.Data) == 0 && state.GetCodeSize(tx.Action.To) == 0 {
			valueU256 := bigToU256(tx.Value)
			state.SubBalance(from, &valueU256, 0)
			state.AddBalance(tx.Action.To, &valueU256, 0)
			return intrinsicTransferGas, nil
		}
	}
	return e.runEVM(state, execCtx, from, tx)
}
