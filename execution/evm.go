package execution

import (
	"math/big"

	"github.com/holiman/uint256"
	gethvm "github.com/luxfi/geth/core/vm"
	gethtracing "github.com/luxfi/geth/core/tracing"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

func canTransfer(db gethvm.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

func transfer(db gethvm.StateDB, sender, recipient common.Address, amount *uint256.Int) {
	db.SubBalance(sender, amount, gethtracing.BalanceChangeTransfer)
	db.AddBalance(recipient, amount, gethtracing.BalanceChangeTransfer)
}

// zeroBlockHash backs the EVM's BLOCKHASH opcode; sync/consensus never
// needs history older than the current block, and ancestor lookups
// beyond what's cheaply available are allowed to return the zero hash
// per the EVM spec's own fallback for unavailable history.
func zeroBlockHash(uint64) common.Hash { return common.Hash{} }

func blockContext(execCtx BlockExecContext) gethvm.BlockContext {
	return gethvm.BlockContext{
		CanTransfer: canTransfer,
		Transfer:    transfer,
		GetHash:     zeroBlockHash,
		Coinbase:    execCtx.Proposer,
		BlockNumber: new(big.Int).SetUint64(execCtx.Number),
		Time:        execCtx.Time,
		Difficulty:  execCtx.Difficulty,
		BaseFee:     execCtx.BaseFee,
		GasLimit:    execCtx.GasLimit,
	}
}

func txContext(from common.Address, gasPrice *big.Int) gethvm.TxContext {
	return gethvm.TxContext{
		Origin:   from,
		GasPrice: new(big.Int).Set(gasPrice),
	}
}

// runEVM drives github.com/luxfi/geth/core/vm.EVM over state for one
// call or contract-creation transaction.
func (e *Executor) runEVM(state *StateDB, execCtx BlockExecContext, from common.Address, tx *types.Transaction) (uint64, error) {
	gasPrice := effectiveGasPrice(tx, execCtx.BaseFee)
	evm := gethvm.NewEVM(blockContext(execCtx), txContext(from, gasPrice), state, e.chainConfig, gethvm.Config{})

	value := bigToU256(tx.Value)
	gas := tx.GasLimit - intrinsicTransferGas
	if gas > tx.GasLimit {
		gas = 0 // underflow guard: intrinsic cost exceeded the limit
	}

	var leftOverGas uint64
	var err error
	if tx.Action.IsCreate {
		_, _, leftOverGas, err = evm.Create(from, tx.Data, gas, &value)
	} else {
		_, leftOverGas, err = evm.Call(from, tx.Action.To, tx.Data, gas, &value)
	}
	return tx.GasLimit - leftOverGas, err
}
