package consensus

import (
	"errors"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/internal/merkleutil"
	"github.com/luxfi/axon/types"
)

// Errors named after spec.md §7's consensus kind list, so callers can
// branch with errors.Is instead of parsing strings.
var (
	ErrInvalidProposal  = errors.New("consensus: invalid proposal")
	ErrNotLeader        = errors.New("consensus: proposer is not the deterministic leader")
	ErrUnknownAncestor  = errors.New("consensus: unknown parent block")
	ErrRootMismatch     = errors.New("consensus: computed root does not match header")
	ErrSignedTxsMismatch = errors.New("consensus: signed_txs_hash does not match transaction set")
)

// VerifyAncestry checks the structural link between a candidate block
// and its parent: PrevHash and Number must be contiguous.
func VerifyAncestry(parent, candidate *types.Header) error {
	if candidate.Number != parent.Number+1 {
		return ErrUnknownAncestor
	}
	if candidate.PrevHash != parent.Hash() {
		return ErrUnknownAncestor
	}
	return nil
}

// VerifyAuthority checks that the candidate's proposer is the
// deterministic leader for (number, round) under the parent epoch's
// validator set (spec.md §4.5.5 step 2).
func VerifyAuthority(parentValidators types.ValidatorList, candidate *types.Header) error {
	if !IsLeader(parentValidators, candidate.Number, candidate.Round, candidate.Proposer) {
		return ErrNotLeader
	}
	return nil
}

// VerifyIntegrity checks the candidate's SignedTxsHash against the
// actual transaction set, and its TransactionsRoot against the MPT root
// of those transactions' encodings — spec.md §4.5.5 step 1.
func VerifyIntegrity(candidate *types.Header, txs []*types.SignedTransaction) error {
	gotSignedHash, err := merkleutil.SignedTxsHash(txs)
	if err != nil {
		return err
	}
	if gotSignedHash != candidate.SignedTxsHash {
		return ErrSignedTxsMismatch
	}

	encoded := make([][]byte, len(txs))
	for i, tx := range txs {
		enc, err := tx.UnverifiedTransaction.Encode()
		if err != nil {
			return err
		}
		encoded[i] = enc
	}
	gotTxRoot, err := merkleutil.MerkleRoot(encoded)
	if err != nil {
		return err
	}
	if gotTxRoot != candidate.TransactionsRoot {
		return ErrRootMismatch
	}
	return nil
}

// VerifyProofAgainstParent checks step 3 of spec.md §4.5.5: the
// candidate's embedded commit proof for its parent must aggregate-verify
// against the parent epoch's validator set and reach ⅔ weight.
func VerifyProofAgainstParent(parentValidators types.ValidatorList, candidate *types.Header) error {
	if candidate.Number == 1 {
		return nil // genesis's child carries a GenesisProof, nothing to verify
	}
	return VerifyProof(parentValidators, candidate.Proof)
}

// ExecutionResult is what VerifyExecution needs to confirm against a
// candidate header: the executor's computed post-state plus aggregate
// receipt facts.
type ExecutionResult struct {
	StateRoot common.Hash
	GasUsed   uint64
	LogBloom  types.Bloom
	Receipts  []*types.Receipt
}

// VerifyExecution runs the executor over txs and checks every produced
// fact against the candidate header — spec.md §4.5.5 step 4. It returns
// the TxResults so the caller (consensus engine or sync) can reuse them
// for committing the block without re-executing.
func VerifyExecution(exec *execution.Executor, parentStateRoot common.Hash, execCtx execution.BlockExecContext, candidate *types.Header, txs []*types.SignedTransaction, validators types.ValidatorList) ([]execution.TxResult, error) {
	root, results, err := exec.Execute(parentStateRoot, execCtx, txs, validators)
	if err != nil {
		return nil, err
	}
	if root != candidate.StateRoot {
		return nil, ErrRootMismatch
	}

	var gasUsed uint64
	receiptEncs := make([][]byte, len(results))
	var logs []*types.Log
	for i, r := range results {
		gasUsed = r.Receipt.UsedGas
		enc, err := r.Receipt.Encode()
		if err != nil {
			return nil, err
		}
		receiptEncs[i] = enc
		logs = append(logs, r.Receipt.Logs...)
	}
	if gasUsed != candidate.GasUsed {
		return nil, ErrRootMismatch
	}

	receiptsRoot, err := merkleutil.MerkleRoot(receiptEncs)
	if err != nil {
		return nil, err
	}
	if receiptsRoot != candidate.ReceiptsRoot {
		return nil, ErrRootMismatch
	}

	if types.CreateBloom(logs) != candidate.LogBloom {
		return nil, ErrRootMismatch
	}

	return results, nil
}

// VerifyBlock runs the full spec.md §4.5.5 pipeline for a candidate
// block against its already-verified parent header and the parent
// epoch's validator set. It does not perform step 5 (the epoch hook),
// which the caller checks separately once it knows whether candidate
// starts a new epoch.
func VerifyBlock(exec *execution.Executor, parent *types.Header, candidate *types.Header, txs []*types.SignedTransaction, parentValidators types.ValidatorList, execCtx execution.BlockExecContext) ([]execution.TxResult, error) {
	if err := VerifyAncestry(parent, candidate); err != nil {
		return nil, err
	}
	if err := VerifyAuthority(parentValidators, candidate); err != nil {
		return nil, err
	}
	if err := VerifyIntegrity(candidate, txs); err != nil {
		return nil, err
	}
	if err := VerifyProofAgainstParent(parentValidators, candidate); err != nil {
		return nil, err
	}
	return VerifyExecution(exec, parent.StateRoot, execCtx, candidate, txs, parentValidators)
}
