package genesis

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	gethcrypto "github.com/luxfi/geth/crypto"
	gethparams "github.com/luxfi/geth/params"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/internal/merkleutil"
	"github.com/luxfi/axon/precompile"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/syscontract"
	"github.com/luxfi/axon/types"
)

// genesisGasLimit is the gas limit carried by the two bootstrap
// metadata-append transactions; both calls are cheap RLP-decode-and-put
// system-contract writes, not EVM execution, so a generous fixed value
// is all they need regardless of the spec's block gasLimit.
const genesisGasLimit = 200_000

// Built is the output of Build: the assembled genesis block plus the
// signed bootstrap transactions it commits to, so a caller can persist
// both the block and the transaction bodies via Seed.
type Built struct {
	Block    *types.Block
	Txs      []*types.SignedTransaction
	Receipts []*types.Receipt
}

// Build constructs the height-0 block described by spec: it credits
// every alloc balance, then runs the genesis key's two metadata-append
// calls (epoch 0 as configured by spec.Metadata, epoch 1 immediately
// following it) through the same execution.Executor/syscontract.Metadata
// path a running chain would use, so the resulting epoch history is
// indistinguishable from one built by ordinary block execution —
// grounded on devtools/genesis-generator/src/main.rs's two-call bootstrap,
// adapted from ABI-encoded calldata to this chain's plain-RLP system
// contract input.
func Build(spec *ChainSpec, accountStore, storageStore *trie.Store, codeDB kv.Database, metadataDB kv.Database, chainConfig *gethparams.ChainConfig) (*Built, error) {
	if len(spec.GenesisKey) == 0 {
		return nil, errors.New("genesis: chain spec has no genesisKey")
	}
	genesisPriv, err := gethcrypto.ToECDSA(spec.GenesisKey)
	if err != nil {
		return nil, err
	}

	allocRoot, err := creditAlloc(spec, accountStore, storageStore, codeDB)
	if err != nil {
		return nil, err
	}

	epoch0, epoch1 := deriveBootstrapEpochs(&spec.Metadata)

	tx0, err := buildMetadataAppendTx(genesisPriv, spec.ChainID, 0, epoch0)
	if err != nil {
		return nil, err
	}
	tx1, err := buildMetadataAppendTx(genesisPriv, spec.ChainID, 1, epoch1)
	if err != nil {
		return nil, err
	}
	txs := []*types.SignedTransaction{tx0, tx1}

	registry := precompile.NewRegistry()
	registry.Register("metadata", syscontract.MetadataAddress, syscontract.NewMetadata(metadataDB))
	exec := execution.NewExecutor(accountStore, storageStore, codeDB, chainConfig, registry.Map())

	execCtx := execution.BlockExecContext{
		Number:   0,
		Time:     spec.Timestamp,
		Proposer: pubkeyToAddress(genesisPriv),
		BaseFee:  spec.BaseFeePerGas,
		GasLimit: spec.GasLimit,
	}
	stateRoot, results, err := exec.Execute(allocRoot, execCtx, txs, nil)
	if err != nil {
		return nil, err
	}

	txHashes := make([]common.Hash, len(txs))
	for i, tx := range txs {
		txHashes[i] = tx.Hash()
	}
	txRoot, err := merkleutil.MerkleRoot(txHashes2Bytes(txHashes))
	if err != nil {
		return nil, err
	}
	signedHash, err := merkleutil.SignedTxsHash(txs)
	if err != nil {
		return nil, err
	}
	receiptRoot, err := receiptsRoot(results)
	if err != nil {
		return nil, err
	}

	var logs []*types.Log
	gasUsed := uint64(0)
	receipts := make([]*types.Receipt, len(results))
	for i, r := range results {
		logs = append(logs, r.Receipt.Logs...)
		gasUsed = r.Receipt.UsedGas
		receipts[i] = r.Receipt
	}

	header := &types.Header{
		Proposer:         execCtx.Proposer,
		StateRoot:        stateRoot,
		TransactionsRoot: txRoot,
		SignedTxsHash:    signedHash,
		ReceiptsRoot:     receiptRoot,
		LogBloom:         types.CreateBloom(logs),
		Timestamp:        spec.Timestamp,
		Number:           0,
		GasUsed:          gasUsed,
		GasLimit:         spec.GasLimit,
		ExtraData:        []byte(spec.ExtraData),
		BaseFeePerGas:    spec.BaseFeePerGas,
		Proof:            types.GenesisProof(),
		ChainID:          spec.ChainID,
	}

	return &Built{Block: &types.Block{Header: header, TxHashes: txHashes}, Txs: txs, Receipts: receipts}, nil
}

// creditAlloc opens a fresh state at the empty root and adds every
// alloc balance, returning the resulting root for the bootstrap
// transactions to execute against.
func creditAlloc(spec *ChainSpec, accountStore, storageStore *trie.Store, codeDB kv.Database) (common.Hash, error) {
	state := execution.New(common.EmptyRootHash, accountStore, storageStore, codeDB)
	for addr, balance := range spec.Alloc {
		if balance == nil || balance.Sign() == 0 {
			continue
		}
		amount, overflow := uint256.FromBig(balance)
		if overflow {
			return common.Hash{}, errors.New("genesis: alloc balance overflows 256 bits")
		}
		state.AddBalance(addr, amount, 0)
	}
	return state.Commit()
}

// deriveBootstrapEpochs builds the two epochs the genesis key appends:
// epoch 0 exactly as configured, and epoch 1 immediately following it
// with the same version-range span, so a node resolving height 1's
// validator set (which looks up the epoch rooted at height 0) and a
// node resolving the epoch that takes over once epoch 0's range is
// exhausted both find a contiguous answer without a special genesis
// case — mirrors devtools/genesis-generator's bootstrap of two epochs
// in one pass.
func deriveBootstrapEpochs(template *types.Metadata) (*types.Metadata, *types.Metadata) {
	epoch0 := *template
	epoch0.Epoch = 0

	span := epoch0.Version.End - epoch0.Version.Start + 1
	epoch1 := epoch0
	epoch1.Epoch = 1
	epoch1.Version = types.VersionRange{
		Start: epoch0.Version.End + 1,
		End:   epoch0.Version.End + span,
	}
	return &epoch0, &epoch1
}

// buildMetadataAppendTx signs a zero-fee call to syscontract.MetadataAddress
// carrying meta's RLP encoding as input, matching syscontract.Metadata.Run's
// plain-RLP-decode convention (no ABI selector). Zero-fee keeps the
// genesis key's own balance out of the picture: effective gas price is
// min(baseFee+tip, maxFee), so maxFee=tip=0 makes the upfront cost zero
// regardless of baseFee.
func buildMetadataAppendTx(key *ecdsa.PrivateKey, chainID uint64, nonce uint64, meta *types.Metadata) (*types.SignedTransaction, error) {
	data, err := meta.Encode()
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{
		Type:                 types.DynamicFeeTxType,
		Nonce:                nonce,
		MaxPriorityFeePerGas: new(big.Int),
		MaxFeePerGas:         new(big.Int),
		GasLimit:             genesisGasLimit,
		Action:               types.TxAction{To: syscontract.MetadataAddress},
		Value:                new(big.Int),
		Data:                 data,
		ChainID:              new(big.Int).SetUint64(chainID),
	}
	sigHash := tx.SigningHash()
	sig, err := gethcrypto.Sign(sigHash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	utx := types.UnverifiedTransaction{
		Transaction: tx,
		Signature: &types.Signature{
			R:         new(big.Int).SetBytes(sig[0:32]),
			S:         new(big.Int).SetBytes(sig[32:64]),
			StandardV: sig[64],
		},
	}
	return types.Recover(&utx)
}

func pubkeyToAddress(key *ecdsa.PrivateKey) common.Address {
	return gethcrypto.PubkeyToAddress(key.PublicKey)
}

func txHashes2Bytes(hashes []common.Hash) [][]byte {
	out := make([][]byte, len(hashes))
	for i, h := range hashes {
		out[i] = h.Bytes()
	}
	return out
}

func receiptsRoot(results []execution.TxResult) (common.Hash, error) {
	items := make([][]byte, len(results))
	for i, r := range results {
		enc, err := r.Receipt.Encode()
		if err != nil {
			return common.Hash{}, err
		}
		items[i] = enc
	}
	return merkleutil.MerkleRoot(items)
}

// Seed writes built into storage as the height-0 block, the pattern
// every other height's commit uses (WriteBlockBatch/WriteLatestBatch),
// but only if the chain is empty — spec.md §6's "the genesis block is
// written once, the first time a node starts against an empty
// database." A non-empty chain is left untouched and no error is
// returned, so a node can call Seed unconditionally on every startup.
func Seed(chainStore *chain.Store, store *kv.Store, built *Built) error {
	existing, err := chainStore.ReadLatestBlock()
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return err
	}
	if err == nil && existing != nil {
		return nil
	}

	blockBatch := store.NewBatch(kv.CFBlock)
	if err := chainStore.WriteBlockBatch(blockBatch, built.Block); err != nil {
		return err
	}

	txBatch := store.NewBatch(kv.CFSignedTx)
	txHashIndexBatch := store.NewBatch(kv.CFTxHashToHeight)
	for _, tx := range built.Txs {
		if err := chainStore.WriteSignedTxBatch(txBatch, 0, tx); err != nil {
			return err
		}
		if err := chainStore.IndexTxHashToHeight(txHashIndexBatch, tx.Hash(), 0); err != nil {
			return err
		}
	}

	receiptBatch := store.NewBatch(kv.CFReceipt)
	if err := chainStore.WriteReceiptsBatch(receiptBatch, 0, built.Block.TxHashes, built.Receipts); err != nil {
		return err
	}

	hashIndexBatch := store.NewBatch(kv.CFHashToHeight)
	if err := chainStore.IndexHashToHeight(hashIndexBatch, built.Block.Hash(), 0); err != nil {
		return err
	}

	latestBlockBatch := store.NewBatch(kv.CFLatestBlock)
	latestProofBatch := store.NewBatch(kv.CFLatestProof)
	if err := chainStore.WriteLatestBatch(latestBlockBatch, latestProofBatch, built.Block, types.GenesisProof()); err != nil {
		return err
	}

	return kv.WriteBatches(blockBatch, txBatch, txHashIndexBatch, receiptBatch, hashIndexBatch, latestBlockBatch, latestProofBatch)
}
