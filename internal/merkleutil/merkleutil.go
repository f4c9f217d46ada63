// Package merkleutil holds the small MPT-root and signed-tx-hash helpers
// shared by consensus's block verification pipeline and genesis's
// block-zero construction, so the two packages commit to the header
// fields the same way rather than each keeping its own copy.
package merkleutil

import (
	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	axonrlp "github.com/luxfi/axon/rlp"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

// MerkleRoot computes the MPT root of items keyed by RLP(index), matching
// how TransactionsRoot/ReceiptsRoot are defined: "TransactionsRoot and
// ReceiptsRoot are MPT roots keyed by RLP(index)". It builds the trie
// over a throwaway in-memory store since only the root is needed, not
// persistence.
func MerkleRoot(items [][]byte) (common.Hash, error) {
	store := trie.NewStore(kv.NewMemory().CF(kv.CFEVMState))
	tr := trie.New(store, common.Hash{})
	for i, item := range items {
		if err := tr.Insert(IndexKey(i), item); err != nil {
			return common.Hash{}, err
		}
	}
	return tr.Commit()
}

// IndexKey encodes i as RLP(uint64(i)), the trie key the index roots
// above key their leaves by.
func IndexKey(i int) []byte {
	key, _ := axonrlp.EncodeToBytes(uint64(i))
	return key
}

// SignedTxsHash returns Keccak of the RLP list of signed transactions'
// wire encodings, the header field SignedTxsHash commits to.
func SignedTxsHash(txs []*types.SignedTransaction) (common.Hash, error) {
	list := make([]axonrlp.RawValue, 0, len(txs))
	for _, tx := range txs {
		enc, err := tx.UnverifiedTransaction.Encode()
		if err != nil {
			return common.Hash{}, err
		}
		list = append(list, enc)
	}
	encoded, err := axonrlp.EncodeToBytes(list)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
