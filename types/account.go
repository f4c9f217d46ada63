package types

import (
	"math/big"

	"github.com/luxfi/axon/common"
	axonrlp "github.com/luxfi/axon/rlp"
)

// Account is the value stored under Keccak(address) in the global state
// trie: a nonce, a balance, the root of the account's own storage trie
// and the hash of its contract code (EmptyCodeHash for an EOA).
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

// NewEmptyAccount returns the zero-value account a first credit/store
// creates before any field is populated.
func NewEmptyAccount() *Account {
	return &Account{
		Balance:     new(big.Int),
		StorageRoot: common.EmptyRootHash,
		CodeHash:    common.EmptyCodeHash,
	}
}

// IsEmpty reports whether the account satisfies the empty-account
// pruning rule: zero balance, zero nonce and no code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && a.CodeHash == common.EmptyCodeHash
}

// Encode returns the canonical RLP encoding of the account leaf value.
func (a *Account) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(a)
}

// Decode parses the canonical RLP encoding produced by Encode.
func (a *Account) Decode(data []byte) error {
	return axonrlp.DecodeBytes(data, a)
}

// Copy returns a deep copy of a, so callers can mutate the result without
// aliasing trie-cached state.
func (a *Account) Copy() *Account {
	cp := *a
	cp.Balance = new(big.Int).Set(a.Balance)
	return &cp
}
