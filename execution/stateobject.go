package execution

import (
	"math/big"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

// stateObject is the in-memory, dirty-tracking view of one account: its
// types.Account plus a lazily-opened storage sub-trie rooted at
// Account.StorageRoot, mirroring the per-account object go-ethereum's
// core/state.StateDB keeps, but backed by our own trie.Store rather than
// geth's trie/triedb.
type stateObject struct {
	address common.Address
	account *types.Account

	storageStore  *trie.Store
	storageTrie   *trie.Trie
	dirtyStorage  map[common.Hash]common.Hash
	originStorage map[common.Hash]common.Hash

	code      []byte
	dirtyCode bool

	selfDestructed bool
	newlyCreated   bool
}

func newStateObject(addr common.Address, storageStore *trie.Store) *stateObject {
	return &stateObject{
		address:       addr,
		account:       types.NewEmptyAccount(),
		storageStore:  storageStore,
		dirtyStorage:  make(map[common.Hash]common.Hash),
		originStorage: make(map[common.Hash]common.Hash),
	}
}

func (o *stateObject) empty() bool {
	return o.account.Nonce == 0 &&
		o.account.Balance.Sign() == 0 &&
		o.account.CodeHash == common.EmptyCodeHash
}

func (o *stateObject) balance() *big.Int { return o.account.Balance }

func (o *stateObject) setBalance(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	o.account.Balance = v
}

func (o *stateObject) setNonce(n uint64) { o.account.Nonce = n }

func (o *stateObject) setCode(codeHash common.Hash, code []byte) {
	o.account.CodeHash = codeHash
	o.code = code
	o.dirtyCode = true
}

func (o *stateObject) openStorageTrie() (*trie.Trie, error) {
	if o.storageTrie != nil {
		return o.storageTrie, nil
	}
	o.storageTrie = trie.New(o.storageStore, o.account.StorageRoot)
	return o.storageTrie, nil
}

func (o *stateObject) getState(key common.Hash) (common.Hash, error) {
	if v, ok := o.dirtyStorage[key]; ok {
		return v, nil
	}
	return o.getCommittedState(key)
}

func (o *stateObject) getCommittedState(key common.Hash) (common.Hash, error) {
	if v, ok := o.originStorage[key]; ok {
		return v, nil
	}
	tr, err := o.openStorageTrie()
	if err != nil {
		return common.Hash{}, err
	}
	enc, ok, err := tr.Get(key.Bytes())
	if err != nil {
		return common.Hash{}, err
	}
	var v common.Hash
	if ok {
		v = common.BytesToHash(enc)
	}
	o.originStorage[key] = v
	return v, nil
}

func (o *stateObject) setState(key, value common.Hash) { o.dirtyStorage[key] = value }

// finalize writes every dirty storage slot into the storage trie, commits
// it, and updates Account.StorageRoot; it does not write the account
// itself into the outer account trie (the caller does that).
func (o *stateObject) finalize() error {
	if len(o.dirtyStorage) == 0 {
		return nil
	}
	tr, err := o.openStorageTrie()
	if err != nil {
		return err
	}
	for key, value := range o.dirtyStorage {
		if value == (common.Hash{}) {
			if err := tr.Delete(key.Bytes()); err != nil {
				return err
			}
		} else {
			if err := tr.Insert(key.Bytes(), value.Bytes()); err != nil {
				return err
			}
		}
		o.originStorage[key] = value
	}
	o.dirtyStorage = make(map[common.Hash]common.Hash)
	root, err := tr.Commit()
	if err != nil {
		return err
	}
	o.account.StorageRoot = root
	return nil
}

func codeHashOf(code []byte) common.Hash {
	if len(code) == 0 {
		return common.EmptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}
