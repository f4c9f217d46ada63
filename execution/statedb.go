// Package execution implements the block/transaction executor of
// spec.md §5: it drives github.com/luxfi/geth/core/vm.EVM over a
// StateDB built on our own account/storage trie rather than geth's own
// trie/triedb stack, so state lives in the column-family KV store and
// MPT defined by storage/trie and storage/chain.
//
// StateDB's method surface is grounded on the standard go-ethereum
// vm.StateDB contract (CreateAccount/Balance/Nonce/Code/Storage/
// refund/access-list/snapshot/log accounting) that github.com/luxfi/geth
// core/vm.EVM drives a contract execution against. It intentionally
// does not implement this fork's Avalanche-subnet extensions (multicoin
// balances, predicate storage slots) since nothing in this chain's
// design uses them; see DESIGN.md.
package execution

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/core/tracing"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/types"
)

// accessList is a minimal EIP-2929/2930 access set: the address set plus
// a per-address slot set.
type accessList struct {
	addresses map[common.Address]struct{}
	slots     map[common.Address]map[common.Hash]struct{}
}

func newAccessList() *accessList {
	return &accessList{addresses: make(map[common.Address]struct{})}
}

func (al *accessList) ContainsAddress(addr common.Address) bool {
	_, ok := al.addresses[addr]
	return ok
}

func (al *accessList) Contains(addr common.Address, slot common.Hash) (addrOk, slotOk bool) {
	if _, ok := al.addresses[addr]; !ok {
		return false, false
	}
	if slots, ok := al.slots[addr]; ok {
		_, slotOk = slots[slot]
		return true, slotOk
	}
	return true, false
}

func (al *accessList) AddAddress(addr common.Address) { al.addresses[addr] = struct{}{} }

func (al *accessList) AddSlot(addr common.Address, slot common.Hash) {
	al.addresses[addr] = struct{}{}
	if al.slots == nil {
		al.slots = make(map[common.Address]map[common.Hash]struct{})
	}
	if al.slots[addr] == nil {
		al.slots[addr] = make(map[common.Hash]struct{})
	}
	al.slots[addr][slot] = struct{}{}
}

func (al *accessList) DeleteAddress(addr common.Address) { delete(al.addresses, addr) }

func (al *accessList) DeleteSlot(addr common.Address, slot common.Hash) {
	if slots, ok := al.slots[addr]; ok {
		delete(slots, slot)
	}
}

// StateDB is the per-block/per-transaction view over the global account
// trie. One instance is opened per block at the parent state root and
// discarded (or its new root reused as the next block's parent) after
// Finalize/IntermediateRoot.
type StateDB struct {
	accountStore *trie.Store
	storageStore *trie.Store
	codeDB       kv.Database

	trie *trie.Trie

	stateObjects map[common.Address]*stateObject

	journal  journal
	refund   uint64
	logs     map[common.Hash][]*types.Log
	logSize  uint

	accessList       *accessList
	transientStorage map[common.Address]map[common.Hash]common.Hash

	thash common.Hash
	txIdx int
}

// New opens state at root over the given account and storage trie stores
// (normally the same physical column family, kv.CFEVMState) and the EVM
// code column family.
func New(root common.Hash, accountStore, storageStore *trie.Store, codeDB kv.Database) *StateDB {
	return &StateDB{
		accountStore:     accountStore,
		storageStore:     storageStore,
		codeDB:           codeDB,
		trie:             trie.New(accountStore, root),
		stateObjects:     make(map[common.Address]*stateObject),
		logs:             make(map[common.Hash][]*types.Log),
		accessList:       newAccessList(),
		transientStorage: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (s *StateDB) getObject(addr common.Address) *stateObject {
	if obj, ok := s.stateObjects[addr]; ok {
		return obj
	}
	enc, ok, err := s.trie.Get(accountKey(addr))
	if err != nil || !ok {
		return nil
	}
	acc := &types.Account{}
	if err := acc.Decode(enc); err != nil {
		return nil
	}
	obj := newStateObject(addr, s.storageStore)
	obj.account = acc
	s.stateObjects[addr] = obj
	return obj
}

func accountKey(addr common.Address) []byte {
	// the global state trie is keyed by Keccak(address), the same
	// "secure trie" convention go-ethereum uses, so key order reveals
	// nothing about insertion order.
	return crypto.Keccak256(addr.Bytes())
}

func (s *StateDB) getOrNewObject(addr common.Address) *stateObject {
	if obj := s.getObject(addr); obj != nil {
		return obj
	}
	obj := newStateObject(addr, s.storageStore)
	s.stateObjects[addr] = obj
	s.journal.append(createObjectChange{account: addr})
	return obj
}

// CreateAccount resets addr to a fresh, empty account (EVM CREATE when
// the address previously held nothing, or after a SELFDESTRUCT).
func (s *StateDB) CreateAccount(addr common.Address) {
	prev := s.getObject(addr)
	obj := newStateObject(addr, s.storageStore)
	if prev != nil {
		obj.account.Balance = new(big.Int).Set(prev.account.Balance)
	}
	s.stateObjects[addr] = obj
	s.journal.append(createObjectChange{account: addr})
}

// CreateContract signals addr is about to receive code (EIP-161 nonce
// bump on creation is handled by the caller via SetNonce).
func (s *StateDB) CreateContract(addr common.Address) {}

func u256ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func bigToU256(v *big.Int) uint256.Int {
	if v == nil {
		return uint256.Int{}
	}
	var out uint256.Int
	out.SetFromBig(v)
	return out
}

func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	obj := s.getOrNewObject(addr)
	prev := new(big.Int).Set(obj.account.Balance)
	s.journal.append(balanceChange{account: addr, prev: prev})
	obj.setBalance(new(big.Int).Sub(obj.account.Balance, u256ToBig(amount)))
	return bigToU256(prev)
}

func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	obj := s.getOrNewObject(addr)
	prev := new(big.Int).Set(obj.account.Balance)
	s.journal.append(balanceChange{account: addr, prev: prev})
	obj.setBalance(new(big.Int).Add(obj.account.Balance, u256ToBig(amount)))
	return bigToU256(prev)
}

func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	obj := s.getObject(addr)
	if obj == nil {
		return new(uint256.Int)
	}
	v := bigToU256(obj.account.Balance)
	return &v
}

func (s *StateDB) GetNonce(addr common.Address) uint64 {
	obj := s.getObject(addr)
	if obj == nil {
		return 0
	}
	return obj.account.Nonce
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	obj := s.getOrNewObject(addr)
	s.journal.append(nonceChange{account: addr, prev: obj.account.Nonce})
	obj.setNonce(nonce)
}

func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return common.Hash{}
	}
	return obj.account.CodeHash
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	obj := s.getObject(addr)
	if obj == nil {
		return nil
	}
	if obj.code != nil {
		return obj.code
	}
	if obj.account.CodeHash == common.EmptyCodeHash {
		return nil
	}
	code, err := s.codeDB.Get(obj.account.CodeHash.Bytes())
	if err != nil {
		return nil
	}
	obj.code = code
	return code
}

func (s *StateDB) GetCodeSize(addr common.Address) int { return len(s.GetCode(addr)) }

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	obj := s.getOrNewObject(addr)
	s.journal.append(codeChange{account: addr, prevCode: obj.code, prevHash: obj.account.CodeHash.Bytes()})
	obj.setCode(codeHashOf(code), code)
}

func (s *StateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

func (s *StateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		panic("execution: refund underflow")
	}
	s.refund -= gas
}

func (s *StateDB) GetRefund() uint64 { return s.refund }

func (s *StateDB) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return common.Hash{}
	}
	v, _ := obj.getCommittedState(key)
	return v
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return common.Hash{}
	}
	v, _ := obj.getState(key)
	return v
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	obj := s.getOrNewObject(addr)
	prev, _ := obj.getState(key)
	_, existed := obj.originStorage[key]
	s.journal.append(storageChange{account: addr, key: key, prev: prev, prevExisted: existed})
	obj.setState(key, value)
	return prev
}

func (s *StateDB) GetStorageRoot(addr common.Address) common.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return common.Hash{}
	}
	return obj.account.StorageRoot
}

func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	if m, ok := s.transientStorage[addr]; ok {
		return m[key]
	}
	return common.Hash{}
}

func (s *StateDB) setTransientState(addr common.Address, key, value common.Hash) {
	if s.transientStorage[addr] == nil {
		s.transientStorage[addr] = make(map[common.Hash]common.Hash)
	}
	s.transientStorage[addr][key] = value
}

func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := s.GetTransientState(addr, key)
	if prev == value {
		return
	}
	s.journal.append(transientStorageChange{account: addr, key: key, prev: prev})
	s.setTransientState(addr, key, value)
}

func (s *StateDB) SelfDestruct(addr common.Address) uint256.Int {
	obj := s.getOrNewObject(addr)
	prevBal := new(big.Int).Set(obj.account.Balance)
	s.journal.append(selfDestructChange{account: addr, prev: obj.selfDestructed, prevBalance: prevBal})
	obj.selfDestructed = true
	obj.setBalance(new(big.Int))
	return bigToU256(prevBal)
}

func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	obj := s.getObject(addr)
	return obj != nil && obj.selfDestructed
}

// SelfDestruct6780 implements EIP-6780: only destroy if addr was created
// in the current transaction (our executor clears newlyCreated per tx).
func (s *StateDB) SelfDestruct6780(addr common.Address) (uint256.Int, bool) {
	obj := s.getObject(addr)
	if obj == nil || !obj.newlyCreated {
		if obj != nil {
			return bigToU256(obj.account.Balance), false
		}
		return uint256.Int{}, false
	}
	bal := s.SelfDestruct(addr)
	return bal, true
}

func (s *StateDB) Exist(addr common.Address) bool { return s.getObject(addr) != nil }

func (s *StateDB) Empty(addr common.Address) bool {
	obj := s.getObject(addr)
	return obj == nil || obj.empty()
}

func (s *StateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	return s.accessList.Contains(addr, slot)
}

func (s *StateDB) AddAddressToAccessList(addr common.Address) {
	if s.accessList.ContainsAddress(addr) {
		return
	}
	s.journal.append(accessListAddAccountChange{address: addr})
	s.accessList.AddAddress(addr)
}

func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	addrOk, slotOk := s.accessList.Contains(addr, slot)
	if !addrOk {
		s.journal.append(accessListAddAccountChange{address: addr})
	}
	if !slotOk {
		s.journal.append(accessListAddSlotChange{address: addr, slot: slot})
	}
	s.accessList.AddSlot(addr, slot)
}

func (s *StateDB) RevertToSnapshot(id int) { s.journal.revertTo(s, id) }

func (s *StateDB) Snapshot() int { return s.journal.length() }

func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{txHash: s.thash})
	s.logs[s.thash] = append(s.logs[s.thash], log)
	s.logSize++
}

// SetTxContext records which transaction subsequent AddLog calls belong
// to, mirroring the teacher's core/state.StateDB shim.
func (s *StateDB) SetTxContext(thash common.Hash, ti int) {
	s.thash = thash
	s.txIdx = ti
}

// Logs returns every log emitted by the given transaction.
func (s *StateDB) Logs(txHash common.Hash) []*types.Log { return s.logs[txHash] }

// Finalize writes every dirty account (and its storage sub-trie) into
// the account trie, and must be called once per transaction before the
// next transaction's GetObject calls would otherwise see stale data;
// snapshot/revert bookkeeping is cleared for the next transaction.
func (s *StateDB) Finalize() error {
	for addr, obj := range s.stateObjects {
		if obj.selfDestructed {
			if err := s.trie.Delete(accountKey(addr)); err != nil {
				return err
			}
			delete(s.stateObjects, addr)
			continue
		}
		if err := obj.finalize(); err != nil {
			return err
		}
		if obj.dirtyCode && len(obj.code) > 0 {
			if err := s.codeDB.Put(obj.account.CodeHash.Bytes(), obj.code); err != nil {
				return err
			}
			obj.dirtyCode = false
		}
		enc, err := obj.account.Encode()
		if err != nil {
			return err
		}
		if err := s.trie.Insert(accountKey(addr), enc); err != nil {
			return err
		}
	}
	s.journal = journal{}
	s.accessList = newAccessList()
	s.transientStorage = make(map[common.Address]map[common.Hash]common.Hash)
	return nil
}

// IntermediateRoot finalizes pending changes and returns the resulting
// account trie root, without committing it to the physical store (the
// executor calls Commit once, after the whole block's transactions are
// applied).
func (s *StateDB) IntermediateRoot() (common.Hash, error) {
	if err := s.Finalize(); err != nil {
		return common.Hash{}, err
	}
	return s.trie.Root(), nil
}

// Commit flushes every staged trie node (account trie and every touched
// storage trie) to the physical store and returns the new state root.
func (s *StateDB) Commit() (common.Hash, error) {
	if _, err := s.IntermediateRoot(); err != nil {
		return common.Hash{}, err
	}
	return s.trie.Commit()
}
