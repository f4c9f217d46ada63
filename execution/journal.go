package execution

import (
	"math/big"

	"github.com/luxfi/axon/common"
)

// journalEntry is one undoable state mutation. Snapshot/RevertToSnapshot
// (vm.StateDB's isolation primitive for a failed CALL/CREATE) is built by
// replaying journal entries in reverse rather than cloning the whole
// state, the same trick go-ethereum's core/state.StateDB uses.
type journalEntry interface {
	revert(*StateDB)
	dirtied() (common.Address, bool)
}

type journal struct {
	entries []journalEntry
}

func (j *journal) append(e journalEntry) { j.entries = append(j.entries, e) }

func (j *journal) length() int { return len(j.entries) }

// revertTo undoes every entry back to snapshot, in reverse order, against
// the owning StateDB s.
func (j *journal) revertTo(s *StateDB, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:snapshot]
}

type (
	createObjectChange struct{ account common.Address }

	balanceChange struct {
		account common.Address
		prev    *big.Int
	}

	nonceChange struct {
		account common.Address
		prev    uint64
	}

	codeChange struct {
		account            common.Address
		prevCode, prevHash []byte
	}

	storageChange struct {
		account      common.Address
		key, prev    common.Hash
		prevExisted  bool
	}

	transientStorageChange struct {
		account      common.Address
		key, prev    common.Hash
	}

	refundChange struct{ prev uint64 }

	addLogChange struct{ txHash common.Hash }

	touchChange struct{ account common.Address }

	selfDestructChange struct {
		account     common.Address
		prev        bool
		prevBalance *big.Int
	}

	accessListAddAccountChange struct{ address common.Address }

	accessListAddSlotChange struct {
		address common.Address
		slot    common.Hash
	}
)

func (c createObjectChange) revert(s *StateDB) { delete(s.stateObjects, c.account) }
func (c createObjectChange) dirtied() (common.Address, bool) { return c.account, true }

func (c balanceChange) revert(s *StateDB) { s.getOrNewObject(c.account).setBalance(c.prev) }
func (c balanceChange) dirtied() (common.Address, bool) { return c.account, true }

func (c nonceChange) revert(s *StateDB) { s.getOrNewObject(c.account).setNonce(c.prev) }
func (c nonceChange) dirtied() (common.Address, bool) { return c.account, true }

func (c codeChange) revert(s *StateDB) { s.getOrNewObject(c.account).setCode(c.prevHash, c.prevCode) }
func (c codeChange) dirtied() (common.Address, bool) { return c.account, true }

func (c storageChange) revert(s *StateDB) {
	obj := s.getOrNewObject(c.account)
	if c.prevExisted {
		obj.setState(c.key, c.prev)
	} else {
		delete(obj.dirtyStorage, c.key)
	}
}
func (c storageChange) dirtied() (common.Address, bool) { return c.account, true }

func (c transientStorageChange) revert(s *StateDB) {
	s.setTransientState(c.account, c.key, c.prev)
}
func (c transientStorageChange) dirtied() (common.Address, bool) { return common.Address{}, false }

func (c refundChange) revert(s *StateDB) { s.refund = c.prev }
func (c refundChange) dirtied() (common.Address, bool) { return common.Address{}, false }

func (c addLogChange) revert(s *StateDB) {
	logs := s.logs[c.txHash]
	s.logs[c.txHash] = logs[:len(logs)-1]
	s.logSize--
}
func (c addLogChange) dirtied() (common.Address, bool) { return common.Address{}, false }

func (c touchChange) revert(*StateDB)                        {}
func (c touchChange) dirtied() (common.Address, bool) { return c.account, true }

func (c selfDestructChange) revert(s *StateDB) {
	obj := s.getOrNewObject(c.account)
	obj.selfDestructed = c.prev
	obj.setBalance(c.prevBalance)
}
func (c selfDestructChange) dirtied() (common.Address, bool) { return c.account, true }

func (c accessListAddAccountChange) revert(s *StateDB) {
	s.accessList.DeleteAddress(c.address)
}
func (c accessListAddAccountChange) dirtied() (common.Address, bool) { return common.Address{}, false }

func (c accessListAddSlotChange) revert(s *StateDB) {
	s.accessList.DeleteSlot(c.address, c.slot)
}
func (c accessListAddSlotChange) dirtied() (common.Address, bool) { return common.Address{}, false }
