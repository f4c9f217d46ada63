// Package syscontract implements the system contracts: fixed-address,
// state-mutating handlers for native-token mint/burn, epoch-metadata
// append, and the two parent-chain mirrors (light-client header feed,
// image-cell UTXO-style set). Unlike package precompile's read-mostly
// lookups, these contracts are each the sole writer of their own
// subsystem's persisted state and are dispatched through the same
// execution.StatefulPrecompile seam (see execution.Executor.runAction),
// keeping this chain to one dispatch mechanism for every fixed-address
// contract instead of a second one for state mutation.
package syscontract

import "github.com/luxfi/axon/common"

// reservedPrefix marks every system-contract address, distinct from
// package precompile's 0xff marker byte so the two fixed-address ranges
// can never collide.
const reservedPrefix = 0xfe

// Address builds the fixed address of the n'th system contract.
func Address(n byte) common.Address {
	var addr common.Address
	addr[18] = reservedPrefix
	addr[19] = n
	return addr
}

// Fixed system-contract addresses.
var (
	NativeTokenAddress       = Address(0x00)
	MetadataAddress          = Address(0x01)
	ParentLightClientAddress = Address(0x02)
	ParentImageCellAddress   = Address(0x03)
)
