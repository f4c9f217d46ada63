// Package precompile implements the chain-specific stateful precompiles:
// fixed-address contracts backed by Go code rather than EVM bytecode,
// dispatched by execution.Executor for transactions sent directly to one
// of their addresses (see execution.StatefulPrecompile's doc comment on
// why nested CALLs into these addresses are not supported by this fork).
//
// Each precompile here is grounded on one file under
// original_source/core/executor/src/precompiles/: metadata lookup,
// parent-chain header/cell lookup, and Merkle-proof verification carry
// the same address/gas-cost shape as their Rust counterparts; the
// standard Ethereum precompiles (ecrecover, sha256, ripemd160, modexp,
// the alt_bn128 family, blake2f) need no Go counterpart here because
// github.com/luxfi/geth/core/vm.EVM already dispatches to them for any
// call reaching addresses 0x01-0x09.
package precompile

import "github.com/luxfi/axon/common"

// reservedPrefix marks every address in this package's range so it can
// never collide with the standard Ethereum precompile range (0x01-0x09)
// or with a user-deployed contract address, which this chain never
// assigns inside this prefix.
const reservedPrefix = 0xff

// Address builds the fixed address of the n'th chain-specific
// precompile: the standard 20-byte address space with reservedPrefix in
// byte 18 and n in byte 19, mirroring the Rust original's
// axon_precompile_address/eip_precompile_address helpers (a small
// integer offset from a well-known zero address).
func Address(n byte) common.Address {
	var addr common.Address
	addr[18] = reservedPrefix
	addr[19] = n
	return addr
}

// Fixed precompile addresses, numbered the way the Rust original
// assigns its axon_precompile_address offsets.
var (
	MetadataAddress    = Address(0x00)
	HeaderAddress      = Address(0x02)
	MerkleProofAddress = Address(0x07)
	SandboxVMAddress   = Address(0x08)
	CellAddress        = Address(0x09)
)

// gasCostPerWord charges 3 gas per 32-byte input word on top of a
// precompile's MIN_GAS floor, the same per-word cost the Rust original's
// gas_cost functions use for get_header/get_cell/metadata.
func gasCostPerWord(input []byte, minGas uint64) uint64 {
	words := (uint64(len(input)) + 31) / 32
	return words*3 + minGas
}
