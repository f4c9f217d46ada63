// Package common defines the primitive identifiers shared across the
// node: 32-byte hashes, 20-byte addresses and 256-bit integers. These are
// thin aliases over the teacher's geth fork so that every package in this
// module speaks the same wire-compatible types the EVM interpreter and
// RLP codec already expect.
package common

import (
	gethcommon "github.com/luxfi/geth/common"
	"github.com/holiman/uint256"
)

// Hash is a 32-byte Keccak digest.
type Hash = gethcommon.Hash

// Address is a 20-byte account identifier, the last 20 bytes of
// Keccak(pubkey).
type Address = gethcommon.Address

// U256 is a 256-bit unsigned integer used for balances, gas and values.
type U256 = uint256.Int

// BytesToHash left-pads b with zeroes and returns it as a Hash.
func BytesToHash(b []byte) Hash { return gethcommon.BytesToHash(b) }

// BytesToAddress left-pads b with zeroes and returns it as an Address.
func BytesToAddress(b []byte) Address { return gethcommon.BytesToAddress(b) }

// HexToHash interprets s as a hex string and returns the resulting hash.
func HexToHash(s string) Hash { return gethcommon.HexToHash(s) }

// HexToAddress interprets s as a hex string and returns the resulting
// address.
func HexToAddress(s string) Address { return gethcommon.HexToAddress(s) }

// U256FromUint64 returns a U256 holding v.
func U256FromUint64(v uint64) *U256 { return new(U256).SetUint64(v) }

// EmptyCodeHash is Keccak("")", the code-hash of an externally-owned
// account or a contract with no code.
var EmptyCodeHash = gethcommon.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// EmptyRootHash is the root of an empty MPT: Keccak(RLP("")).
var EmptyRootHash = gethcommon.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
