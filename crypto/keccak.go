// Package crypto wraps the hashing and signature primitives the node
// needs: Keccak256 for content-addressing (trie nodes, transaction and
// header hashes) and secp256k1 recovery for transaction signers,
// both delegated to the teacher's geth fork exactly as luxfi-evm does
// (core/vm, core/state wrap the same package rather than reimplementing
// the hash function). BLS12-381 aggregation for consensus QCs lives in
// bls.go, grounded on github.com/supranational/blst.
package crypto

import (
	"github.com/luxfi/axon/common"
	gethcrypto "github.com/luxfi/geth/crypto"
)

// Keccak256 returns the Keccak256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	return gethcrypto.Keccak256(data...)
}

// Keccak256Hash returns the Keccak256 digest of the concatenation of data
// as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return gethcrypto.Keccak256Hash(data...)
}

// SigToPub recovers the public key encoded in signature sig for the hash
// of a signed payload.
func SigToPub(sigHash common.Hash, sig []byte) ([]byte, error) {
	pub, err := gethcrypto.SigToPub(sigHash.Bytes(), sig)
	if err != nil {
		return nil, err
	}
	return gethcrypto.FromECDSAPub(pub), nil
}

// PubkeyToAddress derives the 20-byte address from an uncompressed
// secp256k1 public key: the last 20 bytes of Keccak(pubkey[1:]).
func PubkeyToAddress(pub []byte) common.Address {
	if len(pub) == 65 {
		pub = pub[1:]
	}
	return common.BytesToAddress(Keccak256(pub)[12:])
}
