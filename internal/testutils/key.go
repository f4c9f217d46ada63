// Package testutils collects the small fixtures every package's test
// suite in this module otherwise reimplements on its own: a throwaway
// secp256k1 key plus the address it recovers to, and a helper for
// signing a transaction with it the same way mempool and genesis do in
// production.
package testutils

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	gethcrypto "github.com/luxfi/geth/crypto"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/types"
)

// Key is a throwaway secp256k1 key pair and the address it recovers to.
type Key struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
}

// NewKey generates a fresh key pair for use in a test.
func NewKey(t *testing.T) *Key {
	t.Helper()
	priv, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	return &Key{
		Address:    gethcrypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
}

// SignTx signs tx's signing hash with k and recovers it back into a
// SignedTransaction, mirroring the admission path every signed
// transaction in this module goes through.
func (k *Key) SignTx(t *testing.T, tx *types.Transaction) *types.SignedTransaction {
	t.Helper()
	sigHash := tx.SigningHash()
	sig, err := gethcrypto.Sign(sigHash.Bytes(), k.PrivateKey)
	require.NoError(t, err)
	utx := types.UnverifiedTransaction{
		Transaction: tx,
		Signature: &types.Signature{
			R:         new(big.Int).SetBytes(sig[0:32]),
			S:         new(big.Int).SetBytes(sig[32:64]),
			StandardV: sig[64],
		},
	}
	stx, err := types.Recover(&utx)
	require.NoError(t, err)
	return stx
}
