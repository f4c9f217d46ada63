package syscontract

import (
	"errors"
	"math/big"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
)

// ErrNotAuthorizedMinter is returned when a mint call's caller is not in
// the configured minter allowlist.
var ErrNotAuthorizedMinter = errors.New("syscontract: caller is not an authorized minter")

// ErrInsufficientBurnBalance is returned when a burn call's target
// account cannot cover the requested amount; per the resolved Open
// Question a failed burn does not consume a nonce (see
// execution.NonceRevertPolicy).
var ErrInsufficientBurnBalance = errors.New("syscontract: insufficient balance to burn")

// ErrInvalidNativeTokenInput is returned for any input that is not the
// fixed 53-byte mint/burn schema (1 opcode byte + 20 address bytes + 32
// amount bytes).
var ErrInvalidNativeTokenInput = errors.New("syscontract: native token input must be 53 bytes")

const (
	opMint byte = 0
	opBurn byte = 1
)

const nativeTokenMinGas = 21000

// NativeToken is the native-token mint/burn system contract: mint
// credits an arbitrary target's balance and is restricted to a
// configured set of minters (e.g. the parent-chain bridge relayer);
// burn debits the caller's own balance and is open to anyone (burning
// your own funds needs no authorization).
type NativeToken struct {
	Minters map[common.Address]bool
}

func (n *NativeToken) RequiredGas([]byte) uint64 { return nativeTokenMinGas }

func (n *NativeToken) Run(state *execution.StateDB, caller common.Address, input []byte) ([]byte, error) {
	if len(input) != 53 {
		return nil, ErrInvalidNativeTokenInput
	}
	target := common.BytesToAddress(input[1:21])
	amount := new(big.Int).SetBytes(input[21:53])
	var amountU256 common.U256
	amountU256.SetFromBig(amount)

	switch input[0] {
	case opMint:
		if !n.Minters[caller] {
			return nil, ErrNotAuthorizedMinter
		}
		state.AddBalance(target, &amountU256, 0)
		return nil, nil
	case opBurn:
		if state.GetBalance(caller).ToBig().Cmp(amount) < 0 {
			return nil, ErrInsufficientBurnBalance
		}
		state.SubBalance(caller, &amountU256, 0)
		return nil, nil
	default:
		return nil, errors.New("syscontract: invalid native token opcode")
	}
}

// BumpNonceOnRevert implements execution.NonceRevertPolicy: a burn that
// reverts for insufficient balance never had an observable effect, so it
// must not consume a nonce slot (mint always succeeds or fails
// authorization, which is checked before any state mutation and is
// likewise nonce-neutral).
func (n *NativeToken) BumpNonceOnRevert() bool { return false }
