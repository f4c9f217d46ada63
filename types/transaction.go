// Package types holds the node's persisted/wire data model: accounts,
// transactions, headers, blocks, receipts, the BFT commit proof, epoch
// metadata and the validator set. Every type here has exactly one
// canonical RLP encoding (package rlp) and, where applicable, a single
// signing-hash and tx-hash derivation — see spec.md §3 and §9 ("sum
// types over inheritance").
package types

import (
	"errors"
	"math/big"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	axonrlp "github.com/luxfi/axon/rlp"
)

// TxType identifies which of the three historical transaction encodings
// a Transaction carries.
type TxType byte

const (
	// LegacyTxType is the pre-EIP-2718 encoding: no access list, no
	// separate priority/max fee, chain-id folded into v per EIP-155.
	LegacyTxType TxType = 0
	// AccessListTxType is EIP-2930: adds an access list and an explicit
	// chain-id field, still a single gas price.
	AccessListTxType TxType = 1
	// DynamicFeeTxType is EIP-1559: splits gas price into
	// max_priority_fee_per_gas / max_fee_per_gas.
	DynamicFeeTxType TxType = 2
)

// ErrInvalidTxType is returned when decoding an unknown leading type byte.
var ErrInvalidTxType = errors.New("types: invalid transaction type")

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// AccessList is the ordered list of addresses/storage keys a transaction
// pre-declares it will touch.
type AccessList []AccessTuple

// TxAction distinguishes a value/data call to an existing address from a
// contract-creation transaction.
type TxAction struct {
	// IsCreate is true when the transaction creates a new contract; in
	// that case To is the zero address and ignored.
	IsCreate bool
	To       common.Address
}

// Signature is the three scalars of a recoverable secp256k1 signature.
// StandardV is normalized to 0/1 (the EIP-155/2930/1559 convention);
// legacy transactions recover their chain-id from V per EIP-155 and the
// caller converts to StandardV before constructing a Signature.
type Signature struct {
	R, S      *big.Int
	StandardV byte
}

// Transaction is the EIP-1559-shaped core payload shared by all three
// historical encodings; legacy and access-list transactions simply leave
// the fields they don't have at their type's zero/duplicate value
// (legacy folds MaxFeePerGas == MaxPriorityFeePerGas == GasPrice).
type Transaction struct {
	Type                 TxType
	Nonce                uint64
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             uint64
	Action               TxAction
	Value                *big.Int
	Data                 []byte
	AccessList           AccessList
	ChainID              *big.Int
}

// rlpTransaction mirrors Transaction with RLP-friendly field order; kept
// separate so Transaction's Go-idiomatic field names don't dictate wire
// order, matching the teacher's habit of separating in-memory and wire
// shapes (core/types header_adapter.go).
type rlpTransaction struct {
	Type                 uint8
	ChainID              *big.Int
	Nonce                uint64
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             uint64
	IsCreate             bool
	To                   common.Address
	Value                *big.Int
	Data                 []byte
	AccessList           AccessList
}

func (tx *Transaction) toRLP() *rlpTransaction {
	return &rlpTransaction{
		Type:                 uint8(tx.Type),
		ChainID:              orZero(tx.ChainID),
		Nonce:                tx.Nonce,
		MaxPriorityFeePerGas: orZero(tx.MaxPriorityFeePerGas),
		MaxFeePerGas:         orZero(tx.MaxFeePerGas),
		GasLimit:             tx.GasLimit,
		IsCreate:             tx.Action.IsCreate,
		To:                   tx.Action.To,
		Value:                orZero(tx.Value),
		Data:                 tx.Data,
		AccessList:           tx.AccessList,
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Encode returns the canonical RLP encoding of the unsigned transaction
// body (no signature fields) — SigningHash is Keccak256 of exactly
// these bytes, and it is the shape used to encode a Transaction nested
// inside UnverifiedTransaction.
func (tx *Transaction) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(tx.toRLP())
}

// Decode parses the canonical RLP encoding produced by Encode.
func (tx *Transaction) Decode(data []byte) error {
	var r rlpTransaction
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	tx.Type = TxType(r.Type)
	if tx.Type > DynamicFeeTxType {
		return ErrInvalidTxType
	}
	tx.ChainID = r.ChainID
	tx.Nonce = r.Nonce
	tx.MaxPriorityFeePerGas = r.MaxPriorityFeePerGas
	tx.MaxFeePerGas = r.MaxFeePerGas
	tx.GasLimit = r.GasLimit
	tx.Action = TxAction{IsCreate: r.IsCreate, To: r.To}
	tx.Value = r.Value
	tx.Data = r.Data
	tx.AccessList = r.AccessList
	return nil
}

// SigningHash returns the hash a sender signs: Keccak256 of the RLP
// encoding of the transaction body, excluding signature fields, with the
// chain-id folded in per EIP-155 (legacy) / EIP-2930 / EIP-1559 (both of
// which already carry ChainID in the body).
func (tx *Transaction) SigningHash() common.Hash {
	body, _ := tx.Encode()
	return crypto.Keccak256Hash(body)
}

// UnverifiedTransaction wraps a Transaction with its signature and the
// cached hash of the full (post-signature) wire encoding.
type UnverifiedTransaction struct {
	Transaction *Transaction
	Signature   *Signature

	hash *common.Hash
}

type rlpUnverifiedTx struct {
	Tx *rlpTransaction
	R  *big.Int
	S  *big.Int
	V  uint8
}

// Encode returns the canonical RLP encoding of the signed transaction,
// including the signature — this is the Hash() preimage and the wire
// format gossiped between mempools.
func (utx *UnverifiedTransaction) Encode() ([]byte, error) {
	r := &rlpUnverifiedTx{Tx: utx.Transaction.toRLP()}
	if utx.Signature != nil {
		r.R, r.S, r.V = utx.Signature.R, utx.Signature.S, utx.Signature.StandardV
	} else {
		r.R, r.S = new(big.Int), new(big.Int)
	}
	return axonrlp.EncodeToBytes(r)
}

// Decode parses the canonical RLP encoding produced by Encode.
func (utx *UnverifiedTransaction) Decode(data []byte) error {
	var r rlpUnverifiedTx
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	tx := &Transaction{}
	body, err := axonrlp.EncodeToBytes(r.Tx)
	if err != nil {
		return err
	}
	if err := tx.Decode(body); err != nil {
		return err
	}
	utx.Transaction = tx
	utx.Signature = &Signature{R: r.R, S: r.S, StandardV: r.V}
	utx.hash = nil
	return nil
}

// Hash returns Keccak256 of the canonical signed encoding, caching the
// result — the transaction identity used everywhere (mempool keys,
// receipts, block tx_hashes).
func (utx *UnverifiedTransaction) Hash() common.Hash {
	if utx.hash != nil {
		return *utx.hash
	}
	enc, _ := utx.Encode()
	h := crypto.Keccak256Hash(enc)
	utx.hash = &h
	return h
}

// SignedTransaction adds the recovered sender to an UnverifiedTransaction
// once its signature has been checked.
type SignedTransaction struct {
	UnverifiedTransaction
	Sender    common.Address
	PublicKey []byte
}

// Recover verifies the signature over utx.Transaction.SigningHash() and
// returns a SignedTransaction with the recovered sender populated. It
// does not mutate utx.
func Recover(utx *UnverifiedTransaction) (*SignedTransaction, error) {
	if utx.Signature == nil {
		return nil, errors.New("types: unverified transaction has no signature")
	}
	sigHash := utx.Transaction.SigningHash()
	sig := make([]byte, 65)
	utx.Signature.R.FillBytes(sig[0:32])
	utx.Signature.S.FillBytes(sig[32:64])
	sig[64] = utx.Signature.StandardV
	pub, err := crypto.SigToPub(sigHash, sig)
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{
		UnverifiedTransaction: *utx,
		Sender:                crypto.PubkeyToAddress(pub),
		PublicKey:             pub,
	}, nil
}
