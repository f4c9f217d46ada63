package types

import (
	"math/big"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	axonrlp "github.com/luxfi/axon/rlp"
)

// Header is the block header: everything needed to verify a block
// without its transaction bodies (spec.md §3). TransactionsRoot and
// ReceiptsRoot are MPT roots keyed by RLP(index); SignedTxsHash is
// Keccak of the RLP list of signed transactions.
type Header struct {
	PrevHash         common.Hash
	Proposer         common.Address
	StateRoot        common.Hash
	TransactionsRoot common.Hash
	SignedTxsHash    common.Hash
	ReceiptsRoot     common.Hash
	LogBloom         Bloom
	Timestamp        uint64
	Number           uint64
	Round            uint64 // the BFT round this height was finally proposed/committed at; distinct from Proof.Round, which names the parent's commit round
	GasUsed          uint64
	GasLimit         uint64
	ExtraData        []byte
	BaseFeePerGas    *big.Int
	Proof            *Proof
	ChainID          uint64
}

type rlpHeader struct {
	PrevHash         common.Hash
	Proposer         common.Address
	StateRoot        common.Hash
	TransactionsRoot common.Hash
	SignedTxsHash    common.Hash
	ReceiptsRoot     common.Hash
	LogBloom         Bloom
	Timestamp        uint64
	Number           uint64
	Round            uint64
	GasUsed          uint64
	GasLimit         uint64
	ExtraData        []byte
	BaseFeePerGas    *big.Int
	Proof            *rlpProof
	ChainID          uint64
}

func (h *Header) toRLP() *rlpHeader {
	r := &rlpHeader{
		PrevHash: h.PrevHash, Proposer: h.Proposer, StateRoot: h.StateRoot,
		TransactionsRoot: h.TransactionsRoot, SignedTxsHash: h.SignedTxsHash,
		ReceiptsRoot: h.ReceiptsRoot, LogBloom: h.LogBloom, Timestamp: h.Timestamp,
		Number: h.Number, Round: h.Round, GasUsed: h.GasUsed, GasLimit: h.GasLimit,
		ExtraData: h.ExtraData, BaseFeePerGas: orZero(h.BaseFeePerGas), ChainID: h.ChainID,
	}
	proof := h.Proof
	if proof == nil {
		proof = GenesisProof()
	}
	r.Proof = &rlpProof{proof.Number, proof.Round, proof.BlockHash, proof.Signature, []byte(proof.Bitmap)}
	return r
}

// Encode returns the canonical RLP encoding of the header.
func (h *Header) Encode() ([]byte, error) {
	return axonrlp.EncodeToBytes(h.toRLP())
}

// Decode parses the canonical RLP encoding produced by Encode.
func (h *Header) Decode(data []byte) error {
	var r rlpHeader
	if err := axonrlp.DecodeBytes(data, &r); err != nil {
		return err
	}
	h.PrevHash, h.Proposer, h.StateRoot = r.PrevHash, r.Proposer, r.StateRoot
	h.TransactionsRoot, h.SignedTxsHash, h.ReceiptsRoot = r.TransactionsRoot, r.SignedTxsHash, r.ReceiptsRoot
	h.LogBloom, h.Timestamp, h.Number = r.LogBloom, r.Timestamp, r.Number
	h.Round, h.GasUsed, h.GasLimit, h.ExtraData = r.Round, r.GasUsed, r.GasLimit, r.ExtraData
	h.BaseFeePerGas, h.ChainID = r.BaseFeePerGas, r.ChainID
	h.Proof = &Proof{r.Proof.Number, r.Proof.Round, r.Proof.BlockHash, r.Proof.Signature, Bitmap(r.Proof.Bitmap)}
	return nil
}

// Hash returns Keccak(RLP(header)) — the block identity every invariant
// in spec.md §3/§8 is stated in terms of (prev_hash of the child,
// proof.block_hash referenced by the child).
func (h *Header) Hash() common.Hash {
	enc, _ := h.Encode()
	return crypto.Keccak256Hash(enc)
}
