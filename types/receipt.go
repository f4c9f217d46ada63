package types

import (
	"github.com/luxfi/axon/common"
	axonrlp "github.com/luxfi/axon/rlp"
	gethtypes "github.com/luxfi/geth/core/types"
)

// Bloom is the 2048-bit log bloom filter, reusing go-ethereum's
// construction (core/types.Bloom) since it is a pure bit-math type with
// no EVM dependency — the same way luxfi-evm's core/types re-exports it
// (core/types/bloom.go).
type Bloom = gethtypes.Bloom

// Log is a single EVM log entry emitted by a transaction.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// CreateBloom ORs the bloom contribution of every log into a fresh
// Bloom: each log contributes its address and every topic.
func CreateBloom(logs []*Log) Bloom {
	var bloom Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic.Bytes())
		}
	}
	return bloom
}

// Receipt records the outcome of executing one transaction: the state
// root immediately after it (pre-Byzantium-style, per spec.md §3), the
// cumulative gas used through and including this transaction, its log
// bloom and its logs.
type Receipt struct {
	TxHash    common.Hash
	StateRoot common.Hash
	UsedGas   uint64
	LogsBloom Bloom
	Logs      []*Log
}

type rlpLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

type rlpReceipt struct {
	TxHash    common.Hash
	StateRoot common.Hash
	UsedGas   uint64
	LogsBloom Bloom
	Logs      []rlpLog
}

// Encode returns the canonical RLP encoding of the receipt.
func (r *Receipt) Encode() ([]byte, error) {
	rl := rlpReceipt{
		TxHash:    r.TxHash,
		StateRoot: r.StateRoot,
		UsedGas:   r.UsedGas,
		LogsBloom: r.LogsBloom,
		Logs:      make([]rlpLog, len(r.Logs)),
	}
	for i, l := range r.Logs {
		rl.Logs[i] = rlpLog{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	return axonrlp.EncodeToBytes(&rl)
}

// Decode parses the canonical RLP encoding produced by Encode.
func (r *Receipt) Decode(data []byte) error {
	var rl rlpReceipt
	if err := axonrlp.DecodeBytes(data, &rl); err != nil {
		return err
	}
	r.TxHash, r.StateRoot, r.UsedGas, r.LogsBloom = rl.TxHash, rl.StateRoot, rl.UsedGas, rl.LogsBloom
	r.Logs = make([]*Log, len(rl.Logs))
	for i, l := range rl.Logs {
		r.Logs[i] = &Log{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	return nil
}
