package precompile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/execution"
	"github.com/luxfi/axon/types"
)

func TestAddressesAreDistinctAndReserved(t *testing.T) {
	addrs := []common.Address{MetadataAddress, HeaderAddress, MerkleProofAddress, SandboxVMAddress, CellAddress}
	seen := map[common.Address]bool{}
	for _, a := range addrs {
		require.False(t, seen[a], "duplicate precompile address %v", a)
		seen[a] = true
		require.Equal(t, byte(reservedPrefix), a.Bytes()[18])
	}
}

type fakeMetadataSource struct{ meta *types.Metadata }

func (f fakeMetadataSource) MetadataByBlockNumber(*execution.StateDB, uint64) (*types.Metadata, error) {
	return f.meta, nil
}

func (f fakeMetadataSource) MetadataByEpoch(*execution.StateDB, uint64) (*types.Metadata, error) {
	return f.meta, nil
}

func TestMetadataPrecompileLookupByBlockNumber(t *testing.T) {
	meta := &types.Metadata{Epoch: 3, GasLimit: 30_000_000}
	m := &Metadata{Source: fakeMetadataSource{meta: meta}}

	input := make([]byte, 9)
	input[0] = 0
	binary.BigEndian.PutUint64(input[1:], 100)

	out, err := m.Run(nil, common.Address{}, input)
	require.NoError(t, err)

	var got types.Metadata
	require.NoError(t, got.Decode(out))
	require.Equal(t, uint64(3), got.Epoch)
	require.Equal(t, uint64(30_000_000), got.GasLimit)
}

func TestMetadataPrecompileRejectsShortInput(t *testing.T) {
	m := &Metadata{Source: fakeMetadataSource{}}
	_, err := m.Run(nil, common.Address{}, []byte{0x00})
	require.ErrorIs(t, err, ErrInvalidMetadataInput)
}

type fakeHeaderSource struct {
	header *types.Header
	found  bool
}

func (f fakeHeaderSource) HeaderByHash(*execution.StateDB, common.Hash) (*types.Header, bool, error) {
	return f.header, f.found, nil
}

func TestHeaderLookupPrecompile(t *testing.T) {
	h := &types.Header{Number: 42}
	lookup := &HeaderLookup{Source: fakeHeaderSource{header: h, found: true}}

	out, err := lookup.Run(nil, common.Address{}, common.HexToHash("0x01").Bytes())
	require.NoError(t, err)

	var got types.Header
	require.NoError(t, got.Decode(out))
	require.Equal(t, uint64(42), got.Number)
}

func TestHeaderLookupPrecompileRejectsBadLength(t *testing.T) {
	lookup := &HeaderLookup{Source: fakeHeaderSource{}}
	_, err := lookup.Run(nil, common.Address{}, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidHeaderInput)
}

type fakeCellSource struct {
	cell  *Cell
	found bool
}

func (f fakeCellSource) GetCell(*execution.StateDB, CellKey) (*Cell, bool, error) {
	return f.cell, f.found, nil
}

func TestCellLookupPrecompile(t *testing.T) {
	key := CellKey{TxHash: common.HexToHash("0xaa"), Index: 1}
	cell := &Cell{TxHash: key.TxHash, Index: 1, Capacity: 500, Data: []byte("payload")}
	lookup := &CellLookup{Source: fakeCellSource{cell: cell, found: true}}

	keyEnc, err := key.Encode()
	require.NoError(t, err)

	out, err := lookup.Run(nil, common.Address{}, keyEnc)
	require.NoError(t, err)

	var got Cell
	require.NoError(t, got.Decode(out))
	require.Equal(t, cell.Capacity, got.Capacity)
	require.Equal(t, cell.Data, got.Data)
}

func TestCellLookupPrecompileRejectsBadKey(t *testing.T) {
	lookup := &CellLookup{Source: fakeCellSource{}}
	_, err := lookup.Run(nil, common.Address{}, []byte{0xff, 0xff})
	require.ErrorIs(t, err, ErrInvalidCellKeyInput)
}

func TestSandboxVMInvokeDefaultsToUnavailable(t *testing.T) {
	inv := &SandboxVMInvoke{}
	req := sandboxInvokeRequest{CellDeps: []CellKey{{TxHash: common.HexToHash("0x01"), Index: 0}}}
	enc, err := req.Encode()
	require.NoError(t, err)

	_, err = inv.Run(nil, common.Address{}, enc)
	require.ErrorIs(t, err, ErrSandboxVMUnavailable)
}
