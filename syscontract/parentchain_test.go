package syscontract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/precompile"
	axonrlp "github.com/luxfi/axon/rlp"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/types"
)

func TestParentLightClientGatesReadsUntilSetState(t *testing.T) {
	store := kv.NewMemory()
	lc := NewParentLightClient(store.CF(kv.CFParentLightState))

	header := &types.Header{Number: 7}
	enc, err := header.Encode()
	require.NoError(t, err)
	_, err = lc.Run(nil, common.Address{}, append([]byte{lcOpUpdate}, enc...))
	require.NoError(t, err)

	_, _, err = lc.HeaderByHash(nil, header.Hash())
	require.ErrorIs(t, err, ErrLightClientReadsDisabled)

	_, err = lc.Run(nil, common.Address{}, []byte{lcOpSetState, 1})
	require.NoError(t, err)

	got, found, err := lc.HeaderByHash(nil, header.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(7), got.Number)
}

func TestParentLightClientRollback(t *testing.T) {
	store := kv.NewMemory()
	lc := NewParentLightClient(store.CF(kv.CFParentLightState))
	lc.allowRead = true

	header := &types.Header{Number: 1}
	enc, _ := header.Encode()
	_, err := lc.Run(nil, common.Address{}, append([]byte{lcOpUpdate}, enc...))
	require.NoError(t, err)

	rollbackInput := append([]byte{lcOpRollback}, header.Hash().Bytes()...)
	_, err = lc.Run(nil, common.Address{}, rollbackInput)
	require.NoError(t, err)

	_, found, err := lc.HeaderByHash(nil, header.Hash())
	require.NoError(t, err)
	require.False(t, found)
}

func TestParentImageCellUpdateAndLookup(t *testing.T) {
	store := kv.NewMemory()
	ic := NewParentImageCell(store.CF(kv.CFImageCellState))
	ic.allowRead = true

	key := precompile.CellKey{TxHash: common.HexToHash("0xaa"), Index: 0}
	cell := precompile.Cell{TxHash: key.TxHash, Index: 0, Capacity: 1000, Data: []byte("x")}

	update := rlpCellUpdate{Key: key, Cell: cell}
	enc, err := axonrlp.EncodeToBytes(&update)
	require.NoError(t, err)

	_, err = ic.Run(nil, common.Address{}, append([]byte{icOpUpdate}, enc...))
	require.NoError(t, err)

	got, found, err := ic.GetCell(nil, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1000), got.Capacity)
}
