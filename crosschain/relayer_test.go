package crosschain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/crypto"
	"github.com/luxfi/axon/types"
)

type fakeOutbound struct {
	payloads [][]byte
}

func (f *fakeOutbound) SubmitCheckpoint(_ context.Context, payload []byte) (common.Hash, error) {
	f.payloads = append(f.payloads, payload)
	return crypto.Keccak256Hash(payload), nil
}

func TestRelayerSubmitEncodesBlockAndProof(t *testing.T) {
	block := &types.Block{Header: &types.Header{Number: 7, Proof: types.GenesisProof()}}
	proof := &types.Proof{Number: 8, BlockHash: block.Hash(), Signature: []byte{1, 2, 3}, Bitmap: types.Bitmap{0x01}}
	cp := &Checkpoint{Block: block, Proof: proof}

	client := &fakeOutbound{}
	relayer := NewRelayer(client)

	txHash, err := relayer.Submit(context.Background(), cp)
	require.NoError(t, err)
	require.Len(t, client.payloads, 1)

	blockEnc, err := block.Encode()
	require.NoError(t, err)
	proofEnc, err := proof.Encode()
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, blockEnc...), proofEnc...), client.payloads[0])
	require.Equal(t, crypto.Keccak256Hash(client.payloads[0]), txHash)
}
