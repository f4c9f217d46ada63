package precompile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
)

func TestMerkleProofVerifyRoundTrip(t *testing.T) {
	leafA := common.HexToHash("0xaa")
	leafB := common.HexToHash("0xbb")
	leafC := common.HexToHash("0xcc")
	leafD := common.HexToHash("0xdd")

	ab := mergeHashes(leafA, leafB)
	cd := mergeHashes(leafC, leafD)
	rawTxRoot := mergeHashes(ab, cd)
	witnessesRoot := common.HexToHash("0xee")
	txRoot := mergeHashes(rawTxRoot, witnessesRoot)

	payload := VerifyProofPayload{
		TransactionsRoot:    txRoot,
		WitnessesRoot:       witnessesRoot,
		RawTransactionsRoot: rawTxRoot,
		Proofs: []LeafProof{
			{Leaf: leafA, Index: 0, Siblings: []common.Hash{leafB, cd}},
			{Leaf: leafC, Index: 2, Siblings: []common.Hash{leafD, ab}},
		},
	}

	encoded, err := payload.Encode()
	require.NoError(t, err)

	mpv := MerkleProofVerify{}
	out, err := mpv.Run(nil, common.Address{}, encoded)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, out)
}

func TestMerkleProofVerifyRejectsBadWitnessRoot(t *testing.T) {
	leafA := common.HexToHash("0xaa")
	leafB := common.HexToHash("0xbb")
	rawTxRoot := mergeHashes(leafA, leafB)

	payload := VerifyProofPayload{
		TransactionsRoot:    common.HexToHash("0xdeadbeef"),
		WitnessesRoot:       common.HexToHash("0xee"),
		RawTransactionsRoot: rawTxRoot,
		Proofs:              []LeafProof{{Leaf: leafA, Index: 0, Siblings: []common.Hash{leafB}}},
	}
	encoded, err := payload.Encode()
	require.NoError(t, err)

	mpv := MerkleProofVerify{}
	_, err = mpv.Run(nil, common.Address{}, encoded)
	require.ErrorIs(t, err, ErrMerkleProofVerifyFailed)
}
