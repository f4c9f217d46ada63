package genesis

import (
	"encoding/json"
	"math/big"
	"testing"

	gethcrypto "github.com/luxfi/geth/crypto"
	gethparams "github.com/luxfi/geth/params"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/internal/testutils"
	"github.com/luxfi/axon/storage/chain"
	"github.com/luxfi/axon/storage/kv"
	"github.com/luxfi/axon/storage/trie"
	"github.com/luxfi/axon/syscontract"
	"github.com/luxfi/axon/types"
)

func testSpec(t *testing.T, alloc map[common.Address]*big.Int) *ChainSpec {
	t.Helper()
	key := testutils.NewKey(t)

	return &ChainSpec{
		ChainID:       1,
		Timestamp:     1_700_000_000,
		GasLimit:      30_000_000,
		BaseFeePerGas: big.NewInt(0),
		GenesisKey:    gethcrypto.FromECDSA(key.PrivateKey),
		Alloc:         alloc,
		Metadata: types.Metadata{
			Version:  types.VersionRange{Start: 0, End: 99},
			Epoch:    0,
			GasLimit: 30_000_000,
			GasPrice: 1,
			Interval: 3000,
			VerifierList: types.ValidatorList{
				{BLSPubKey: []byte{0x01}, Address: common.HexToAddress("0xaaaa")},
			},
			Consensus: types.ConsensusConfig{
				ProposeRatio: 2, PrevoteRatio: 3, PrecommitRatio: 3, BrakeRatio: 10,
			},
			TxNumLimit: 10000,
			MaxTxSize:  1 << 20,
		},
	}
}

func TestParseRoundTrip(t *testing.T) {
	spec := testSpec(t, map[common.Address]*big.Int{
		common.HexToAddress("0x1111"): big.NewInt(1_000_000),
	})
	enc, err := json.Marshal(spec)
	require.NoError(t, err)

	parsed, err := Parse(enc)
	require.NoError(t, err)
	require.Equal(t, spec.ChainID, parsed.ChainID)
	require.Equal(t, spec.Metadata.Version, parsed.Metadata.Version)
	require.Equal(t, 0, spec.BaseFeePerGas.Cmp(parsed.BaseFeePerGas))
}

func TestParseDefaultsGasLimit(t *testing.T) {
	parsed, err := Parse([]byte(`{"chainId": 7}`))
	require.NoError(t, err)
	require.Equal(t, uint64(defaultGasLimit), parsed.GasLimit)
	require.Equal(t, 0, parsed.BaseFeePerGas.Sign())
}

func newStores(t *testing.T) (*trie.Store, kv.Database, kv.Database, *kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	accountStore := trie.NewStore(store.CF(kv.CFEVMState))
	codeDB := store.CF(kv.CFEVMCode)
	metadataDB := store.CF(kv.CFMetadataState)
	return accountStore, codeDB, metadataDB, store
}

func TestBuildCreditsAllocAndBootstrapsTwoEpochs(t *testing.T) {
	beneficiary := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spec := testSpec(t, map[common.Address]*big.Int{beneficiary: big.NewInt(5_000_000)})

	accountStore, codeDB, metadataDB, kvStore := newStores(t)
	built, err := Build(spec, accountStore, accountStore, codeDB, metadataDB, &gethparams.ChainConfig{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), built.Block.Header.Number)
	require.Len(t, built.Txs, 2)
	require.Len(t, built.Receipts, 2)

	metadata := syscontract.NewMetadata(metadataDB)
	epoch0, err := metadata.MetadataByEpoch(nil, 0)
	require.NoError(t, err)
	require.Equal(t, types.VersionRange{Start: 0, End: 99}, epoch0.Version)

	epoch1, err := metadata.MetadataByEpoch(nil, 1)
	require.NoError(t, err)
	require.Equal(t, types.VersionRange{Start: 100, End: 199}, epoch1.Version)

	require.NoError(t, Seed(chain.New(kvStore), kvStore, built))

	latest, err := chain.New(kvStore).ReadLatestBlock()
	require.NoError(t, err)
	require.Equal(t, built.Block.Hash(), latest.Hash())
}

func TestSeedIsNoOpOnNonEmptyChain(t *testing.T) {
	spec := testSpec(t, nil)
	accountStore, codeDB, metadataDB, kvStore := newStores(t)
	built, err := Build(spec, accountStore, accountStore, codeDB, metadataDB, &gethparams.ChainConfig{})
	require.NoError(t, err)

	chainStore := chain.New(kvStore)
	require.NoError(t, Seed(chainStore, kvStore, built))
	firstTip, err := chainStore.ReadLatestBlock()
	require.NoError(t, err)

	// Building and seeding a second time against the same already-seeded
	// database must leave the first genesis block untouched.
	spec2 := testSpec(t, nil)
	built2, err := Build(spec2, accountStore, accountStore, codeDB, metadataDB, &gethparams.ChainConfig{})
	require.NoError(t, err)
	require.NoError(t, Seed(chainStore, kvStore, built2))

	secondTip, err := chainStore.ReadLatestBlock()
	require.NoError(t, err)
	require.Equal(t, firstTip.Hash(), secondTip.Hash())
}
