// Package kv provides the column-family-scoped key/value façade spec.md
// §2/§6 calls for: one physical embedded LSM store (RocksDB-class —
// concretely github.com/luxfi/database in production, an in-memory
// store in tests) logically partitioned into named column families. We
// ground the partitioning on the teacher's own habit of wrapping a flat
// KeyValueStore with a prefixing "table" (see
// plugin/evm/database/wrapped_database.go's NewIterator prefix handling)
// and reuse go-ethereum's battle-tested ethdb.NewTable for it rather
// than hand-rolling prefix math.
package kv

import (
	gethethdb "github.com/luxfi/geth/ethdb"
	"github.com/luxfi/geth/ethdb/memorydb"
)

// Database is the flat key/value interface the physical store provides;
// an alias of the teacher's ethdb.KeyValueStore so the same batch/
// iterator machinery (and, in production, the same RocksDB/Pebble
// adapter) backs both the EVM and the trie node store.
type Database = gethethdb.KeyValueStore

// Batch groups a set of writes for atomic commit — used by the trie node
// store (§4.1) to make a node-store batch and its cache update atomic,
// and by the consensus commit path to make block+receipt+latest-pointer
// writes atomic.
type Batch = gethethdb.Batch

// Iterator walks a key range in a column family.
type Iterator = gethethdb.Iterator

// ColumnFamily names the semantic partitions spec.md §6 fixes.
type ColumnFamily string

const (
	CFBlock            ColumnFamily = "block"
	CFBlockHeader      ColumnFamily = "block_header"
	CFSignedTx         ColumnFamily = "signed_transaction"
	CFReceipt          ColumnFamily = "receipt"
	CFHashToHeight     ColumnFamily = "hash_to_height"
	CFTxHashToHeight   ColumnFamily = "tx_hash_to_height"
	CFWAL              ColumnFamily = "wal"
	CFEVMCode          ColumnFamily = "evm_code"
	CFEVMCodeAddress   ColumnFamily = "evm_code_address"
	CFLatestBlock      ColumnFamily = "latest_block"
	CFLatestProof      ColumnFamily = "latest_proof"
	CFEVMState         ColumnFamily = "evm_state"
	CFMetadataState    ColumnFamily = "metadata_state"
	CFParentLightState ColumnFamily = "parent_chain_light_client_state"
	CFImageCellState   ColumnFamily = "parent_chain_image_cell_state"
)

// Store owns the single physical database and hands out column-family
// scoped handles over it; every handle shares the same underlying
// database, but each Batch is scoped to one family, so a write spanning
// several families uses one batch per family committed via WriteBatches.
type Store struct {
	db Database
}

// New wraps an already-open physical database.
func New(db Database) *Store { return &Store{db: db} }

// NewMemory returns a Store backed by an in-memory database, for tests
// (the teacher's own pattern of hand-rolled in-memory fixtures rather
// than spinning up a real RocksDB instance per test).
func NewMemory() *Store { return &Store{db: memorydb.New()} }

// CF returns the column-family-scoped handle; all keys written through
// it are transparently prefixed so distinct families never collide in
// the shared physical keyspace.
func (s *Store) CF(name ColumnFamily) Database {
	return gethethdb.NewTable(s.db, string(name)+":")
}

// NewBatch returns a batch scoped to a single column family. For writes
// spanning multiple families (e.g. block + receipts + latest-pointer),
// open one batch per family and commit them together via WriteBatches,
// which is the pattern storage/chain uses for its atomic commit.
func (s *Store) NewBatch(name ColumnFamily) Batch {
	return s.CF(name).NewBatch()
}

// WriteBatches commits every batch, in order, and returns the first
// error encountered; callers that need true cross-family atomicity
// should prefer a single shared-prefix-free batch over the raw db when
// the backing store supports it (RocksDB multi-column-family batches
// do), falling back to this for the in-memory test store.
func WriteBatches(batches ...Batch) error {
	for _, b := range batches {
		if err := b.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying physical database.
func (s *Store) Close() error { return s.db.Close() }
