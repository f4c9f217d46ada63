package trie

import (
	"github.com/luxfi/axon/common"
	"github.com/luxfi/axon/storage/kv"
)

// DefaultCacheCapacity is the node store's default bounded-cache size,
// in number of nodes.
const DefaultCacheCapacity = 1 << 16

// DefaultCacheSeed seeds the pseudo-random eviction policy; production
// deployments may override it, but the default is fixed so repeated
// runs of the same workload evict in the same order.
const DefaultCacheSeed = 0x41584f4e // "AXON"

// Store is the shared, content-addressed MPT node store of spec.md
// §4.1: write-through to the physical KV store with a bounded in-memory
// cache in front of it. It is safe for concurrent use by multiple Trie
// instances rooted at different historical roots, since remove() is a
// no-op and nothing is ever overwritten at an existing hash key.
type Store struct {
	db    kv.Database
	cache *boundedCache
}

// NewStore opens a node store over db (already a column-family-scoped
// handle — callers pass kv.Store.CF(kv.CFEVMState) etc. so the three
// logical tries share the physical store but never collide).
func NewStore(db kv.Database) *Store {
	return &Store{db: db, cache: newBoundedCache(DefaultCacheCapacity, DefaultCacheSeed)}
}

// NewStoreWithCache opens a node store with an explicit cache capacity
// and eviction seed.
func NewStoreWithCache(db kv.Database, capacity int, seed int64) *Store {
	return &Store{db: db, cache: newBoundedCache(capacity, seed)}
}

// get returns the raw RLP encoding of the node stored at hash, reading
// from the cache and falling back to the KV store on miss; a miss
// populates the cache.
func (s *Store) get(hash common.Hash) ([]byte, error) {
	if enc, ok := s.cache.get(hash); ok {
		return enc, nil
	}
	enc, err := s.db.Get(hash.Bytes())
	if err != nil {
		return nil, err
	}
	s.cache.put(hash, enc)
	return enc, nil
}

// put writes a node directly (outside of a batch); used for the rare
// single-node write (e.g. system-contract bootstrap).
func (s *Store) put(hash common.Hash, enc []byte) error {
	if err := s.db.Put(hash.Bytes(), enc); err != nil {
		return err
	}
	s.cache.put(hash, enc)
	return nil
}

// remove is intentionally a no-op: historical nodes are retained so
// state can be queried at past roots (spec.md §4.1).
func (s *Store) remove(common.Hash) {}

// Batch accumulates node writes for atomic commit; Commit writes the KV
// batch and updates the cache together so a reader never observes the
// cache updated without the corresponding durable write, or vice versa.
type Batch struct {
	store   *Store
	kvBatch kv.Batch
	pending map[common.Hash][]byte
}

// NewBatch starts a batch of node writes against s.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, kvBatch: s.db.NewBatch(), pending: make(map[common.Hash][]byte)}
}

// Put stages a node write.
func (b *Batch) Put(hash common.Hash, enc []byte) error {
	if err := b.kvBatch.Put(hash.Bytes(), enc); err != nil {
		return err
	}
	b.pending[hash] = enc
	return nil
}

// Commit writes the underlying KV batch and then updates the in-memory
// cache with every staged node, atomically with respect to the store's
// exclusive lock (spec.md §4.1 "Batch writes atomically commit both the
// KV batch and the cache update").
func (b *Batch) Commit() error {
	if err := b.kvBatch.Write(); err != nil {
		return err
	}
	b.store.cache.mu.Lock()
	defer b.store.cache.mu.Unlock()
	for h, enc := range b.pending {
		b.store.cache.putLocked(h, enc)
	}
	return nil
}
