package trie

import (
	"math/rand"
	"sync"

	"github.com/luxfi/axon/common"
)

// boundedCache is the node store's in-memory layer: a fixed-capacity
// map from node hash to raw RLP bytes. On overflow it evicts a
// pseudo-randomly chosen entry rather than tracking recency, per
// spec.md §4.1 ("bounded least-recently-used style in-memory cache
// (fixed capacity, pseudo-random eviction seeded for determinism)") —
// deliberately not github.com/hashicorp/golang-lru or VictoriaMetrics
// fastcache, both of which evict by strict recency/frequency, which
// would make eviction order (and therefore which nodes require a KV
// round-trip) depend on access order instead of being reproducible from
// the seed alone. See DESIGN.md for why no third-party cache fits.
//
// Reads take the shared lock; writes (insertion on miss, eviction, and
// the batch-commit cache update) take the exclusive lock, matching the
// reader-writer discipline spec.md §5 requires of the trie node store.
type boundedCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[common.Hash][]byte
	order    []common.Hash // insertion order, for picking an eviction index
	rng      *rand.Rand
}

func newBoundedCache(capacity int, seed int64) *boundedCache {
	return &boundedCache{
		capacity: capacity,
		entries:  make(map[common.Hash][]byte, capacity),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (c *boundedCache) get(h common.Hash) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[h]
	return v, ok
}

func (c *boundedCache) put(h common.Hash, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(h, v)
}

func (c *boundedCache) putLocked(h common.Hash, v []byte) {
	if _, exists := c.entries[h]; exists {
		c.entries[h] = v
		return
	}
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.entries[h] = v
	c.order = append(c.order, h)
}

// evictLocked drops one pseudo-randomly chosen entry; called with mu
// held for writing.
func (c *boundedCache) evictLocked() {
	for len(c.order) > 0 {
		idx := c.rng.Intn(len(c.order))
		victim := c.order[idx]
		c.order[idx] = c.order[len(c.order)-1]
		c.order = c.order[:len(c.order)-1]
		if _, ok := c.entries[victim]; ok {
			delete(c.entries, victim)
			return
		}
		// victim was already overwritten/removed from order by a prior
		// eviction pass; keep trying.
	}
}

func (c *boundedCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
