package blockindex

import (
	"container/list"
	"sync"

	"github.com/xai-blockchain/xai-sub015/model"
)

// BlockCache is a strict least-recently-used cache of parsed blocks keyed by
// height. All operations are O(1): a map for lookup, a doubly-linked list for
// recency order.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint32]*list.Element
	order    *list.List // front = most recently used

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	height uint32
	block  *model.Block
}

// NewBlockCache creates a cache holding at most capacity parsed blocks. A
// capacity below 1 is treated as 1.
func NewBlockCache(capacity int) *BlockCache {
	if capacity < 1 {
		capacity = 1
	}

	return &BlockCache{
		capacity: capacity,
		entries:  make(map[uint32]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached block for a height, marking it most recently used.
func (c *BlockCache) Get(height uint32) (*model.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[height]
	if !ok {
		c.misses++
		return nil, false
	}

	c.hits++
	c.order.MoveToFront(el)

	return el.Value.(*cacheEntry).block, true
}

// Put inserts or refreshes the cached block for a height, evicting the least
// recently used entry when full.
func (c *BlockCache) Put(height uint32, block *model.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[height]; ok {
		el.Value.(*cacheEntry).block = block
		c.order.MoveToFront(el)

		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).height)
		}
	}

	c.entries[height] = c.order.PushFront(&cacheEntry{height: height, block: block})
}

// Invalidate drops the cached block for a height, if present.
func (c *BlockCache) Invalidate(height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[height]; ok {
		c.order.Remove(el)
		delete(c.entries, height)
	}
}

// Clear drops every cached block. Used on reorg rollback, where selective
// invalidation is not worth the bookkeeping.
func (c *BlockCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uint32]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached blocks.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Stats returns the cumulative hit and miss counters.
func (c *BlockCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}
