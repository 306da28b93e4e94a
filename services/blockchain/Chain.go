package blockchain

import (
	"sync"

	"github.com/xai-blockchain/xai-sub015/model"
)

// Chain is the live chain container. A single mutation lock serializes block
// application and reorgs; Go mutexes are not reentrant, so public entry
// points take the lock once and internal helpers use the *Locked variants.
//
// Lock order when the mempool is also touched: chain lock first, mempool
// lock second.
type Chain struct {
	mu     sync.Mutex
	blocks []*model.Block
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

func (c *Chain) lock()   { c.mu.Lock() }
func (c *Chain) unlock() { c.mu.Unlock() }

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.blocks)
}

// Tip returns the current tip block, or nil on an empty chain.
func (c *Chain) Tip() *model.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tipLocked()
}

func (c *Chain) tipLocked() *model.Block {
	if len(c.blocks) == 0 {
		return nil
	}

	return c.blocks[len(c.blocks)-1]
}

// Height returns the tip height. ok is false on an empty chain.
func (c *Chain) Height() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return 0, false
	}

	return c.blocks[len(c.blocks)-1].Header.Height, true
}

// BlockAtHeight returns the block at a height, or nil when out of range.
func (c *Chain) BlockAtHeight(height uint32) *model.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blockAtHeightLocked(height)
}

func (c *Chain) blockAtHeightLocked(height uint32) *model.Block {
	if int(height) >= len(c.blocks) {
		return nil
	}

	return c.blocks[height]
}

// HashAtHeight returns the hash of the block at a height, or ok=false when
// out of range.
func (c *Chain) HashAtHeight(height uint32) (string, bool) {
	block := c.BlockAtHeight(height)
	if block == nil {
		return "", false
	}

	return block.Hash(), true
}

// Blocks returns a copy of the block slice.
func (c *Chain) Blocks() []*model.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blocksLocked()
}

func (c *Chain) blocksLocked() []*model.Block {
	out := make([]*model.Block, len(c.blocks))
	copy(out, c.blocks)

	return out
}

// CumulativeDifficulty sums the difficulty of every block. Used as the
// second key of the fork total order.
func (c *Chain) CumulativeDifficulty() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CumulativeDifficulty(c.blocks)
}

// CumulativeDifficulty sums block difficulties over any block sequence.
func CumulativeDifficulty(blocks []*model.Block) uint64 {
	var total uint64

	for _, b := range blocks {
		total += uint64(b.Header.Difficulty)
	}

	return total
}

func (c *Chain) appendLocked(block *model.Block) {
	c.blocks = append(c.blocks, block)
}

func (c *Chain) truncateLocked(length int) {
	c.blocks = c.blocks[:length]
}
