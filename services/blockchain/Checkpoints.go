package blockchain

import (
	"sync"

	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// Checkpoints records (height, hash) pairs at the configured interval.
// A recorded checkpoint is final: no reorg may rewrite a block at or before
// the last checkpoint height, regardless of competing chain length or
// difficulty.
type Checkpoints struct {
	mu       sync.RWMutex
	logger   ulogger.Logger
	interval uint32
	byHeight map[uint32]string
	last     uint32
	hasAny   bool
}

// NewCheckpoints creates an empty checkpoint manager.
func NewCheckpoints(logger ulogger.Logger, tSettings *settings.Settings) *Checkpoints {
	return &Checkpoints{
		logger:   logger,
		interval: tSettings.Chain.CheckpointInterval,
		byHeight: make(map[uint32]string),
	}
}

// MaybeCreateCheckpoint records the hash when height falls on the interval.
// Height 0 is never checkpointed.
func (c *Checkpoints) MaybeCreateCheckpoint(height uint32, blockHash string) error {
	if c.interval == 0 || height == 0 || height%c.interval != 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.byHeight[height] = blockHash

	if !c.hasAny || height > c.last {
		c.last = height
		c.hasAny = true
	}

	c.logger.Infof("checkpoint recorded at height %d (%.16s) [checkpoint_created]", height, blockHash)

	return nil
}

// LastCheckpointHeight returns the highest recorded checkpoint height.
func (c *Checkpoints) LastCheckpointHeight() (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.last, c.hasAny
}

// HashAt returns the checkpointed hash for a height, if recorded.
func (c *Checkpoints) HashAt(height uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hash, ok := c.byHeight[height]

	return hash, ok
}
