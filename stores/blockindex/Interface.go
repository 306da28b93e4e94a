// Package blockindex provides the durable height/hash -> file-location index
// over the flat block files, fronted by an in-memory LRU of parsed blocks.
//
// The index is an optimization only: the flat block files remain
// authoritative, and every reader must be able to fall back to a sequential
// scan when the index is absent, disabled or missed.
package blockindex

import (
	"context"
	"time"

	"github.com/xai-blockchain/xai-sub015/model"
)

// Location records where a block lives on disk.
type Location struct {
	Height     uint32
	BlockHash  string
	FilePath   string
	FileOffset int64
	FileSize   int64
	IndexedAt  time.Time
}

// Store is the durable index over block locations.
type Store interface {
	// IndexBlock upserts the location entry for a height. Re-indexing the
	// same height with identical args is a no-op; different args overwrite
	// the entry (height reuse after a reorg).
	IndexBlock(ctx context.Context, height uint32, blockHash, filePath string, fileOffset, fileSize int64) error

	// GetBlockLocation looks up a block by height. Returns
	// errors.ErrBlockNotFound when the height is not indexed.
	GetBlockLocation(ctx context.Context, height uint32) (*Location, error)

	// GetBlockLocationByHash looks up a block by hash via the secondary
	// index.
	GetBlockLocationByHash(ctx context.Context, blockHash string) (*Location, error)

	// RemoveBlocksFrom bulk-deletes every entry with height >= startHeight
	// and returns how many were removed.
	RemoveBlocksFrom(ctx context.Context, startHeight uint32) (int64, error)

	// MaxIndexedHeight returns the highest indexed height. The bool is
	// false when the index is empty.
	MaxIndexedHeight(ctx context.Context) (uint32, bool, error)

	Close() error
}

// BlockReader reads blocks out of the flat block files. Implemented by the
// blockfile store.
type BlockReader interface {
	// ReadBlockAt reads one serialized block at an exact file location.
	ReadBlockAt(filePath string, fileOffset, fileSize int64) (*model.Block, error)

	// ScanForHeight sequentially scans the block files for a height. This
	// is the authoritative fallback when the index misses.
	ScanForHeight(height uint32) (*model.Block, error)
}
