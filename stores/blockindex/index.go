package blockindex

import (
	"context"
	"time"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/ulogger"
	"github.com/xai-blockchain/xai-sub015/util"
)

// Index fronts the durable store with the parsed-block LRU and the
// authoritative flat-file fallback. Index and cache are derived, rebuildable
// and disposable: any storage failure here degrades to the fallback scan
// instead of failing the caller.
type Index struct {
	logger ulogger.Logger
	store  Store
	cache  *BlockCache
	reader BlockReader

	// scanCache deduplicates concurrent fallback scans for the same height.
	scanCache *util.ExpiringConcurrentCache[uint32, *model.Block]
}

// NewIndex wires the durable store, the LRU and the flat-file reader
// together. The store may be nil (index disabled); reads then always fall
// back to scanning.
func NewIndex(logger ulogger.Logger, store Store, reader BlockReader, cacheSize int) *Index {
	return &Index{
		logger:    logger,
		store:     store,
		cache:     NewBlockCache(cacheSize),
		reader:    reader,
		scanCache: util.NewExpiringConcurrentCache[uint32, *model.Block](10 * time.Second),
	}
}

// Cache exposes the LRU for stats and tests.
func (idx *Index) Cache() *BlockCache {
	return idx.cache
}

// IndexBlock records a block's file location and invalidates any cached
// parsed block at that height (height reuse after a reorg). Storage failure
// is logged and returned; callers treat it as soft.
func (idx *Index) IndexBlock(ctx context.Context, height uint32, blockHash, filePath string, fileOffset, fileSize int64) error {
	idx.cache.Invalidate(height)

	if idx.store == nil {
		return nil
	}

	if err := idx.store.IndexBlock(ctx, height, blockHash, filePath, fileOffset, fileSize); err != nil {
		idx.logger.Errorf("failed to index block %d (%.16s) [index_write_failed]: %v", height, blockHash, err)
		return err
	}

	return nil
}

// GetBlock returns the parsed block at a height: LRU first, then the durable
// index plus an exact file read, then the sequential fallback scan.
func (idx *Index) GetBlock(ctx context.Context, height uint32) (*model.Block, error) {
	if block, ok := idx.cache.Get(height); ok {
		return block, nil
	}

	if idx.store != nil {
		loc, err := idx.store.GetBlockLocation(ctx, height)
		if err == nil {
			block, readErr := idx.reader.ReadBlockAt(loc.FilePath, loc.FileOffset, loc.FileSize)
			if readErr == nil {
				idx.cache.Put(height, block)
				return block, nil
			}

			idx.logger.Warnf("indexed read failed for block %d, falling back to scan [index_read_failed]: %v", height, readErr)
		} else if !errors.Is(err, errors.ErrBlockNotFound) {
			idx.logger.Warnf("index lookup failed for block %d, falling back to scan [index_lookup_failed]: %v", height, err)
		}
	}

	block, err := idx.scanCache.GetOrSet(height, func() (*model.Block, error) {
		return idx.reader.ScanForHeight(height)
	})
	if err != nil {
		return nil, err
	}

	idx.cache.Put(height, block)

	return block, nil
}

// GetBlockLocation looks up the durable entry by height.
func (idx *Index) GetBlockLocation(ctx context.Context, height uint32) (*Location, error) {
	if idx.store == nil {
		return nil, errors.NewStorageNotStartedError("block index disabled")
	}

	return idx.store.GetBlockLocation(ctx, height)
}

// GetBlockLocationByHash looks up the durable entry by hash.
func (idx *Index) GetBlockLocationByHash(ctx context.Context, blockHash string) (*Location, error) {
	if idx.store == nil {
		return nil, errors.NewStorageNotStartedError("block index disabled")
	}

	return idx.store.GetBlockLocationByHash(ctx, blockHash)
}

// RemoveBlocksFrom deletes all entries at or above startHeight and clears the
// whole LRU rather than invalidating selectively.
func (idx *Index) RemoveBlocksFrom(ctx context.Context, startHeight uint32) (int64, error) {
	idx.cache.Clear()

	if idx.store == nil {
		return 0, nil
	}

	return idx.store.RemoveBlocksFrom(ctx, startHeight)
}

// MaxIndexedHeight returns the highest indexed height, or ok=false when the
// index is empty or disabled.
func (idx *Index) MaxIndexedHeight(ctx context.Context) (uint32, bool, error) {
	if idx.store == nil {
		return 0, false, nil
	}

	return idx.store.MaxIndexedHeight(ctx)
}
