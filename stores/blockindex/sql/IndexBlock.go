package sql

import (
	"context"

	"github.com/xai-blockchain/xai-sub015/errors"
)

// IndexBlock upserts the location entry for a height. The upsert keys on the
// height primary key so a reorged height is overwritten in place; the stale
// hash row (if any) is removed first so the block_hash unique constraint
// cannot trip.
func (s *SQL) IndexBlock(ctx context.Context, height uint32, blockHash, filePath string, fileOffset, fileSize int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("failed to begin index transaction", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM block_index WHERE block_hash = $1 AND block_index != $2
	`, blockHash, int64(height)); err != nil {
		return errors.NewStorageError("failed to clear stale hash entry for block %s", blockHash, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO block_index (block_index, block_hash, file_path, file_offset, file_size)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (block_index) DO UPDATE SET
		  block_hash = excluded.block_hash
		 ,file_path = excluded.file_path
		 ,file_offset = excluded.file_offset
		 ,file_size = excluded.file_size
		 ,indexed_at = CURRENT_TIMESTAMP
	`, int64(height), blockHash, filePath, fileOffset, fileSize); err != nil {
		return errors.NewStorageError("failed to index block %d (%.16s)", height, blockHash, err)
	}

	if err = tx.Commit(); err != nil {
		return errors.NewStorageError("failed to commit index entry for block %d", height, err)
	}

	return nil
}
