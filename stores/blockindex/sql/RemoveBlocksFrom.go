package sql

import (
	"context"

	"github.com/xai-blockchain/xai-sub015/errors"
)

// RemoveBlocksFrom bulk-deletes every index entry with height >= startHeight.
// Used on reorg rollback; callers clear the block cache afterwards.
func (s *SQL) RemoveBlocksFrom(ctx context.Context, startHeight uint32) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM block_index WHERE block_index >= $1
	`, int64(startHeight))
	if err != nil {
		return 0, errors.NewStorageError("failed to remove index entries from height %d", startHeight, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewStorageError("failed to count removed index entries", err)
	}

	s.logger.Infof("removed %d block index entries from height %d [index_rollback]", removed, startHeight)

	return removed, nil
}
