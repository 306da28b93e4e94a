package sql

import (
	"context"

	"github.com/xai-blockchain/xai-sub015/stores/blockindex"
)

// GetBlockLocationByHash looks up a block's file location via the secondary
// hash index.
func (s *SQL) GetBlockLocationByHash(ctx context.Context, blockHash string) (*blockindex.Location, error) {
	q := `
		SELECT
		 b.block_index
		,b.block_hash
		,b.file_path
		,b.file_offset
		,b.file_size
		,b.indexed_at
		FROM block_index b
		WHERE b.block_hash = $1
	`

	return s.scanLocation(s.db.QueryRowContext(ctx, q, blockHash))
}
