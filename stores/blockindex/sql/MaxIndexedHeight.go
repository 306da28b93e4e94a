package sql

import (
	"context"
	"database/sql"

	"github.com/xai-blockchain/xai-sub015/errors"
)

// MaxIndexedHeight returns the highest indexed height. The bool is false when
// the index is empty.
func (s *SQL) MaxIndexedHeight(ctx context.Context) (uint32, bool, error) {
	var height sql.NullInt64

	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(block_index) FROM block_index
	`).Scan(&height); err != nil {
		return 0, false, errors.NewStorageError("failed to read max indexed height", err)
	}

	if !height.Valid {
		return 0, false, nil
	}

	return uint32(height.Int64), true, nil
}
