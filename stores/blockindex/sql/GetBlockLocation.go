package sql

import (
	"context"
	"database/sql"
	"time"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/stores/blockindex"
)

// GetBlockLocation looks up a block's file location by height.
func (s *SQL) GetBlockLocation(ctx context.Context, height uint32) (*blockindex.Location, error) {
	q := `
		SELECT
		 b.block_index
		,b.block_hash
		,b.file_path
		,b.file_offset
		,b.file_size
		,b.indexed_at
		FROM block_index b
		WHERE b.block_index = $1
	`

	return s.scanLocation(s.db.QueryRowContext(ctx, q, int64(height)))
}

func (s *SQL) scanLocation(row *sql.Row) (*blockindex.Location, error) {
	var (
		loc       blockindex.Location
		height    int64
		indexedAt string
	)

	if err := row.Scan(
		&height,
		&loc.BlockHash,
		&loc.FilePath,
		&loc.FileOffset,
		&loc.FileSize,
		&indexedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewBlockNotFoundError("block not indexed")
		}

		return nil, errors.NewStorageError("failed to read block index entry", err)
	}

	loc.Height = uint32(height)
	loc.IndexedAt = parseTimestamp(indexedAt)

	return &loc, nil
}

// parseTimestamp accepts the timestamp forms emitted by the sqlite and
// postgres drivers.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
