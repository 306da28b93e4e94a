// Package sql implements the durable block index on sqlite or postgres.
package sql

import (
	"database/sql"
	"net/url"

	"github.com/ordishs/gocore"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/ulogger"
	"github.com/xai-blockchain/xai-sub015/util"
)

const schemaVersion = "1"

// SQL is the SQL-backed block index store.
type SQL struct {
	db     *sql.DB
	engine util.SQLEngine
	logger ulogger.Logger
}

func init() {
	gocore.NewStat("blockindex")
}

// New opens (and if needed bootstraps) the block index at the given store
/// URL. Supported schemes: sqlite, sqlitememory, postgres.
func New(logger ulogger.Logger, storeURL *url.URL, dataFolder string) (*SQL, error) {
	db, err := util.InitSQLDB(logger, storeURL, dataFolder)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	switch engine {
	case util.Postgres:
		if err = createPostgresSchema(db); err != nil {
			return nil, errors.NewStorageError("failed to create postgres schema", err)
		}

	case util.Sqlite, util.SqliteMemory:
		if err = createSqliteSchema(db); err != nil {
			return nil, errors.NewStorageError("failed to create sqlite schema", err)
		}

	default:
		return nil, errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	return &SQL{
		db:     db,
		engine: engine,
		logger: logger,
	}, nil
}

// GetDB exposes the underlying handle for tests.
func (s *SQL) GetDB() *sql.DB {
	return s.db
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func createSqliteSchema(db *sql.DB) error {
	if _, err := db.Exec(`
	  CREATE TABLE IF NOT EXISTS block_index (
	    block_index    BIGINT PRIMARY KEY
	    ,block_hash    TEXT NOT NULL UNIQUE
	    ,file_path     TEXT NOT NULL
	    ,file_offset   BIGINT NOT NULL
	    ,file_size     BIGINT NOT NULL
	    ,indexed_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create block_index table", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_block_index_hash ON block_index (block_hash);`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create idx_block_index_hash index", err)
	}

	if _, err := db.Exec(`
	  CREATE TABLE IF NOT EXISTS index_metadata (
	    key      TEXT PRIMARY KEY
	    ,value   TEXT NOT NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create index_metadata table", err)
	}

	if _, err := db.Exec(`INSERT INTO index_metadata (key, value) VALUES ('schema_version', $1) ON CONFLICT (key) DO NOTHING;`, schemaVersion); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not set schema version", err)
	}

	return nil
}

func createPostgresSchema(db *sql.DB) error {
	if _, err := db.Exec(`
	  CREATE TABLE IF NOT EXISTS block_index (
	    block_index    BIGINT PRIMARY KEY
	    ,block_hash    TEXT NOT NULL UNIQUE
	    ,file_path     TEXT NOT NULL
	    ,file_offset   BIGINT NOT NULL
	    ,file_size     BIGINT NOT NULL
	    ,indexed_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create block_index table", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_block_index_hash ON block_index (block_hash);`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create idx_block_index_hash index", err)
	}

	if _, err := db.Exec(`
	  CREATE TABLE IF NOT EXISTS index_metadata (
	    key      TEXT PRIMARY KEY
	    ,value   TEXT NOT NULL
	  );
	`); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not create index_metadata table", err)
	}

	if _, err := db.Exec(`INSERT INTO index_metadata (key, value) VALUES ('schema_version', $1) ON CONFLICT (key) DO NOTHING;`, schemaVersion); err != nil {
		_ = db.Close()
		return errors.NewStorageError("could not set schema version", err)
	}

	return nil
}
