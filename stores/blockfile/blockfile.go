// Package blockfile stores blocks in append-only flat files, one
// JSON-serialized block per line. The flat files are the authoritative block
// storage: the block index and LRU cache are derived from them and can always
// be rebuilt by re-reading the files.
package blockfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

const filePattern = "blk%05d.dat"

// Store is the flat-file block store. Files rotate every blocksPerFile
// heights so index entries stay within bounded files.
type Store struct {
	mu            sync.Mutex
	logger        ulogger.Logger
	dir           string
	blocksPerFile uint32
}

// New creates the store rooted at dir.
func New(logger ulogger.Logger, dir string, blocksPerFile int) (*Store, error) {
	if blocksPerFile < 1 {
		blocksPerFile = 1000
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create block file directory %s", dir, err)
	}

	return &Store{
		logger:        logger,
		dir:           dir,
		blocksPerFile: uint32(blocksPerFile),
	}, nil
}

func (s *Store) fileForHeight(height uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf(filePattern, height/s.blocksPerFile))
}

// SaveBlockToDisk appends the block to its flat file and returns the location
// of the written line. A failure here is fatal to block acceptance: block
// durability outranks index consistency.
func (s *Store) SaveBlockToDisk(block *model.Block) (filePath string, fileOffset, fileSize int64, err error) {
	raw, err := block.Bytes()
	if err != nil {
		return "", 0, 0, errors.NewStorageError("failed to serialize block %d", block.Header.Height, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath = s.fileForHeight(block.Header.Height)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", 0, 0, errors.NewStorageError("failed to open block file %s", filePath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", 0, 0, errors.NewStorageError("failed to stat block file %s", filePath, err)
	}

	fileOffset = stat.Size()

	if _, err = f.Write(append(raw, '\n')); err != nil {
		return "", 0, 0, errors.NewStorageError("failed to append block %d to %s", block.Header.Height, filePath, err)
	}

	if err = f.Sync(); err != nil {
		return "", 0, 0, errors.NewStorageError("failed to sync block file %s", filePath, err)
	}

	return filePath, fileOffset, int64(len(raw)), nil
}

// ReadBlockAt reads one serialized block at an exact file location.
func (s *Store) ReadBlockAt(filePath string, fileOffset, fileSize int64) (*model.Block, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.NewStorageError("failed to open block file %s", filePath, err)
	}
	defer f.Close()

	raw := make([]byte, fileSize)
	if _, err = f.ReadAt(raw, fileOffset); err != nil {
		return nil, errors.NewStorageError("failed to read block at %s:%d", filePath, fileOffset, err)
	}

	return model.NewBlockFromBytes(raw)
}

// LoadBlockFromDisk returns the block at a height via a sequential scan.
func (s *Store) LoadBlockFromDisk(height uint32) (*model.Block, error) {
	return s.ScanForHeight(height)
}

// ScanForHeight sequentially scans the flat files for a height. This is the
// authoritative fallback when the index misses.
func (s *Store) ScanForHeight(height uint32) (*model.Block, error) {
	files, err := s.blockFiles()
	if err != nil {
		return nil, err
	}

	for _, filePath := range files {
		block, err := s.scanFile(filePath, height)
		if err != nil {
			return nil, err
		}

		if block != nil {
			return block, nil
		}
	}

	return nil, errors.NewBlockNotFoundError("no block at height %d", height)
}

func (s *Store) scanFile(filePath string, height uint32) (*model.Block, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.NewStorageError("failed to open block file %s", filePath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		block, err := model.NewBlockFromBytes(line)
		if err != nil {
			s.logger.Warnf("skipping unparseable line in %s [blockfile_corrupt_line]: %v", filePath, err)
			continue
		}

		if block.Header.Height == height {
			return block, nil
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, errors.NewStorageError("failed to scan block file %s", filePath, err)
	}

	return nil, nil
}

// HandleReorg removes every stored block with height >= startHeight: the file
// containing the fork point is rewritten without the removed blocks and later
// files are deleted.
func (s *Store) HandleReorg(startHeight uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.blockFiles()
	if err != nil {
		return err
	}

	boundary := s.fileForHeight(startHeight)

	for _, filePath := range files {
		if filePath > boundary {
			if err = os.Remove(filePath); err != nil {
				return errors.NewStorageError("failed to remove block file %s", filePath, err)
			}

			continue
		}

		if filePath == boundary {
			if err = s.truncateFile(filePath, startHeight); err != nil {
				return err
			}
		}
	}

	s.logger.Infof("truncated block files from height %d [blockfile_reorg]", startHeight)

	return nil
}

func (s *Store) truncateFile(filePath string, startHeight uint32) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.NewStorageError("failed to open block file %s", filePath, err)
	}

	var kept bytes.Buffer

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		block, parseErr := model.NewBlockFromBytes(line)
		if parseErr != nil || block.Header.Height < startHeight {
			kept.Write(line)
			kept.WriteByte('\n')
		}
	}

	scanErr := scanner.Err()
	_ = f.Close()

	if scanErr != nil {
		return errors.NewStorageError("failed to scan block file %s", filePath, scanErr)
	}

	if kept.Len() == 0 {
		if err = os.Remove(filePath); err != nil {
			return errors.NewStorageError("failed to remove emptied block file %s", filePath, err)
		}

		return nil
	}

	tmpPath := filePath + ".tmp"
	if err = os.WriteFile(tmpPath, kept.Bytes(), 0o644); err != nil {
		return errors.NewStorageError("failed to write truncated block file %s", tmpPath, err)
	}

	if err = os.Rename(tmpPath, filePath); err != nil {
		return errors.NewStorageError("failed to replace block file %s", filePath, err)
	}

	return nil
}

func (s *Store) blockFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, io.EOF) || os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.NewStorageError("failed to list block files in %s", s.dir, err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var n int
		if _, err := fmt.Sscanf(entry.Name(), filePattern, &n); err != nil {
			continue
		}

		files = append(files, filepath.Join(s.dir, entry.Name()))
	}

	sort.Strings(files)

	return files, nil
}
