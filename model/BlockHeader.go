package model

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/xai-blockchain/xai-sub015/errors"
)

// GenesisPreviousHash is the sentinel previous_hash of the genesis block.
const GenesisPreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the length of a hex-encoded block or transaction hash.
const HashLength = 64

// BlockHeader holds the consensus fields of a block. The hash is always
// recomputed from content, never trusted from the wire.
type BlockHeader struct {
	// Height is the position of the block in the chain, genesis at 0.
	Height uint32 `json:"index"`

	// PreviousHash is the hash of the parent block, or the genesis sentinel.
	PreviousHash string `json:"previous_hash"`

	// MerkleRoot commits to the ordered transaction list.
	MerkleRoot string `json:"merkle_root"`

	// Timestamp is the block creation time in unix seconds. Fractional
	// seconds are carried; NaN and Inf are rejected at construction.
	Timestamp float64 `json:"timestamp"`

	// Difficulty is the number of leading hex zeros the block hash must have.
	Difficulty uint32 `json:"difficulty"`

	// Nonce is the proof-of-work counter.
	Nonce uint64 `json:"nonce"`

	// Version of the block format.
	Version uint32 `json:"version"`

	// Signature over the header hash, optional.
	Signature string `json:"signature,omitempty"`

	// MinerPubKey is the key the signature verifies against, optional.
	MinerPubKey string `json:"miner_pubkey,omitempty"`
}

// NewBlockHeader constructs a header, rejecting malformed inputs. Range and
// format violations surface here, at construction, never later during
// validation.
func NewBlockHeader(height int64, previousHash, merkleRoot string, timestamp float64, difficulty int64, nonce int64, version uint32) (*BlockHeader, error) {
	if height < 0 {
		return nil, errors.NewInvalidArgumentError("block index must be non-negative, got %d", height)
	}

	if nonce < 0 {
		return nil, errors.NewInvalidArgumentError("nonce must be non-negative, got %d", nonce)
	}

	if difficulty <= 0 {
		return nil, errors.NewInvalidArgumentError("difficulty must be positive, got %d", difficulty)
	}

	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return nil, errors.NewInvalidArgumentError("timestamp must be finite")
	}

	if !isHexHash(previousHash) {
		return nil, errors.NewInvalidArgumentError("previous_hash must be %d hex characters, got %q", HashLength, previousHash)
	}

	if !isHexHash(merkleRoot) {
		return nil, errors.NewInvalidArgumentError("merkle_root must be %d hex characters, got %q", HashLength, merkleRoot)
	}

	return &BlockHeader{
		Height:       uint32(height),
		PreviousHash: previousHash,
		MerkleRoot:   merkleRoot,
		Timestamp:    timestamp,
		Difficulty:   uint32(difficulty),
		Nonce:        uint64(nonce),
		Version:      version,
	}, nil
}

func isHexHash(s string) bool {
	if len(s) != HashLength {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}

// Hash returns the content digest over all consensus fields. The signature
// fields are excluded: the signature signs this hash.
func (bh *BlockHeader) Hash() string {
	var sb strings.Builder

	sb.WriteString(strconv.FormatUint(uint64(bh.Height), 10))
	sb.WriteByte('|')
	sb.WriteString(bh.PreviousHash)
	sb.WriteByte('|')
	sb.WriteString(bh.MerkleRoot)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(bh.Timestamp, 'f', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(bh.Difficulty), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(bh.Nonce, 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(bh.Version), 10))

	sum := sha256.Sum256([]byte(sb.String()))

	return hex.EncodeToString(sum[:])
}

// MeetsDifficulty reports whether the header hash has at least Difficulty
// leading hex zeros.
func (bh *BlockHeader) MeetsDifficulty() bool {
	d := int(bh.Difficulty)
	if d > HashLength {
		return false
	}

	return strings.HasPrefix(bh.Hash(), strings.Repeat("0", d))
}

// IsGenesis reports whether this is the height-0 block.
func (bh *BlockHeader) IsGenesis() bool {
	return bh.Height == 0 && bh.PreviousHash == GenesisPreviousHash
}

// HashPrefix returns the first 16 hex characters of the hash, used in log
// lines.
func (bh *BlockHeader) HashPrefix() string {
	return bh.Hash()[:16]
}
