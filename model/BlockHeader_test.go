package model

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/errors"
)

func TestNewBlockHeaderRejectsMalformedInput(t *testing.T) {
	merkle := strings.Repeat("a", 64)

	tests := []struct {
		name       string
		height     int64
		prevHash   string
		merkle     string
		timestamp  float64
		difficulty int64
		nonce      int64
	}{
		{"negative index", -1, GenesisPreviousHash, merkle, 1000, 1, 0},
		{"negative nonce", 0, GenesisPreviousHash, merkle, 1000, 1, -1},
		{"zero difficulty", 0, GenesisPreviousHash, merkle, 1000, 0, 0},
		{"negative difficulty", 0, GenesisPreviousHash, merkle, 1000, -2, 0},
		{"NaN timestamp", 0, GenesisPreviousHash, merkle, math.NaN(), 1, 0},
		{"Inf timestamp", 0, GenesisPreviousHash, merkle, math.Inf(1), 1, 0},
		{"short previous hash", 1, "abcd", merkle, 1000, 1, 0},
		{"non-hex previous hash", 1, strings.Repeat("z", 64), merkle, 1000, 1, 0},
		{"bad merkle root", 0, GenesisPreviousHash, "xyz", 1000, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBlockHeader(tt.height, tt.prevHash, tt.merkle, tt.timestamp, tt.difficulty, tt.nonce, 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
		})
	}
}

func TestNewBlockHeaderValid(t *testing.T) {
	bh, err := NewBlockHeader(0, GenesisPreviousHash, strings.Repeat("a", 64), 1700000000.5, 2, 12345, 1)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), bh.Height)
	assert.True(t, bh.IsGenesis())
	assert.Len(t, bh.Hash(), HashLength)
}

func TestHashIsDeterministicAndContentSensitive(t *testing.T) {
	bh, err := NewBlockHeader(5, strings.Repeat("b", 64), strings.Repeat("a", 64), 1700000000, 1, 42, 1)
	require.NoError(t, err)

	h1 := bh.Hash()
	h2 := bh.Hash()
	assert.Equal(t, h1, h2)

	bh.Nonce++
	assert.NotEqual(t, h1, bh.Hash())
}

func TestHashExcludesSignatureFields(t *testing.T) {
	bh, err := NewBlockHeader(5, strings.Repeat("b", 64), strings.Repeat("a", 64), 1700000000, 1, 42, 1)
	require.NoError(t, err)

	h1 := bh.Hash()

	bh.Signature = "deadbeef"
	bh.MinerPubKey = "cafebabe"

	assert.Equal(t, h1, bh.Hash())
}

func TestMeetsDifficulty(t *testing.T) {
	block := MineTestBlock(nil, 2, 1700000000, []*Transaction{NewTestCoinbase(0, 50, 1700000000)})

	assert.True(t, block.Header.MeetsDifficulty())
	assert.True(t, strings.HasPrefix(block.Hash(), "00"))

	// Demanding more zeros than the hash has must fail.
	block.Header.Difficulty = 64
	assert.False(t, block.Header.MeetsDifficulty())
}
