package blockchain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

func TestCheckpointsRecordOnInterval(t *testing.T) {
	tSettings := settings.NewTestSettings()
	tSettings.Chain.CheckpointInterval = 10

	cp := blockchain.NewCheckpoints(ulogger.TestLogger{}, tSettings)

	_, ok := cp.LastCheckpointHeight()
	assert.False(t, ok)

	require.NoError(t, cp.MaybeCreateCheckpoint(5, "aa"))
	_, ok = cp.LastCheckpointHeight()
	assert.False(t, ok, "off-interval height must not checkpoint")

	require.NoError(t, cp.MaybeCreateCheckpoint(10, "bb"))
	last, ok := cp.LastCheckpointHeight()
	require.True(t, ok)
	assert.Equal(t, uint32(10), last)

	hash, ok := cp.HashAt(10)
	require.True(t, ok)
	assert.Equal(t, "bb", hash)

	_, ok = cp.HashAt(5)
	assert.False(t, ok)
}

func TestCheckpointsNeverAtGenesis(t *testing.T) {
	tSettings := settings.NewTestSettings()
	tSettings.Chain.CheckpointInterval = 10

	cp := blockchain.NewCheckpoints(ulogger.TestLogger{}, tSettings)

	require.NoError(t, cp.MaybeCreateCheckpoint(0, "genesis"))

	_, ok := cp.LastCheckpointHeight()
	assert.False(t, ok)
}

func TestCheckpointsDisabledInterval(t *testing.T) {
	tSettings := settings.NewTestSettings()
	tSettings.Chain.CheckpointInterval = 0

	cp := blockchain.NewCheckpoints(ulogger.TestLogger{}, tSettings)

	require.NoError(t, cp.MaybeCreateCheckpoint(100, "aa"))

	_, ok := cp.LastCheckpointHeight()
	assert.False(t, ok)
}
