package blockvalidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-blockchain/xai-sub015/errors"
	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/services/blockvalidation"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

func newEngine(t *testing.T, liveBlocks int) (*blockvalidation.Engine, *settings.Settings) {
	t.Helper()

	fx := newForkFixture(t, liveBlocks, nil)

	logger := ulogger.TestLogger{}
	rules := blockchain.NewRules(logger, fx.settings, nil, nil)
	validator := blockvalidation.NewValidator(logger, fx.settings, rules, nil)

	return blockvalidation.NewEngine(logger, validator, rules, fx.sm, fx.resolver), fx.settings
}

func TestHandleIncomingBlockExtendsTip(t *testing.T) {
	engine, _ := newEngine(t, 3)
	tip := engine.State().Chain().Tip()

	next := mineBranch(tip, 1, 650)[0]

	changed, err := engine.HandleIncomingBlock(context.Background(), next)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, next.Hash(), engine.State().Chain().Tip().Hash())
}

func TestHandleIncomingBlockRejectsOverpayingCoinbase(t *testing.T) {
	engine, tSettings := newEngine(t, 3)
	tip := engine.State().Chain().Tip()

	ts := tip.Header.Timestamp + 600
	coinbase := model.NewTestCoinbase(tip.Header.Height+1, tSettings.Chain.InitialReward+0.01, ts)
	overpaying := model.MineTestBlock(tip, 1, ts, []*model.Transaction{coinbase})

	changed, err := engine.HandleIncomingBlock(context.Background(), overpaying)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	assert.False(t, changed)
	assert.Equal(t, tip.Hash(), engine.State().Chain().Tip().Hash())
}

func TestHandleIncomingBlockRoutesForkToResolver(t *testing.T) {
	engine, _ := newEngine(t, 5)

	fork := engine.State().Chain().BlockAtHeight(2)
	orphan := mineBranch(fork, 1, 650)[0]

	// A single block forking below the tip cannot win; it is parked.
	changed, err := engine.HandleIncomingBlock(context.Background(), orphan)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, engine.ForkResolver().OrphanCount())
	assert.Equal(t, 5, engine.State().Chain().Length())
}

func TestHandleIncomingBlockGenesisBootstrap(t *testing.T) {
	engine, _ := newEngine(t, 0)

	ts := float64(time.Now().Unix()) - 600
	genesis := model.MineTestBlock(nil, 1, ts, []*model.Transaction{model.NewTestCoinbase(0, 50, ts)})

	changed, err := engine.HandleIncomingBlock(context.Background(), genesis)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, engine.State().Chain().Length())
}
