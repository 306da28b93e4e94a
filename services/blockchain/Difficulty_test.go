package blockchain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/services/blockchain"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

func newDifficultySettings() *settings.Settings {
	tSettings := settings.NewTestSettings()
	tSettings.Chain.DifficultyAdjustmentInterval = 4
	tSettings.Chain.TargetBlockTime = 600
	tSettings.Chain.MaxDifficultyChangeFactor = 4

	return tSettings
}

func TestNextDifficultyShortHistoryKeepsBaseline(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	chain := model.BuildTestChain(3, 1, 50, 600)

	assert.Equal(t, uint32(7), d.NextDifficulty(chain, 7, false))
}

func TestNextDifficultyOffBoundaryUnchanged(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	chain := model.BuildTestChain(5, 1, 50, 10)

	// Length 5 is not a multiple of the interval, so the fast block times
	// are ignored until the next boundary.
	assert.Equal(t, uint32(3), d.NextDifficulty(chain, 3, false))
}

func TestNextDifficultyRetargetOnFastWindow(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	// 4 blocks spaced 300s: actual 900s vs expected 2400s, ratio 2.667.
	chain := model.BuildTestChain(4, 1, 50, 300)

	assert.Equal(t, uint32(2), d.NextDifficulty(chain, 4, false))
}

func TestNextDifficultyRetargetOnSlowWindow(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	// 4 blocks spaced 1200s: actual 3600s vs expected 2400s, ratio 0.667.
	chain := model.BuildTestChain(4, 1, 50, 1200)

	assert.Equal(t, uint32(6), d.NextDifficulty(chain, 4, false))
}

func TestNextDifficultyClampsChangeFactor(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	// Absurdly fast blocks: the raw ratio is 80 but the clamp holds it at 4.
	chain := model.BuildTestChain(4, 1, 50, 10)

	assert.Equal(t, uint32(2), d.NextDifficulty(chain, 8, false))
}

func TestNextDifficultyFloorsAtOne(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	chain := model.BuildTestChain(4, 1, 50, 10)

	assert.Equal(t, uint32(1), d.NextDifficulty(chain, 1, false))
}

type stubAdjuster struct {
	fire bool
	next uint32
}

func (s *stubAdjuster) ShouldAdjust([]*model.Block) bool { return s.fire }

func (s *stubAdjuster) NextDifficulty([]*model.Block, uint32) uint32 { return s.next }

func TestNextDifficultyDynamicAdjusterPreempts(t *testing.T) {
	adjuster := &stubAdjuster{fire: true, next: 9}
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), adjuster)

	chain := model.BuildTestChain(4, 1, 50, 300)

	// The dynamic adjuster wins even on a retarget boundary.
	assert.Equal(t, uint32(9), d.NextDifficulty(chain, 4, false))

	adjuster.fire = false
	assert.Equal(t, uint32(2), d.NextDifficulty(chain, 4, false))
}

func TestExpectedDifficultyForBlock(t *testing.T) {
	d := blockchain.NewDifficulty(ulogger.TestLogger{}, newDifficultySettings(), nil)

	chain := model.BuildTestChain(5, 1, 50, 600)

	// Genesis has no prior history to recompute from.
	_, ok := d.ExpectedDifficultyForBlock(0, nil)
	assert.False(t, ok)

	// History length must equal the block's index.
	_, ok = d.ExpectedDifficultyForBlock(4, chain[:3])
	assert.False(t, ok)

	expected, ok := d.ExpectedDifficultyForBlock(4, chain[:4])
	assert.True(t, ok)
	assert.Equal(t, chain[3].Header.Difficulty, expected)
}
