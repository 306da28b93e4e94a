package blockchain

import (
	"math"

	"github.com/xai-blockchain/xai-sub015/model"
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// Difficulty implements the interval retarget. Difficulty here is the number
// of leading hex zeros a block hash must carry, so a larger value is harder.
//
// The calculation is a pure function of the supplied chain prefix and
// current difficulty: callers pass any historical prefix to recompute the
// difficulty a past block should have had, independent of live adjuster
// state.
type Difficulty struct {
	logger   ulogger.Logger
	settings *settings.Settings
	dynamic  DynamicAdjuster
}

// NewDifficulty creates the retarget engine. dynamic may be nil.
func NewDifficulty(logger ulogger.Logger, tSettings *settings.Settings, dynamic DynamicAdjuster) *Difficulty {
	return &Difficulty{
		logger:   logger,
		settings: tSettings,
		dynamic:  dynamic,
	}
}

// NextDifficulty returns the difficulty required for the block extending
// chain. When the dynamic adjuster's trigger fires it wins for this call;
// otherwise the interval retarget applies at adjustment boundaries and the
// current difficulty carries over everywhere else.
func (d *Difficulty) NextDifficulty(chain []*model.Block, currentDifficulty uint32, emitLog bool) uint32 {
	if d.dynamic != nil && d.dynamic.ShouldAdjust(chain) {
		next := d.dynamic.NextDifficulty(chain, currentDifficulty)

		if emitLog {
			d.logger.Infof("dynamic difficulty adjustment %d -> %d at height %d [difficulty_dynamic]", currentDifficulty, next, len(chain))
		}

		return next
	}

	interval := int(d.settings.Chain.DifficultyAdjustmentInterval)

	// A history shorter than one adjustment interval keeps the baseline
	// unchanged.
	if len(chain) < interval {
		return currentDifficulty
	}

	// Retarget only at interval boundaries; between them difficulty must
	// not drift.
	if len(chain)%interval != 0 {
		return currentDifficulty
	}

	window := chain[len(chain)-interval:]
	actualTime := window[len(window)-1].Header.Timestamp - window[0].Header.Timestamp

	if actualTime <= 0 {
		actualTime = 1
	}

	expectedTime := float64(interval) * d.settings.Chain.TargetBlockTime

	maxChange := d.settings.Chain.MaxDifficultyChangeFactor
	ratio := expectedTime / actualTime

	if ratio > maxChange {
		ratio = maxChange
	} else if ratio < 1/maxChange {
		ratio = 1 / maxChange
	}

	next := math.Round(float64(currentDifficulty) / ratio)
	if next < 1 {
		next = 1
	}

	if emitLog {
		d.logger.Infof("difficulty retarget at height %d: actual=%.0fs expected=%.0fs ratio=%.3f %d -> %d [difficulty_retarget]",
			len(chain), actualTime, expectedTime, ratio, currentDifficulty, uint32(next))
	}

	return uint32(next)
}

// ExpectedDifficultyForBlock recomputes the difficulty a block at index
// should carry, from the canonical prefix exactly one block shorter. ok is
// false when the history length does not match: callers must treat that as
// "cannot verify yet", never as a rule violation.
func (d *Difficulty) ExpectedDifficultyForBlock(index uint32, history []*model.Block) (uint32, bool) {
	if index == 0 || len(history) != int(index) {
		return 0, false
	}

	current := history[len(history)-1].Header.Difficulty

	return d.NextDifficulty(history, current, false), true
}
