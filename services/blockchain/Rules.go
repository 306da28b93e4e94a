package blockchain

import (
	"github.com/xai-blockchain/xai-sub015/settings"
	"github.com/xai-blockchain/xai-sub015/ulogger"
)

// Rules bundles the pure consensus rules consulted by the validator and the
// state manager.
type Rules struct {
	*Reward
	*Difficulty
}

// NewRules wires the reward schedule and retarget engine. supply and dynamic
// may be nil.
func NewRules(logger ulogger.Logger, tSettings *settings.Settings, supply SupplyTracker, dynamic DynamicAdjuster) *Rules {
	return &Rules{
		Reward:     NewReward(tSettings, supply),
		Difficulty: NewDifficulty(logger, tSettings, dynamic),
	}
}
