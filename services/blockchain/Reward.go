package blockchain

import (
	"github.com/xai-blockchain/xai-sub015/settings"
)

// rewardDust is the floor below which a halved reward rounds to zero.
const rewardDust = 1e-8

// Reward implements the block reward schedule: geometric halving with a hard
// emission cap.
type Reward struct {
	settings *settings.Settings
	supply   SupplyTracker
}

// NewReward creates the reward schedule. supply may be nil, in which case no
// cap is applied (tests, historical recomputation).
func NewReward(tSettings *settings.Settings, supply SupplyTracker) *Reward {
	return &Reward{
		settings: tSettings,
		supply:   supply,
	}
}

// BlockReward returns the coinbase reward for a height: the initial reward
// halved once per elapsed halving interval, floored to zero below dust, and
// capped so emission never exceeds max supply.
func (r *Reward) BlockReward(height uint32) float64 {
	halvings := height / r.settings.Chain.HalvingInterval

	// 2^64 halvings is zero for any representable reward.
	if halvings >= 64 {
		return 0
	}

	reward := r.settings.Chain.InitialReward / float64(uint64(1)<<halvings)
	if reward < rewardDust {
		return 0
	}

	if r.supply != nil {
		remaining := r.settings.Chain.MaxSupply - r.supply.CirculatingSupply()
		if remaining <= 0 {
			return 0
		}

		if reward > remaining {
			reward = remaining
		}
	}

	return reward
}
