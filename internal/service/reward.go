package service

import "math"

// ubuntuBonusRate is the communal bonus applied on top of every reward,
// proportional to the unmultiplied base.
const ubuntuBonusRate = 0.10

// RewardCalculator converts value scores into token rewards. Pure and
// deterministic: equal (score, multiplier) inputs yield equal rewards.
type RewardCalculator struct {
	// BaseRate is the token amount granted for a perfect score of 100.
	BaseRate float64
}

func NewRewardCalculator(baseRate float64) *RewardCalculator {
	return &RewardCalculator{BaseRate: baseRate}
}

// Reward computes round(base*multiplier + base*0.10) where
// base = score/100 * BaseRate.
func (r *RewardCalculator) Reward(score, multiplier float64) int64 {
	base := score / 100 * r.BaseRate
	bonus := base * ubuntuBonusRate
	return int64(math.Round(base*multiplier + bonus))
}
