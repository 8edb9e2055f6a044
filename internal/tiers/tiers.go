package tiers

import (
	"github.com/shopspring/decimal"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// Level binds a tier to the balance threshold that unlocks it and the
// multiplier applied to base points while the account holds it.
type Level struct {
	Tier       enums.Tier
	Threshold  int64
	Multiplier decimal.Decimal
}

// levels is ordered by ascending threshold. ForBalance picks the highest
// threshold that does not exceed the balance.
var levels = []Level{
	{Tier: enums.TierBronze, Threshold: 0, Multiplier: decimal.NewFromInt(1)},
	{Tier: enums.TierSilver, Threshold: 500, Multiplier: decimal.RequireFromString("1.25")},
	{Tier: enums.TierGold, Threshold: 1000, Multiplier: decimal.RequireFromString("1.5")},
	{Tier: enums.TierPlatinum, Threshold: 2500, Multiplier: decimal.NewFromInt(2)},
}

// ForBalance returns the tier an account with the given balance holds.
// Balances below the lowest threshold map to bronze.
func ForBalance(balance int64) enums.Tier {
	current := levels[0].Tier
	for _, level := range levels {
		if balance >= level.Threshold {
			current = level.Tier
		}
	}
	return current
}

// Multiplier returns the points multiplier for the given tier. Unknown tiers
// fall back to the bronze multiplier.
func Multiplier(tier enums.Tier) decimal.Decimal {
	for _, level := range levels {
		if level.Tier == tier {
			return level.Multiplier
		}
	}
	return levels[0].Multiplier
}

// ApplyMultiplier scales base points by the tier multiplier and truncates
// toward zero, so 100 base points at silver yields 125.
func ApplyMultiplier(basePoints int64, tier enums.Tier) int64 {
	if basePoints <= 0 {
		return 0
	}
	scaled := decimal.NewFromInt(basePoints).Mul(Multiplier(tier))
	return scaled.IntPart()
}

// Levels returns the full tier table in ascending threshold order.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}
