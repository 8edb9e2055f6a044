package enums

import "fmt"

// Tier is the loyalty tier derived from an account's balance. It is computed
// on read and never persisted.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var validTiers = []Tier{
	TierBronze,
	TierSilver,
	TierGold,
	TierPlatinum,
}

// IsValid reports whether the value matches a known loyalty tier.
func (t Tier) IsValid() bool {
	for _, candidate := range validTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTier converts raw input into Tier.
func ParseTier(value string) (Tier, error) {
	for _, candidate := range validTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}
