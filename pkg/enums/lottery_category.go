package enums

import "fmt"

// LotteryCategory maps to the lottery_category_enum enum in Postgres.
type LotteryCategory string

const (
	LotteryCategoryBronze LotteryCategory = "bronze"
	LotteryCategorySilver LotteryCategory = "silver"
	LotteryCategoryGolden LotteryCategory = "golden"
)

var validLotteryCategories = []LotteryCategory{
	LotteryCategoryBronze,
	LotteryCategorySilver,
	LotteryCategoryGolden,
}

// IsValid reports whether the value matches the canonical lottery category enum.
func (c LotteryCategory) IsValid() bool {
	for _, candidate := range validLotteryCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseLotteryCategory converts raw input into LotteryCategory.
func ParseLotteryCategory(value string) (LotteryCategory, error) {
	for _, candidate := range validLotteryCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lottery category %q", value)
}
