package enums

import "fmt"

// LoyaltyTransactionKind maps to the loyalty_transaction_kind_enum enum in Postgres.
type LoyaltyTransactionKind string

const (
	LoyaltyTransactionKindAccrual    LoyaltyTransactionKind = "accrual"
	LoyaltyTransactionKindRedemption LoyaltyTransactionKind = "redemption"
	LoyaltyTransactionKindAdjustment LoyaltyTransactionKind = "adjustment"
)

var validLoyaltyTransactionKinds = []LoyaltyTransactionKind{
	LoyaltyTransactionKindAccrual,
	LoyaltyTransactionKindRedemption,
	LoyaltyTransactionKindAdjustment,
}

// IsValid reports whether the value matches the canonical transaction kind enum.
func (k LoyaltyTransactionKind) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionKind converts raw input into LoyaltyTransactionKind.
func ParseLoyaltyTransactionKind(value string) (LoyaltyTransactionKind, error) {
	for _, candidate := range validLoyaltyTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction kind %q", value)
}
