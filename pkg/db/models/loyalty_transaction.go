package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// LoyaltyTransaction is an immutable ledger entry. Points is positive for
// accruals and negative for redemptions; the account balance always equals
// the sum of its transactions.
type LoyaltyTransaction struct {
	ID        uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID                    `gorm:"column:account_id;type:uuid;not null;index"`
	Kind      enums.LoyaltyTransactionKind `gorm:"column:kind;type:loyalty_transaction_kind_enum;not null"`
	Points    int64                        `gorm:"column:points;not null"`
	OrderID   *uuid.UUID                   `gorm:"column:order_id;type:uuid"`
	RewardID  *uuid.UUID                   `gorm:"column:reward_id;type:uuid"`
	Metadata  json.RawMessage              `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
