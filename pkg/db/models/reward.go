package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// Reward is a redeemable catalog entry priced in points.
type Reward struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	Description  string             `gorm:"column:description"`
	CostPoints   int64              `gorm:"column:cost_points;not null"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;type:discount_type_enum;not null"`
	// DiscountValue is cents for fixed discounts and a percentage for
	// percentage discounts.
	DiscountValue decimal.Decimal `gorm:"column:discount_value;type:numeric(12,2);not null"`
	Active        bool            `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
