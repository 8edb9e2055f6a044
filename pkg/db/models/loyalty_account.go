package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount holds the running points balance for a customer. Tier is
// derived from Balance on read and never stored. Version backs optimistic
// locking on balance updates.
type LoyaltyAccount struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	Balance    int64     `gorm:"column:balance;not null;default:0"`
	Version    int64     `gorm:"column:version;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
