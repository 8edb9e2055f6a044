package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// LotteryDraw groups tickets of one category and records the winning ticket
// once the draw has been performed. Version backs the upcoming to in_progress
// compare-and-set so only one worker runs a given draw.
type LotteryDraw struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category       enums.LotteryCategory `gorm:"column:category;type:lottery_category_enum;not null"`
	Status         enums.DrawStatus      `gorm:"column:status;type:draw_status_enum;not null;default:'upcoming'"`
	ScheduledAt    time.Time             `gorm:"column:scheduled_at;not null"`
	WinnerTicketID *uuid.UUID            `gorm:"column:winner_ticket_id;type:uuid"`
	PerformedAt    *time.Time            `gorm:"column:performed_at"`
	Version        int64                 `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
