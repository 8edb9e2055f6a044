package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// LotteryTicket is a single entry in an open draw. TicketNumber carries a
// unique index; a violation on insert means the random generator produced a
// collision and the whole issuance must abort.
type LotteryTicket struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TicketNumber string                `gorm:"column:ticket_number;not null;uniqueIndex:idx_lottery_tickets_ticket_number"`
	AccountID    uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index"`
	OrderID      uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	DrawID       uuid.UUID             `gorm:"column:draw_id;type:uuid;not null;index"`
	Category     enums.LotteryCategory `gorm:"column:category;type:lottery_category_enum;not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
