package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// PointsAccruedEvent is emitted after an order credits points to an account.
type PointsAccruedEvent struct {
	AccountID  uuid.UUID  `json:"account_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	BasePoints int64      `json:"base_points"`
	Points     int64      `json:"points"`
	Tier       enums.Tier `json:"tier"`
	Balance    int64      `json:"balance"`
}

// PointsRedeemedEvent is emitted when a reward redemption debits points.
type PointsRedeemedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	RewardID  uuid.UUID `json:"reward_id"`
	Points    int64     `json:"points"`
	Balance   int64     `json:"balance"`
}

// PointsAdjustedEvent is emitted for manual balance corrections.
type PointsAdjustedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	Points    int64     `json:"points"`
	Balance   int64     `json:"balance"`
	Reason    string    `json:"reason,omitempty"`
}

// TicketsIssuedEvent reports the tickets minted for a confirmed order.
type TicketsIssuedEvent struct {
	AccountID     uuid.UUID             `json:"account_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	Category      enums.LotteryCategory `json:"category"`
	DrawID        uuid.UUID             `json:"draw_id"`
	TicketNumbers []string              `json:"ticket_numbers"`
}

// DrawScheduledEvent announces a newly created draw.
type DrawScheduledEvent struct {
	DrawID      uuid.UUID             `json:"draw_id"`
	Category    enums.LotteryCategory `json:"category"`
	ScheduledAt time.Time             `json:"scheduled_at"`
}

// WinnerSelectedEvent carries the outcome of a completed draw.
type WinnerSelectedEvent struct {
	DrawID         uuid.UUID             `json:"draw_id"`
	Category       enums.LotteryCategory `json:"category"`
	WinnerTicketID uuid.UUID             `json:"winner_ticket_id"`
	TicketNumber   string                `json:"ticket_number"`
	AccountID      uuid.UUID             `json:"account_id"`
	PoolSize       int                   `json:"pool_size"`
	PerformedAt    time.Time             `json:"performed_at"`
}

// DrawCompletedEvent marks the terminal state transition of a draw.
type DrawCompletedEvent struct {
	DrawID      uuid.UUID             `json:"draw_id"`
	Category    enums.LotteryCategory `json:"category"`
	PerformedAt time.Time             `json:"performed_at"`
}

// RewardRedeemedEvent notifies downstream systems that a discount was granted.
type RewardRedeemedEvent struct {
	AccountID     uuid.UUID          `json:"account_id"`
	RewardID      uuid.UUID          `json:"reward_id"`
	RewardName    string             `json:"reward_name"`
	CostPoints    int64              `json:"cost_points"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue string             `json:"discount_value"`
}

// RewardChangedEvent covers catalog create/update/deactivate notifications.
type RewardChangedEvent struct {
	RewardID   uuid.UUID `json:"reward_id"`
	Name       string    `json:"name"`
	CostPoints int64     `json:"cost_points"`
	Active     bool      `json:"active"`
}
