package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLoyaltyAccount OutboxAggregateType = "loyalty_account"
	AggregateLotteryTicket  OutboxAggregateType = "lottery_ticket"
	AggregateLotteryDraw    OutboxAggregateType = "lottery_draw"
	AggregateReward         OutboxAggregateType = "reward"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLoyaltyAccount,
	AggregateLotteryTicket,
	AggregateLotteryDraw,
	AggregateReward,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPointsAccrued    OutboxEventType = "points_accrued"
	EventPointsRedeemed   OutboxEventType = "points_redeemed"
	EventPointsAdjusted   OutboxEventType = "points_adjusted"
	EventTicketsIssued    OutboxEventType = "tickets_issued"
	EventDrawScheduled    OutboxEventType = "draw_scheduled"
	EventDrawCompleted    OutboxEventType = "draw_completed"
	EventWinnerSelected   OutboxEventType = "winner_selected"
	EventRewardRedeemed   OutboxEventType = "reward_redeemed"
	EventRewardCreated    OutboxEventType = "reward_created"
	EventRewardUpdated    OutboxEventType = "reward_updated"
	EventRewardDeactivate OutboxEventType = "reward_deactivated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPointsAccrued,
	EventPointsRedeemed,
	EventPointsAdjusted,
	EventTicketsIssued,
	EventDrawScheduled,
	EventDrawCompleted,
	EventWinnerSelected,
	EventRewardRedeemed,
	EventRewardCreated,
	EventRewardUpdated,
	EventRewardDeactivate,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
