package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
	"github.com/veloramarket/loyalty-backend/pkg/metrics"
)

const ordersConsumerName = "orders"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type pointsAccruer interface {
	Accrue(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error)
	EnsureAccount(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error)
}

type ticketIssuer interface {
	IssueForOrder(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error)
}

// OrderConfirmedMessage is the inbound payload published by the storefront
// when an order settles.
type OrderConfirmedMessage struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	TotalCents int64             `json:"total_cents"`
	LineItems  []OrderLineItem   `json:"line_items"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// OrderLineItem mirrors the storefront's line item shape.
type OrderLineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	TicketsPerUnit int       `json:"tickets_per_unit"`
	Category       string    `json:"category"`
}

// Consumer turns confirmed orders into point accruals and lottery tickets.
// Delivery is at-least-once; a Redis marker plus per-order ledger and ticket
// checks keep reprocessing harmless.
type Consumer struct {
	ledger            pointsAccruer
	issuer            ticketIssuer
	manager           idempotencyChecker
	logg              *logger.Logger
	loyaltyMetrics    *metrics.LoyaltyMetrics
	centsPerBasePoint int64
}

// NewConsumer builds the order.confirmed consumer.
func NewConsumer(
	ledgerSvc pointsAccruer,
	issuer ticketIssuer,
	manager idempotencyChecker,
	logg *logger.Logger,
	loyaltyMetrics *metrics.LoyaltyMetrics,
	centsPerBasePoint int64,
) (*Consumer, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("ticket issuer required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if centsPerBasePoint <= 0 {
		return nil, fmt.Errorf("cents per base point must be positive")
	}
	return &Consumer{
		ledger:            ledgerSvc,
		issuer:            issuer,
		manager:           manager,
		logg:              logg,
		loyaltyMetrics:    loyaltyMetrics,
		centsPerBasePoint: centsPerBasePoint,
	}, nil
}

// Process handles one raw order.confirmed message.
func (c *Consumer) Process(ctx context.Context, data []byte) error {
	var msg OrderConfirmedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode order confirmed message: %w", err)
	}
	return c.handle(ctx, msg)
}

func (c *Consumer) handle(ctx context.Context, msg OrderConfirmedMessage) error {
	if msg.OrderID == uuid.Nil {
		return fmt.Errorf("order id missing")
	}
	if msg.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	if msg.TotalCents < 0 {
		return fmt.Errorf("negative order total %d", msg.TotalCents)
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"order_id":    msg.OrderID,
		"customer_id": msg.CustomerID,
	})

	already, err := c.manager.CheckAndMarkProcessed(ctx, ordersConsumerName, msg.OrderID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "order already processed")
		return nil
	}

	if err := c.process(ctx, msg); err != nil {
		c.logg.Error(logCtx, "failed to process confirmed order", err)
		_ = c.manager.Delete(ctx, ordersConsumerName, msg.OrderID)
		return err
	}

	c.logg.Info(logCtx, "confirmed order processed")
	return nil
}

func (c *Consumer) process(ctx context.Context, msg OrderConfirmedMessage) error {
	view, err := c.ledger.EnsureAccount(ctx, msg.CustomerID)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	basePoints := msg.TotalCents / c.centsPerBasePoint
	if basePoints > 0 {
		orderID := msg.OrderID
		result, err := c.ledger.Accrue(ctx, ledger.AccrueInput{
			CustomerID: msg.CustomerID,
			OrderID:    &orderID,
			BasePoints: basePoints,
		})
		if err != nil {
			return fmt.Errorf("accrue points: %w", err)
		}
		if !result.Duplicate {
			c.loyaltyMetrics.AddPointsAccrued(string(result.Tier), result.Points)
		}
	}

	items := make([]lottery.LineItem, 0, len(msg.LineItems))
	for _, item := range msg.LineItems {
		items = append(items, lottery.LineItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			TicketsPerUnit: item.TicketsPerUnit,
			Category:       enums.LotteryCategory(item.Category),
		})
	}

	issued, err := c.issuer.IssueForOrder(ctx, lottery.IssueInput{
		AccountID: view.Account.ID,
		OrderID:   msg.OrderID,
		LineItems: items,
	})
	if err != nil {
		return fmt.Errorf("issue tickets: %w", err)
	}
	if !issued.Duplicate {
		counts := make(map[enums.LotteryCategory]int)
		for _, ticket := range issued.Tickets {
			counts[ticket.Category]++
		}
		for category, count := range counts {
			c.loyaltyMetrics.AddTicketsIssued(string(category), count)
		}
	}

	return nil
}
