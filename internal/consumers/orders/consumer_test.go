package orders

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type fakeIdempotency struct {
	processed map[string]bool
	deletes   int
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{processed: make(map[string]bool)}
}

func (f *fakeIdempotency) key(consumer string, eventID uuid.UUID) string {
	return consumer + ":" + eventID.String()
}

func (f *fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key := f.key(consumer, eventID)
	if f.processed[key] {
		return true, nil
	}
	f.processed[key] = true
	return false, nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	delete(f.processed, f.key(consumer, eventID))
	f.deletes++
	return nil
}

type fakeAccruer struct {
	accountID uuid.UUID
	accruals  []ledger.AccrueInput
	fail      error
}

func (f *fakeAccruer) EnsureAccount(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error) {
	if f.accountID == uuid.Nil {
		f.accountID = uuid.New()
	}
	return &ledger.AccountView{
		Account: &models.LoyaltyAccount{ID: f.accountID, CustomerID: customerID},
		Tier:    enums.TierBronze,
	}, nil
}

func (f *fakeAccruer) Accrue(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.accruals = append(f.accruals, input)
	return &ledger.AccrueResult{
		Account: &models.LoyaltyAccount{ID: f.accountID, CustomerID: input.CustomerID},
		Tier:    enums.TierBronze,
		Points:  input.BasePoints,
	}, nil
}

type fakeIssuer struct {
	issues []lottery.IssueInput
}

func (f *fakeIssuer) IssueForOrder(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error) {
	f.issues = append(f.issues, input)
	var tickets []models.LotteryTicket
	for _, item := range input.LineItems {
		if item.TicketsPerUnit <= 0 || item.Category == "" {
			continue
		}
		for i := 0; i < item.Quantity*item.TicketsPerUnit; i++ {
			tickets = append(tickets, models.LotteryTicket{
				ID:        uuid.New(),
				AccountID: input.AccountID,
				OrderID:   input.OrderID,
				Category:  item.Category,
			})
		}
	}
	return &lottery.IssueResult{Tickets: tickets}, nil
}

func newTestConsumer(t *testing.T, accruer *fakeAccruer, issuer *fakeIssuer, store *fakeIdempotency) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	consumer, err := NewConsumer(accruer, issuer, store, logg, nil, 100)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func confirmedMessage(t *testing.T, orderID, customerID uuid.UUID, totalCents int64, items []OrderLineItem) []byte {
	t.Helper()
	raw, err := json.Marshal(OrderConfirmedMessage{
		OrderID:    orderID,
		CustomerID: customerID,
		TotalCents: totalCents,
		LineItems:  items,
	})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return raw
}

func TestProcessAccruesAndIssues(t *testing.T) {
	accruer := &fakeAccruer{}
	issuer := &fakeIssuer{}
	consumer := newTestConsumer(t, accruer, issuer, newFakeIdempotency())

	orderID, customerID := uuid.New(), uuid.New()
	raw := confirmedMessage(t, orderID, customerID, 2550, []OrderLineItem{
		{ProductID: uuid.New(), Quantity: 2, TicketsPerUnit: 3, Category: "golden"},
	})
	if err := consumer.Process(context.Background(), raw); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(accruer.accruals) != 1 {
		t.Fatalf("expected one accrual, got %d", len(accruer.accruals))
	}
	// 2550 cents at 100 cents per point rounds down
	if accruer.accruals[0].BasePoints != 25 {
		t.Fatalf("expected 25 base points, got %d", accruer.accruals[0].BasePoints)
	}
	if accruer.accruals[0].OrderID == nil || *accruer.accruals[0].OrderID != orderID {
		t.Fatal("accrual not bound to the order")
	}
	if len(issuer.issues) != 1 {
		t.Fatalf("expected one issuance, got %d", len(issuer.issues))
	}
	if issuer.issues[0].AccountID != accruer.accountID {
		t.Fatal("issuance not bound to the resolved account")
	}
}

func TestProcessSkipsAccrualBelowOnePoint(t *testing.T) {
	accruer := &fakeAccruer{}
	issuer := &fakeIssuer{}
	consumer := newTestConsumer(t, accruer, issuer, newFakeIdempotency())

	raw := confirmedMessage(t, uuid.New(), uuid.New(), 99, nil)
	if err := consumer.Process(context.Background(), raw); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(accruer.accruals) != 0 {
		t.Fatalf("expected no accrual for 99 cents, got %d", len(accruer.accruals))
	}
	if len(issuer.issues) != 1 {
		t.Fatal("ticket issuance should still run")
	}
}

func TestProcessIsIdempotentPerOrder(t *testing.T) {
	accruer := &fakeAccruer{}
	issuer := &fakeIssuer{}
	consumer := newTestConsumer(t, accruer, issuer, newFakeIdempotency())

	raw := confirmedMessage(t, uuid.New(), uuid.New(), 1000, nil)
	if err := consumer.Process(context.Background(), raw); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if err := consumer.Process(context.Background(), raw); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if len(accruer.accruals) != 1 {
		t.Fatalf("redelivery must not accrue again, got %d accruals", len(accruer.accruals))
	}
}

func TestProcessReleasesMarkerOnFailure(t *testing.T) {
	accruer := &fakeAccruer{fail: context.DeadlineExceeded}
	issuer := &fakeIssuer{}
	store := newFakeIdempotency()
	consumer := newTestConsumer(t, accruer, issuer, store)

	raw := confirmedMessage(t, uuid.New(), uuid.New(), 1000, nil)
	if err := consumer.Process(context.Background(), raw); err == nil {
		t.Fatal("expected processing failure")
	}
	if store.deletes != 1 {
		t.Fatalf("expected the idempotency marker to be released, deletes=%d", store.deletes)
	}

	// next delivery succeeds after the upstream recovers
	accruer.fail = nil
	if err := consumer.Process(context.Background(), raw); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(accruer.accruals) != 1 {
		t.Fatalf("expected one successful accrual, got %d", len(accruer.accruals))
	}
}

func TestProcessRejectsMalformedMessage(t *testing.T) {
	consumer := newTestConsumer(t, &fakeAccruer{}, &fakeIssuer{}, newFakeIdempotency())

	if err := consumer.Process(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
	raw := confirmedMessage(t, uuid.Nil, uuid.New(), 1000, nil)
	if err := consumer.Process(context.Background(), raw); err == nil {
		t.Fatal("expected missing order id error")
	}
}
