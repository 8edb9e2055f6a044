package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
)

type testLotteryService struct {
	issueFn func(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error)
	listFn  func(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error)
}

func (s *testLotteryService) IssueForOrder(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error) {
	if s.issueFn != nil {
		return s.issueFn(ctx, input)
	}
	return nil, nil
}

func (s *testLotteryService) ListAccountTickets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error) {
	if s.listFn != nil {
		return s.listFn(ctx, accountID, limit, offset)
	}
	return nil, nil
}

func TestLotteryIssueTicketsSuccess(t *testing.T) {
	orderID := uuid.New()
	accountID := uuid.New()
	svc := &testLotteryService{
		issueFn: func(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error) {
			if input.OrderID != orderID || input.AccountID != accountID {
				t.Fatalf("unexpected input %+v", input)
			}
			if len(input.LineItems) != 1 || input.LineItems[0].Category != enums.LotteryCategoryGolden {
				t.Fatalf("unexpected line items %+v", input.LineItems)
			}
			return &lottery.IssueResult{Tickets: []models.LotteryTicket{
				{TicketNumber: "TKT-AAAAAAAAAAAAAA", OrderID: orderID, AccountID: accountID},
				{TicketNumber: "TKT-BBBBBBBBBBBBBB", OrderID: orderID, AccountID: accountID},
			}}, nil
		},
	}

	body := jsonBody(t, map[string]any{
		"account_id": accountID,
		"line_items": []map[string]any{{
			"product_id":       uuid.New(),
			"quantity":         1,
			"tickets_per_unit": 2,
			"category":         "golden",
		}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lottery/orders/"+orderID.String()+"/tickets", body)
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	LotteryIssueTickets(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			Tickets   []string `json:"tickets"`
			Duplicate bool     `json:"duplicate"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Tickets) != 2 || envelope.Data.Duplicate {
		t.Fatalf("unexpected response %+v", envelope.Data)
	}
}

func TestLotteryIssueTicketsInvalidOrderID(t *testing.T) {
	body := jsonBody(t, map[string]any{
		"account_id": uuid.New(),
		"line_items": []map[string]any{{"product_id": uuid.New(), "quantity": 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lottery/orders/bad/tickets", body)
	req = addRouteParam(req, "orderId", "bad")
	resp := httptest.NewRecorder()
	LotteryIssueTickets(&testLotteryService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLotteryIssueTicketsRequiresLineItems(t *testing.T) {
	orderID := uuid.New()
	body := jsonBody(t, map[string]any{"account_id": uuid.New(), "line_items": []map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lottery/orders/"+orderID.String()+"/tickets", body)
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	LotteryIssueTickets(&testLotteryService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLotteryIssueTicketsNoOpenDraw(t *testing.T) {
	orderID := uuid.New()
	svc := &testLotteryService{
		issueFn: func(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNoOpenDraw, "no open draw for category golden")
		},
	}

	body := jsonBody(t, map[string]any{
		"account_id": uuid.New(),
		"line_items": []map[string]any{{
			"product_id":       uuid.New(),
			"quantity":         1,
			"tickets_per_unit": 1,
			"category":         "golden",
		}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lottery/orders/"+orderID.String()+"/tickets", body)
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	LotteryIssueTickets(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestLotteryAccountTicketsSuccess(t *testing.T) {
	accountID := uuid.New()
	svc := &testLotteryService{
		listFn: func(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.LotteryTicket, error) {
			if id != accountID {
				t.Fatalf("unexpected account %s", id)
			}
			return []models.LotteryTicket{{
				TicketNumber: "TKT-CCCCCCCCCCCCCC",
				AccountID:    id,
				Category:     enums.LotteryCategoryBronze,
				DrawID:       uuid.New(),
				OrderID:      uuid.New(),
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lottery/accounts/"+accountID.String()+"/tickets", nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LotteryAccountTickets(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Tickets []ticketResponse `json:"tickets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Tickets) != 1 || envelope.Data.Tickets[0].Category != "bronze" {
		t.Fatalf("unexpected tickets %+v", envelope.Data.Tickets)
	}
}
