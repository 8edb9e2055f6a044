package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type testLedgerService struct {
	accrueFn           func(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error)
	adjustFn           func(ctx context.Context, input ledger.AdjustInput) (*ledger.AccountView, error)
	getByIDFn          func(ctx context.Context, accountID uuid.UUID) (*ledger.AccountView, error)
	listTransactionsFn func(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error)
}

func (s *testLedgerService) Accrue(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error) {
	if s.accrueFn != nil {
		return s.accrueFn(ctx, input)
	}
	return nil, nil
}

func (s *testLedgerService) DebitTx(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*ledger.DebitResult, error) {
	return nil, nil
}

func (s *testLedgerService) Adjust(ctx context.Context, input ledger.AdjustInput) (*ledger.AccountView, error) {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, input)
	}
	return nil, nil
}

func (s *testLedgerService) EnsureAccount(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error) {
	return nil, nil
}

func (s *testLedgerService) GetAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error) {
	return nil, nil
}

func (s *testLedgerService) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*ledger.AccountView, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, accountID)
	}
	return nil, nil
}

func (s *testLedgerService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error) {
	if s.listTransactionsFn != nil {
		return s.listTransactionsFn(ctx, accountID, limit, offset)
	}
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func jsonBody(t *testing.T, payload any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestLoyaltyAccrueSuccess(t *testing.T) {
	accountID := uuid.New()
	orderID := uuid.New()
	svc := &testLedgerService{
		accrueFn: func(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error) {
			if input.AccountID == nil || *input.AccountID != accountID {
				t.Fatalf("unexpected account %v", input.AccountID)
			}
			if input.BasePoints != 100 {
				t.Fatalf("unexpected base points %d", input.BasePoints)
			}
			return &ledger.AccrueResult{
				Account: &models.LoyaltyAccount{ID: accountID, Balance: 625},
				Tier:    enums.TierSilver,
				Points:  125,
			}, nil
		},
	}

	body := jsonBody(t, map[string]any{"base_points": 100, "order_id": orderID})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/accounts/"+accountID.String()+"/accrue", body)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyAccrue(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data accrueResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.PointsAdded != 125 {
		t.Fatalf("expected 125 points added, got %d", envelope.Data.PointsAdded)
	}
	if envelope.Data.Tier != "silver" {
		t.Fatalf("expected silver tier, got %s", envelope.Data.Tier)
	}
}

func TestLoyaltyAccrueInvalidAccountID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/accounts/bad/accrue", jsonBody(t, map[string]any{"base_points": 10}))
	req = addRouteParam(req, "accountId", "bad")
	resp := httptest.NewRecorder()
	LoyaltyAccrue(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLoyaltyAccrueRejectsZeroPoints(t *testing.T) {
	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/accounts/"+accountID.String()+"/accrue", jsonBody(t, map[string]any{"base_points": 0}))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyAccrue(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLoyaltyAccountReturnsTier(t *testing.T) {
	accountID := uuid.New()
	svc := &testLedgerService{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*ledger.AccountView, error) {
			return &ledger.AccountView{
				Account:    &models.LoyaltyAccount{ID: id, Balance: 2600},
				Tier:       enums.TierPlatinum,
				Multiplier: "2",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/accounts/"+accountID.String(), nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyAccount(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data accountResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Tier != "platinum" || envelope.Data.Balance != 2600 {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
}

func TestLoyaltyTransactionsPassesPagination(t *testing.T) {
	accountID := uuid.New()
	svc := &testLedgerService{
		listTransactionsFn: func(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error) {
			if limit != 10 || offset != 20 {
				t.Fatalf("unexpected pagination limit=%d offset=%d", limit, offset)
			}
			return []models.LoyaltyTransaction{{ID: uuid.New(), AccountID: id, Kind: enums.LoyaltyTransactionKindAccrual, Points: 50}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/accounts/"+accountID.String()+"/transactions?limit=10&offset=20", nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyTransactions(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestLoyaltyAdjustRequiresReason(t *testing.T) {
	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/loyalty/accounts/"+accountID.String()+"/adjust", jsonBody(t, map[string]any{"points": -50}))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyAdjust(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLoyaltyAdjustSuccess(t *testing.T) {
	accountID := uuid.New()
	svc := &testLedgerService{
		adjustFn: func(ctx context.Context, input ledger.AdjustInput) (*ledger.AccountView, error) {
			if input.Points != -50 || input.Reason != "support credit reversal" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &ledger.AccountView{
				Account:    &models.LoyaltyAccount{ID: accountID, Balance: 450},
				Tier:       enums.TierBronze,
				Multiplier: "1",
			}, nil
		},
	}

	body := jsonBody(t, map[string]any{"points": -50, "reason": "support credit reversal"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/loyalty/accounts/"+accountID.String()+"/adjust", body)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	LoyaltyAdjust(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}
