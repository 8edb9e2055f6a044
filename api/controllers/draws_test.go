package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
)

type testDrawsService struct {
	createFn  func(ctx context.Context, input draws.CreateInput) (*models.LotteryDraw, error)
	getFn     func(ctx context.Context, drawID uuid.UUID) (*models.LotteryDraw, error)
	listFn    func(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error)
	performFn func(ctx context.Context, drawID uuid.UUID) (*draws.PerformResult, error)
}

func (s *testDrawsService) Create(ctx context.Context, input draws.CreateInput) (*models.LotteryDraw, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *testDrawsService) Get(ctx context.Context, drawID uuid.UUID) (*models.LotteryDraw, error) {
	if s.getFn != nil {
		return s.getFn(ctx, drawID)
	}
	return nil, nil
}

func (s *testDrawsService) List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error) {
	if s.listFn != nil {
		return s.listFn(ctx, status, limit, offset)
	}
	return nil, nil
}

func (s *testDrawsService) Perform(ctx context.Context, drawID uuid.UUID) (*draws.PerformResult, error) {
	if s.performFn != nil {
		return s.performFn(ctx, drawID)
	}
	return nil, nil
}

func TestAdminDrawCreateSuccess(t *testing.T) {
	drawDate := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	svc := &testDrawsService{
		createFn: func(ctx context.Context, input draws.CreateInput) (*models.LotteryDraw, error) {
			if input.Category != enums.LotteryCategorySilver {
				t.Fatalf("unexpected category %s", input.Category)
			}
			if !input.ScheduledAt.Equal(drawDate) {
				t.Fatalf("unexpected draw date %s", input.ScheduledAt)
			}
			return &models.LotteryDraw{
				ID:          uuid.New(),
				Category:    input.Category,
				Status:      enums.DrawStatusUpcoming,
				ScheduledAt: input.ScheduledAt,
			}, nil
		},
	}

	body := jsonBody(t, map[string]any{"category": "silver", "draw_date": drawDate.Format(time.RFC3339)})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/draws", body)
	resp := httptest.NewRecorder()
	AdminDrawCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data drawResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != "upcoming" {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestAdminDrawCreateRejectsUnknownCategory(t *testing.T) {
	body := jsonBody(t, map[string]any{"category": "diamond", "draw_date": time.Now().Format(time.RFC3339)})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/draws", body)
	resp := httptest.NewRecorder()
	AdminDrawCreate(&testDrawsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminDrawListFiltersByStatus(t *testing.T) {
	svc := &testDrawsService{
		listFn: func(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error) {
			if status == nil || *status != enums.DrawStatusCompleted {
				t.Fatalf("expected completed filter, got %v", status)
			}
			return []models.LotteryDraw{{ID: uuid.New(), Status: enums.DrawStatusCompleted}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/draws?status=completed", nil)
	resp := httptest.NewRecorder()
	AdminDrawList(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAdminDrawListRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/draws?status=finished", nil)
	resp := httptest.NewRecorder()
	AdminDrawList(&testDrawsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminDrawPerformReturnsWinner(t *testing.T) {
	drawID := uuid.New()
	winnerAccountID := uuid.New()
	svc := &testDrawsService{
		performFn: func(ctx context.Context, id uuid.UUID) (*draws.PerformResult, error) {
			if id != drawID {
				t.Fatalf("unexpected draw %s", id)
			}
			return &draws.PerformResult{
				Draw: &models.LotteryDraw{ID: drawID, Status: enums.DrawStatusCompleted},
				WinnerTicket: &models.LotteryTicket{
					TicketNumber: "TKT-DDDDDDDDDDDDDD",
					AccountID:    winnerAccountID,
				},
				PoolSize: 42,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/draws/"+drawID.String()+"/perform", nil)
	req = addRouteParam(req, "drawId", drawID.String())
	resp := httptest.NewRecorder()
	AdminDrawPerform(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data performDrawResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.WinnerTicketNumber != "TKT-DDDDDDDDDDDDDD" {
		t.Fatalf("unexpected winner %s", envelope.Data.WinnerTicketNumber)
	}
	if envelope.Data.WinnerAccountID != winnerAccountID || envelope.Data.PoolSize != 42 {
		t.Fatalf("unexpected response %+v", envelope.Data)
	}
}

func TestAdminDrawPerformNotReady(t *testing.T) {
	drawID := uuid.New()
	svc := &testDrawsService{
		performFn: func(ctx context.Context, id uuid.UUID) (*draws.PerformResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDrawNotReady, "draw date has not arrived")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/draws/"+drawID.String()+"/perform", nil)
	req = addRouteParam(req, "drawId", drawID.String())
	resp := httptest.NewRecorder()
	AdminDrawPerform(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminDrawPerformAlreadyCompleted(t *testing.T) {
	drawID := uuid.New()
	svc := &testDrawsService{
		performFn: func(ctx context.Context, id uuid.UUID) (*draws.PerformResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDrawCompleted, "draw already completed")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/draws/"+drawID.String()+"/perform", nil)
	req = addRouteParam(req, "drawId", drawID.String())
	resp := httptest.NewRecorder()
	AdminDrawPerform(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAdminDrawGetNotFound(t *testing.T) {
	drawID := uuid.New()
	svc := &testDrawsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.LotteryDraw, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draw not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/draws/"+drawID.String(), nil)
	req = addRouteParam(req, "drawId", drawID.String())
	resp := httptest.NewRecorder()
	AdminDrawGet(svc, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
