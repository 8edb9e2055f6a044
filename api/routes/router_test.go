package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/internal/rewards"
	pkgauth "github.com/veloramarket/loyalty-backend/pkg/auth"
	"github.com/veloramarket/loyalty-backend/pkg/config"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubLedgerService struct{}

func (stubLedgerService) Accrue(ctx context.Context, input ledger.AccrueInput) (*ledger.AccrueResult, error) {
	return nil, nil
}

func (stubLedgerService) DebitTx(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*ledger.DebitResult, error) {
	return nil, nil
}

func (stubLedgerService) Adjust(ctx context.Context, input ledger.AdjustInput) (*ledger.AccountView, error) {
	return nil, nil
}

func (stubLedgerService) EnsureAccount(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error) {
	return nil, nil
}

func (stubLedgerService) GetAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*ledger.AccountView, error) {
	return nil, nil
}

func (stubLedgerService) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*ledger.AccountView, error) {
	return &ledger.AccountView{
		Account:    &models.LoyaltyAccount{ID: accountID},
		Tier:       enums.TierBronze,
		Multiplier: "1",
	}, nil
}

func (stubLedgerService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error) {
	return nil, nil
}

type stubRewardsService struct{}

func (stubRewardsService) Create(ctx context.Context, input rewards.CreateRewardInput) (*models.Reward, error) {
	return nil, nil
}

func (stubRewardsService) Update(ctx context.Context, rewardID uuid.UUID, input rewards.UpdateRewardInput) (*models.Reward, error) {
	return nil, nil
}

func (stubRewardsService) Deactivate(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error) {
	return nil, nil
}

func (stubRewardsService) Get(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error) {
	return nil, nil
}

func (stubRewardsService) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	return nil, nil
}

func (stubRewardsService) Redeem(ctx context.Context, input rewards.RedeemInput) (*rewards.RedemptionResult, error) {
	return nil, nil
}

type stubLotteryService struct{}

func (stubLotteryService) IssueForOrder(ctx context.Context, input lottery.IssueInput) (*lottery.IssueResult, error) {
	return &lottery.IssueResult{}, nil
}

func (stubLotteryService) ListAccountTickets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error) {
	return nil, nil
}

type stubDrawsService struct{}

func (stubDrawsService) Create(ctx context.Context, input draws.CreateInput) (*models.LotteryDraw, error) {
	return nil, nil
}

func (stubDrawsService) Get(ctx context.Context, drawID uuid.UUID) (*models.LotteryDraw, error) {
	return &models.LotteryDraw{ID: drawID, Status: enums.DrawStatusUpcoming}, nil
}

func (stubDrawsService) List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error) {
	return nil, nil
}

func (stubDrawsService) Perform(ctx context.Context, drawID uuid.UUID) (*draws.PerformResult, error) {
	return nil, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "veloramarket"
	cfg.JWT.ExpirationMinutes = 15
	return cfg
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, stubLedgerService{}, stubRewardsService{}, stubLotteryService{}, stubDrawsService{})
}

func mintToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Velora-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestMetricsIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAPIAcceptsBearerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAccrueRequiresServiceRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/accounts/"+accountID.String()+"/accrue", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/draws/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleService))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminRoutesAcceptAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/draws/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
