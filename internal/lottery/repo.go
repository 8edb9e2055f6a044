package lottery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// Repository manages persistence for lottery tickets and their draw bindings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindOpenDraw returns the upcoming draw for the category with the
	// nearest scheduled date.
	FindOpenDraw(ctx context.Context, category enums.LotteryCategory) (*models.LotteryDraw, error)
	// LockOrder serializes issuance per order for the duration of the
	// current transaction, so concurrent calls cannot both pass the
	// existing-tickets check.
	LockOrder(ctx context.Context, orderID uuid.UUID) error
	CreateTickets(ctx context.Context, tickets []models.LotteryTicket) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LotteryTicket, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lottery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOpenDraw(ctx context.Context, category enums.LotteryCategory) (*models.LotteryDraw, error) {
	var draw models.LotteryDraw
	err := r.db.WithContext(ctx).
		Where("category = ? AND status = ?", category, enums.DrawStatusUpcoming).
		Order("scheduled_at ASC").
		First(&draw).Error
	if err != nil {
		return nil, err
	}
	return &draw, nil
}

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", orderID.String()).Error
}

func (r *repository) CreateTickets(ctx context.Context, tickets []models.LotteryTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LotteryTicket, error) {
	var tickets []models.LotteryTicket
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	var tickets []models.LotteryTicket
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
