package draws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// Repository manages persistence for lottery draws and their ticket pools.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draw *models.LotteryDraw) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LotteryDraw, error)
	List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error)
	// ListDue returns upcoming draws whose scheduled time has passed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.LotteryDraw, error)
	// ClaimForPerform moves an upcoming draw to in_progress. It reports
	// whether this caller won the transition.
	ClaimForPerform(ctx context.Context, drawID uuid.UUID, expectedVersion int64) (bool, error)
	// RevertToUpcoming undoes a claim that could not finish. Only draws still
	// in_progress with no winner are reverted.
	RevertToUpcoming(ctx context.Context, drawID uuid.UUID) error
	LoadPool(ctx context.Context, drawID uuid.UUID) ([]models.LotteryTicket, error)
	// CommitWinner finishes the draw. It reports whether this caller set the
	// winner; zero rows means another performer already did.
	CommitWinner(ctx context.Context, drawID uuid.UUID, winnerTicketID uuid.UUID, performedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a draws repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, draw *models.LotteryDraw) error {
	return r.db.WithContext(ctx).Create(draw).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LotteryDraw, error) {
	var draw models.LotteryDraw
	if err := r.db.WithContext(ctx).First(&draw, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &draw, nil
}

func (r *repository) List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("scheduled_at ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var draws []models.LotteryDraw
	if err := query.Limit(limit).Offset(offset).Find(&draws).Error; err != nil {
		return nil, err
	}
	return draws, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.LotteryDraw, error) {
	if limit <= 0 {
		limit = 10
	}
	var draws []models.LotteryDraw
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", enums.DrawStatusUpcoming, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&draws).Error
	if err != nil {
		return nil, err
	}
	return draws, nil
}

func (r *repository) ClaimForPerform(ctx context.Context, drawID uuid.UUID, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.LotteryDraw{}).
		Where("id = ? AND status = ? AND version = ?", drawID, enums.DrawStatusUpcoming, expectedVersion).
		Updates(map[string]any{
			"status":  enums.DrawStatusInProgress,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) RevertToUpcoming(ctx context.Context, drawID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.LotteryDraw{}).
		Where("id = ? AND status = ? AND winner_ticket_id IS NULL", drawID, enums.DrawStatusInProgress).
		Updates(map[string]any{
			"status":  enums.DrawStatusUpcoming,
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) LoadPool(ctx context.Context, drawID uuid.UUID) ([]models.LotteryTicket, error) {
	var tickets []models.LotteryTicket
	if err := r.db.WithContext(ctx).
		Where("draw_id = ?", drawID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) CommitWinner(ctx context.Context, drawID uuid.UUID, winnerTicketID uuid.UUID, performedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.LotteryDraw{}).
		Where("id = ? AND status = ? AND winner_ticket_id IS NULL", drawID, enums.DrawStatusInProgress).
		Updates(map[string]any{
			"status":           enums.DrawStatusCompleted,
			"winner_ticket_id": winnerTicketID,
			"performed_at":     performedAt,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
