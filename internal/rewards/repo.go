package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/pkg/db/models"
)

// Repository manages persistence for the reward catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) error
	Save(ctx context.Context, reward *models.Reward) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rewards repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *repository) Save(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Save(reward).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	query := r.db.WithContext(ctx).Order("cost_points ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rewards []models.Reward
	if err := query.Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
