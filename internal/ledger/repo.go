package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
)

// Repository manages persistence for loyalty accounts and their transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyAccount, error)
	FindAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	// UpdateBalanceCAS updates the balance only when the stored version still
	// matches expectedVersion. It reports whether the swap happened.
	UpdateBalanceCAS(ctx context.Context, accountID uuid.UUID, expectedVersion int64, newBalance int64) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error)
	HasOrderAccrual(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).First(&account, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateBalanceCAS(ctx context.Context, accountID uuid.UUID, expectedVersion int64, newBalance int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.LoyaltyAccount{}).
		Where("id = ? AND version = ?", accountID, expectedVersion).
		Updates(map[string]any{
			"balance": newBalance,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.LoyaltyTransaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) HasOrderAccrual(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LoyaltyTransaction{}).
		Where("account_id = ? AND order_id = ? AND kind = ?", accountID, orderID, enums.LoyaltyTransactionKindAccrual).
		Count(&count).Error
	return count > 0, err
}
