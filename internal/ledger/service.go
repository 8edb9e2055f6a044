package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/internal/tiers"
	dbpkg "github.com/veloramarket/loyalty-backend/pkg/db"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/outbox"
	"github.com/veloramarket/loyalty-backend/pkg/outbox/payloads"
)

const defaultMaxRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the points ledger operations.
type Service interface {
	Accrue(ctx context.Context, input AccrueInput) (*AccrueResult, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*DebitResult, error)
	Adjust(ctx context.Context, input AdjustInput) (*AccountView, error)
	EnsureAccount(ctx context.Context, customerID uuid.UUID) (*AccountView, error)
	GetAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*AccountView, error)
	GetAccountByID(ctx context.Context, accountID uuid.UUID) (*AccountView, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	maxRetries int
}

// AccrueInput credits points for a confirmed order. BasePoints is the
// pre-multiplier amount derived from the order total. Either CustomerID or
// AccountID identifies the target; accrual by customer creates the account on
// first use, accrual by account id requires an existing account.
type AccrueInput struct {
	CustomerID uuid.UUID
	AccountID  *uuid.UUID
	OrderID    *uuid.UUID
	BasePoints int64
	Actor      *outbox.ActorRef
}

// AccrueResult reports the applied accrual.
type AccrueResult struct {
	Account     *models.LoyaltyAccount
	Transaction *models.LoyaltyTransaction
	Tier        enums.Tier
	Points      int64
	Duplicate   bool
}

// DebitInput removes points inside a caller-owned transaction.
type DebitInput struct {
	AccountID uuid.UUID
	Points    int64
	RewardID  *uuid.UUID
	Actor     *outbox.ActorRef
}

// DebitResult reports the applied debit.
type DebitResult struct {
	Account     *models.LoyaltyAccount
	Transaction *models.LoyaltyTransaction
}

// AdjustInput applies a manual correction to an account balance.
type AdjustInput struct {
	AccountID uuid.UUID
	Points    int64
	Reason    string
	Actor     *outbox.ActorRef
}

// AccountView pairs an account with its derived tier.
type AccountView struct {
	Account    *models.LoyaltyAccount
	Tier       enums.Tier
	Multiplier string
}

// NewService wires the points ledger with its dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, maxRetries int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     outboxSvc,
		maxRetries: maxRetries,
	}, nil
}

func (s *service) Accrue(ctx context.Context, input AccrueInput) (*AccrueResult, error) {
	if input.CustomerID == uuid.Nil && input.AccountID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.BasePoints <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base points must be positive")
	}

	var result *AccrueResult
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			account, err := s.resolveAccount(ctx, repo, input)
			if err != nil {
				return err
			}

			if input.OrderID != nil {
				seen, err := repo.HasOrderAccrual(ctx, account.ID, *input.OrderID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order accrual")
				}
				if seen {
					result = &AccrueResult{
						Account:   account,
						Tier:      tiers.ForBalance(account.Balance),
						Duplicate: true,
					}
					return nil
				}
			}

			// tier is taken from the balance before this accrual lands
			tier := tiers.ForBalance(account.Balance)
			points := tiers.ApplyMultiplier(input.BasePoints, tier)
			newBalance := account.Balance + points

			swapped, err := repo.UpdateBalanceCAS(ctx, account.ID, account.Version, newBalance)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
			}
			if !swapped {
				return versionConflict()
			}

			txn := &models.LoyaltyTransaction{
				AccountID: account.ID,
				Kind:      enums.LoyaltyTransactionKindAccrual,
				Points:    points,
				OrderID:   input.OrderID,
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record accrual")
			}

			account.Balance = newBalance
			account.Version++

			event := outbox.DomainEvent{
				EventType:     enums.EventPointsAccrued,
				AggregateType: enums.AggregateLoyaltyAccount,
				AggregateID:   account.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.PointsAccruedEvent{
					AccountID:  account.ID,
					CustomerID: account.CustomerID,
					OrderID:    input.OrderID,
					BasePoints: input.BasePoints,
					Points:     points,
					Tier:       tier,
					Balance:    newBalance,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit points accrued")
			}

			result = &AccrueResult{
				Account:     account,
				Transaction: txn,
				Tier:        tier,
				Points:      points,
			}
			return nil
		})
		if err != nil {
			if isVersionConflict(err) {
				continue
			}
			return nil, err
		}
		return result, nil
	}
	return nil, versionConflict()
}

// DebitTx removes points inside the caller's transaction. The caller owns the
// retry loop; a version conflict surfaces as a ConcurrentModify error.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*DebitResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.Points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.FindAccountByID(ctx, input.AccountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	if account.Balance < input.Points {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientPoints, "balance too low for redemption")
	}

	newBalance := account.Balance - input.Points
	swapped, err := repo.UpdateBalanceCAS(ctx, account.ID, account.Version, newBalance)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
	if !swapped {
		return nil, versionConflict()
	}

	txn := &models.LoyaltyTransaction{
		AccountID: account.ID,
		Kind:      enums.LoyaltyTransactionKindRedemption,
		Points:    -input.Points,
		RewardID:  input.RewardID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption")
	}

	account.Balance = newBalance
	account.Version++

	if input.RewardID != nil {
		event := outbox.DomainEvent{
			EventType:     enums.EventPointsRedeemed,
			AggregateType: enums.AggregateLoyaltyAccount,
			AggregateID:   account.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.PointsRedeemedEvent{
				AccountID: account.ID,
				RewardID:  *input.RewardID,
				Points:    input.Points,
				Balance:   newBalance,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit points redeemed")
		}
	}

	return &DebitResult{Account: account, Transaction: txn}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AccountView, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.Points == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment points cannot be zero")
	}

	var view *AccountView
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			account, err := repo.FindAccountByID(ctx, input.AccountID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
			}

			newBalance := account.Balance + input.Points
			if newBalance < 0 {
				return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "adjustment would make balance negative")
			}

			swapped, err := repo.UpdateBalanceCAS(ctx, account.ID, account.Version, newBalance)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
			}
			if !swapped {
				return versionConflict()
			}

			txn := &models.LoyaltyTransaction{
				AccountID: account.ID,
				Kind:      enums.LoyaltyTransactionKindAdjustment,
				Points:    input.Points,
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record adjustment")
			}

			account.Balance = newBalance
			account.Version++

			event := outbox.DomainEvent{
				EventType:     enums.EventPointsAdjusted,
				AggregateType: enums.AggregateLoyaltyAccount,
				AggregateID:   account.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.PointsAdjustedEvent{
					AccountID: account.ID,
					Points:    input.Points,
					Balance:   newBalance,
					Reason:    input.Reason,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit points adjusted")
			}

			view = accountView(account)
			return nil
		})
		if err != nil {
			if isVersionConflict(err) {
				continue
			}
			return nil, err
		}
		return view, nil
	}
	return nil, versionConflict()
}

// EnsureAccount returns the customer's account, creating an empty one when
// none exists yet.
func (s *service) EnsureAccount(ctx context.Context, customerID uuid.UUID) (*AccountView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		account, err := s.findOrCreateAccount(ctx, s.repo, customerID)
		if err != nil {
			if isVersionConflict(err) {
				continue
			}
			return nil, err
		}
		return accountView(account), nil
	}
	return nil, versionConflict()
}

func (s *service) GetAccountByCustomerID(ctx context.Context, customerID uuid.UUID) (*AccountView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	account, err := s.repo.FindAccountByCustomerID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return accountView(account), nil
}

func (s *service) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*AccountView, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return accountView(account), nil
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LoyaltyTransaction, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	txns, err := s.repo.ListTransactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

func (s *service) resolveAccount(ctx context.Context, repo Repository, input AccrueInput) (*models.LoyaltyAccount, error) {
	if input.AccountID != nil {
		account, err := repo.FindAccountByID(ctx, *input.AccountID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
		}
		return account, nil
	}
	return s.findOrCreateAccount(ctx, repo, input.CustomerID)
}

func (s *service) findOrCreateAccount(ctx context.Context, repo Repository, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	account, err := repo.FindAccountByCustomerID(ctx, customerID)
	if err == nil {
		return account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	created := &models.LoyaltyAccount{CustomerID: customerID}
	if err := repo.CreateAccount(ctx, created); err != nil {
		// two writers can race on first accrual; the loser retries and
		// finds the winner's row
		if dbpkg.IsUniqueViolation(err, "idx_loyalty_accounts_customer_id") {
			return nil, versionConflict()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return created, nil
}

func accountView(account *models.LoyaltyAccount) *AccountView {
	tier := tiers.ForBalance(account.Balance)
	return &AccountView{
		Account:    account,
		Tier:       tier,
		Multiplier: tiers.Multiplier(tier).String(),
	}
}

func versionConflict() error {
	return pkgerrors.New(pkgerrors.CodeConcurrentModify, "account was modified concurrently")
}

func isVersionConflict(err error) bool {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code() == pkgerrors.CodeConcurrentModify
	}
	return false
}
