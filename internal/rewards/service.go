package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/outbox"
	"github.com/veloramarket/loyalty-backend/pkg/outbox/payloads"
)

const redeemMaxRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PointsDebiter removes points inside a caller-owned transaction.
type PointsDebiter interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input ledger.DebitInput) (*ledger.DebitResult, error)
}

// Service defines reward catalog management and redemption.
type Service interface {
	Create(ctx context.Context, input CreateRewardInput) (*models.Reward, error)
	Update(ctx context.Context, rewardID uuid.UUID, input UpdateRewardInput) (*models.Reward, error)
	Deactivate(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error)
	Get(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error)
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
	Redeem(ctx context.Context, input RedeemInput) (*RedemptionResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	debiter PointsDebiter
}

// CreateRewardInput describes a new catalog entry.
type CreateRewardInput struct {
	Name          string
	Description   string
	CostPoints    int64
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
}

// UpdateRewardInput carries partial catalog updates.
type UpdateRewardInput struct {
	Name          *string
	Description   *string
	CostPoints    *int64
	DiscountType  *enums.DiscountType
	DiscountValue *decimal.Decimal
	Active        *bool
}

// RedeemInput requests a redemption against the live account balance.
// SubtotalCents is required for percentage rewards.
type RedeemInput struct {
	AccountID     uuid.UUID
	RewardID      uuid.UUID
	SubtotalCents *int64
	Actor         *outbox.ActorRef
}

// RedemptionResult reports the applied redemption.
type RedemptionResult struct {
	Reward        *models.Reward
	Account       *models.LoyaltyAccount
	Transaction   *models.LoyaltyTransaction
	DiscountCents int64
}

// NewService wires the rewards catalog and redemption engine.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, debiter PointsDebiter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if debiter == nil {
		return nil, fmt.Errorf("points debiter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		debiter: debiter,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateRewardInput) (*models.Reward, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward name required")
	}
	if input.CostPoints <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost points must be positive")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", input.DiscountType))
	}
	if input.DiscountValue.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}

	reward := &models.Reward{
		Name:          input.Name,
		Description:   input.Description,
		CostPoints:    input.CostPoints,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		Active:        true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, reward); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reward")
		}
		return s.emitCatalogEvent(ctx, tx, enums.EventRewardCreated, reward)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func (s *service) Update(ctx context.Context, rewardID uuid.UUID, input UpdateRewardInput) (*models.Reward, error) {
	if rewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id required")
	}

	var updated *models.Reward
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reward, err := repo.FindByID(ctx, rewardID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
		}

		if input.Name != nil {
			if *input.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "reward name cannot be empty")
			}
			reward.Name = *input.Name
		}
		if input.Description != nil {
			reward.Description = *input.Description
		}
		if input.CostPoints != nil {
			if *input.CostPoints <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "cost points must be positive")
			}
			reward.CostPoints = *input.CostPoints
		}
		if input.DiscountType != nil {
			if !input.DiscountType.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", *input.DiscountType))
			}
			reward.DiscountType = *input.DiscountType
		}
		if input.DiscountValue != nil {
			if input.DiscountValue.LessThanOrEqual(decimal.Zero) {
				return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
			}
			reward.DiscountValue = *input.DiscountValue
		}
		if input.Active != nil {
			reward.Active = *input.Active
		}

		if err := repo.Save(ctx, reward); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reward")
		}
		updated = reward
		return s.emitCatalogEvent(ctx, tx, enums.EventRewardUpdated, reward)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error) {
	if rewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id required")
	}

	var updated *models.Reward
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reward, err := repo.FindByID(ctx, rewardID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
		}
		if !reward.Active {
			updated = reward
			return nil
		}
		reward.Active = false
		if err := repo.Save(ctx, reward); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate reward")
		}
		updated = reward
		return s.emitCatalogEvent(ctx, tx, enums.EventRewardDeactivate, reward)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error) {
	if rewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id required")
	}
	reward, err := s.repo.FindByID(ctx, rewardID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
	}
	return reward, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	rewards, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rewards")
	}
	return rewards, nil
}

// Redeem validates the reward against the live catalog and debits the account
// atomically. Cost and eligibility are always re-checked inside the
// transaction, never trusted from the request.
func (s *service) Redeem(ctx context.Context, input RedeemInput) (*RedemptionResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.RewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id required")
	}

	var result *RedemptionResult
	for attempt := 0; attempt < redeemMaxRetries; attempt++ {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			reward, err := repo.FindByID(ctx, input.RewardID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeInvalidReward, "reward does not exist")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
			}
			if !reward.Active {
				return pkgerrors.New(pkgerrors.CodeInvalidReward, "reward is no longer available")
			}

			discountCents, err := discountFor(reward, input.SubtotalCents)
			if err != nil {
				return err
			}

			debit, err := s.debiter.DebitTx(ctx, tx, ledger.DebitInput{
				AccountID: input.AccountID,
				Points:    reward.CostPoints,
				RewardID:  &reward.ID,
				Actor:     input.Actor,
			})
			if err != nil {
				return err
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventRewardRedeemed,
				AggregateType: enums.AggregateLoyaltyAccount,
				AggregateID:   debit.Account.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.RewardRedeemedEvent{
					AccountID:     debit.Account.ID,
					RewardID:      reward.ID,
					RewardName:    reward.Name,
					CostPoints:    reward.CostPoints,
					DiscountType:  reward.DiscountType,
					DiscountValue: reward.DiscountValue.String(),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reward redeemed")
			}

			result = &RedemptionResult{
				Reward:        reward,
				Account:       debit.Account,
				Transaction:   debit.Transaction,
				DiscountCents: discountCents,
			}
			return nil
		})
		if err != nil {
			if isConcurrentModify(err) {
				continue
			}
			return nil, err
		}
		return result, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConcurrentModify, "account was modified concurrently")
}

func (s *service) emitCatalogEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, reward *models.Reward) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReward,
		AggregateID:   reward.ID,
		Version:       1,
		Data: payloads.RewardChangedEvent{
			RewardID:   reward.ID,
			Name:       reward.Name,
			CostPoints: reward.CostPoints,
			Active:     reward.Active,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reward change")
	}
	return nil
}

// discountFor converts the catalog entry into a cent amount. Fixed rewards
// carry a currency value, capped at the order subtotal when one is provided;
// percentage rewards apply against the order subtotal with the result
// rounded down.
func discountFor(reward *models.Reward, subtotalCents *int64) (int64, error) {
	if subtotalCents != nil && *subtotalCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order subtotal cannot be negative")
	}
	switch reward.DiscountType {
	case enums.DiscountTypeFixed:
		cents := reward.DiscountValue.Mul(decimal.NewFromInt(100)).IntPart()
		if subtotalCents != nil && cents > *subtotalCents {
			cents = *subtotalCents
		}
		return cents, nil
	case enums.DiscountTypePercentage:
		if subtotalCents == nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "order subtotal required for percentage rewards")
		}
		subtotal := decimal.NewFromInt(*subtotalCents)
		return subtotal.Mul(reward.DiscountValue).Div(decimal.NewFromInt(100)).IntPart(), nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeInvalidReward, fmt.Sprintf("unsupported discount type %q", reward.DiscountType))
	}
}

func isConcurrentModify(err error) bool {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code() == pkgerrors.CodeConcurrentModify
	}
	return false
}
