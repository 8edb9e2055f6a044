package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloramarket/loyalty-backend/api/responses"
	"github.com/veloramarket/loyalty-backend/api/validators"
	"github.com/veloramarket/loyalty-backend/internal/rewards"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type rewardResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CostPoints    int64     `json:"cost_points"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	Active        bool      `json:"active"`
}

type redeemRequest struct {
	AccountID     uuid.UUID `json:"account_id" validate:"required"`
	RewardID      uuid.UUID `json:"reward_id" validate:"required"`
	SubtotalCents *int64    `json:"order_subtotal_cents,omitempty"`
}

type redeemResponse struct {
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	DiscountCents int64  `json:"discount_cents"`
	Balance       int64  `json:"balance"`
}

type createRewardRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=2000"`
	CostPoints    int64  `json:"cost_points" validate:"required,min=1"`
	DiscountType  string `json:"discount_type" validate:"required"`
	DiscountValue string `json:"discount_value" validate:"required"`
}

type updateRewardRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	CostPoints    *int64  `json:"cost_points,omitempty"`
	DiscountType  *string `json:"discount_type,omitempty"`
	DiscountValue *string `json:"discount_value,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

func rewardView(reward *models.Reward) rewardResponse {
	return rewardResponse{
		ID:            reward.ID,
		Name:          reward.Name,
		Description:   reward.Description,
		CostPoints:    reward.CostPoints,
		DiscountType:  string(reward.DiscountType),
		DiscountValue: reward.DiscountValue.String(),
		Active:        reward.Active,
	}
}

// RewardsList returns the active reward catalog.
func RewardsList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]rewardResponse, 0, len(items))
		for i := range items {
			out = append(out, rewardView(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{"rewards": out})
	}
}

// LoyaltyRedeem exchanges points for a catalog discount.
func LoyaltyRedeem(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req redeemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Redeem(r.Context(), rewards.RedeemInput{
			AccountID:     req.AccountID,
			RewardID:      req.RewardID,
			SubtotalCents: req.SubtotalCents,
			Actor:         actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, redeemResponse{
			DiscountType:  string(result.Reward.DiscountType),
			DiscountValue: result.Reward.DiscountValue.String(),
			DiscountCents: result.DiscountCents,
			Balance:       result.Account.Balance,
		})
	}
}

// AdminRewardCreate adds a catalog entry.
func AdminRewardCreate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRewardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(req.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}
		discountValue, err := decimal.NewFromString(req.DiscountValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount value"))
			return
		}

		reward, err := svc.Create(r.Context(), rewards.CreateRewardInput{
			Name:          validators.SanitizeString(req.Name, 200),
			Description:   validators.SanitizeString(req.Description, 2000),
			CostPoints:    req.CostPoints,
			DiscountType:  discountType,
			DiscountValue: discountValue,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rewardView(reward))
	}
}

// AdminRewardUpdate patches a catalog entry.
func AdminRewardUpdate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rewardID, err := uuid.Parse(chi.URLParam(r, "rewardId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward id"))
			return
		}

		var req updateRewardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rewards.UpdateRewardInput{
			CostPoints: req.CostPoints,
			Active:     req.Active,
		}
		if req.Name != nil {
			name := validators.SanitizeString(*req.Name, 200)
			input.Name = &name
		}
		if req.Description != nil {
			description := validators.SanitizeString(*req.Description, 2000)
			input.Description = &description
		}
		if req.DiscountType != nil {
			discountType, err := enums.ParseDiscountType(*req.DiscountType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
				return
			}
			input.DiscountType = &discountType
		}
		if req.DiscountValue != nil {
			discountValue, err := decimal.NewFromString(*req.DiscountValue)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount value"))
				return
			}
			input.DiscountValue = &discountValue
		}

		reward, err := svc.Update(r.Context(), rewardID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rewardView(reward))
	}
}

// AdminRewardDeactivate retires a catalog entry.
func AdminRewardDeactivate(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rewardID, err := uuid.Parse(chi.URLParam(r, "rewardId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reward id"))
			return
		}

		reward, err := svc.Deactivate(r.Context(), rewardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rewardView(reward))
	}
}
