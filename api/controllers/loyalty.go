package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/api/responses"
	"github.com/veloramarket/loyalty-backend/api/validators"
	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/tiers"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type accrueRequest struct {
	BasePoints int64      `json:"base_points" validate:"required,min=1"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
}

type accountResponse struct {
	AccountID  uuid.UUID `json:"account_id"`
	Balance    int64     `json:"balance"`
	Tier       string    `json:"tier"`
	Multiplier string    `json:"multiplier"`
}

type accrueResponse struct {
	accountResponse
	PointsAdded int64 `json:"points_added"`
	Duplicate   bool  `json:"duplicate,omitempty"`
}

type transactionResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Points    int64      `json:"points"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	RewardID  *uuid.UUID `json:"reward_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type adjustRequest struct {
	Points int64  `json:"points" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// LoyaltyAccrue credits points to an account for a confirmed order.
func LoyaltyAccrue(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		var req accrueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Accrue(r.Context(), ledger.AccrueInput{
			AccountID:  &accountID,
			OrderID:    req.OrderID,
			BasePoints: req.BasePoints,
			Actor:      actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accrueResponse{
			accountResponse: accountResponse{
				AccountID:  result.Account.ID,
				Balance:    result.Account.Balance,
				Tier:       string(result.Tier),
				Multiplier: tiers.Multiplier(result.Tier).String(),
			},
			PointsAdded: result.Points,
			Duplicate:   result.Duplicate,
		})
	}
}

// LoyaltyAccount returns the account balance and derived tier.
func LoyaltyAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		view, err := svc.GetAccountByID(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountResponse{
			AccountID:  view.Account.ID,
			Balance:    view.Account.Balance,
			Tier:       string(view.Tier),
			Multiplier: view.Multiplier,
		})
	}
}

// LoyaltyTransactions returns the account's transaction history, newest first.
func LoyaltyTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.ListTransactions(r.Context(), accountID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]transactionResponse, 0, len(txns))
		for _, txn := range txns {
			out = append(out, transactionResponse{
				ID:        txn.ID,
				Kind:      string(txn.Kind),
				Points:    txn.Points,
				OrderID:   txn.OrderID,
				RewardID:  txn.RewardID,
				CreatedAt: txn.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"transactions": out})
	}
}

// LoyaltyAdjust applies a manual balance correction.
func LoyaltyAdjust(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Adjust(r.Context(), ledger.AdjustInput{
			AccountID: accountID,
			Points:    req.Points,
			Reason:    req.Reason,
			Actor:     actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountResponse{
			AccountID:  view.Account.ID,
			Balance:    view.Account.Balance,
			Tier:       string(view.Tier),
			Multiplier: view.Multiplier,
		})
	}
}
