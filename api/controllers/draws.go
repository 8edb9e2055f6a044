package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/api/responses"
	"github.com/veloramarket/loyalty-backend/api/validators"
	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type createDrawRequest struct {
	Category string    `json:"category" validate:"required"`
	DrawDate time.Time `json:"draw_date" validate:"required"`
}

type drawResponse struct {
	ID             uuid.UUID  `json:"id"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	DrawDate       time.Time  `json:"draw_date"`
	WinnerTicketID *uuid.UUID `json:"winner_ticket_id,omitempty"`
	PerformedAt    *time.Time `json:"performed_at,omitempty"`
}

type performDrawResponse struct {
	DrawID             uuid.UUID `json:"draw_id"`
	WinnerTicketNumber string    `json:"winner_ticket_number"`
	WinnerAccountID    uuid.UUID `json:"winner_account_id"`
	PoolSize           int       `json:"pool_size"`
}

func drawView(draw *models.LotteryDraw) drawResponse {
	return drawResponse{
		ID:             draw.ID,
		Category:       string(draw.Category),
		Status:         string(draw.Status),
		DrawDate:       draw.ScheduledAt,
		WinnerTicketID: draw.WinnerTicketID,
		PerformedAt:    draw.PerformedAt,
	}
}

// AdminDrawCreate schedules a new draw.
func AdminDrawCreate(svc draws.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseLotteryCategory(req.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		draw, err := svc.Create(r.Context(), draws.CreateInput{
			Category:    category,
			ScheduledAt: req.DrawDate,
			Actor:       actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drawView(draw))
	}
}

// AdminDrawList lists draws, optionally filtered by status.
func AdminDrawList(svc draws.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.DrawStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseDrawStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
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

		items, err := svc.List(r.Context(), status, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]drawResponse, 0, len(items))
		for i := range items {
			out = append(out, drawView(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{"draws": out})
	}
}

// AdminDrawGet returns one draw.
func AdminDrawGet(svc draws.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawID, err := uuid.Parse(chi.URLParam(r, "drawId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid draw id"))
			return
		}

		draw, err := svc.Get(r.Context(), drawID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drawView(draw))
	}
}

// AdminDrawPerform runs the draw and returns the winner.
func AdminDrawPerform(svc draws.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawID, err := uuid.Parse(chi.URLParam(r, "drawId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid draw id"))
			return
		}

		result, err := svc.Perform(r.Context(), drawID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, performDrawResponse{
			DrawID:             result.Draw.ID,
			WinnerTicketNumber: result.WinnerTicket.TicketNumber,
			WinnerAccountID:    result.WinnerTicket.AccountID,
			PoolSize:           result.PoolSize,
		})
	}
}
