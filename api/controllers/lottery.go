package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/api/responses"
	"github.com/veloramarket/loyalty-backend/api/validators"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

type issueTicketsRequest struct {
	AccountID uuid.UUID              `json:"account_id" validate:"required"`
	LineItems []issueLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

type issueLineItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	TicketsPerUnit int       `json:"tickets_per_unit" validate:"min=0"`
	Category       string    `json:"category"`
}

type ticketResponse struct {
	TicketNumber string    `json:"ticket_number"`
	Category     string    `json:"category"`
	DrawID       uuid.UUID `json:"draw_id"`
	OrderID      uuid.UUID `json:"order_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// LotteryIssueTickets mints the lottery tickets earned by a confirmed order.
func LotteryIssueTickets(svc lottery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var req issueTicketsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]lottery.LineItem, 0, len(req.LineItems))
		for _, item := range req.LineItems {
			items = append(items, lottery.LineItem{
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				TicketsPerUnit: item.TicketsPerUnit,
				Category:       enums.LotteryCategory(item.Category),
			})
		}

		result, err := svc.IssueForOrder(r.Context(), lottery.IssueInput{
			AccountID: req.AccountID,
			OrderID:   orderID,
			LineItems: items,
			Actor:     actorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		numbers := make([]string, 0, len(result.Tickets))
		for _, ticket := range result.Tickets {
			numbers = append(numbers, ticket.TicketNumber)
		}
		responses.WriteSuccess(w, map[string]any{
			"tickets":   numbers,
			"duplicate": result.Duplicate,
		})
	}
}

// LotteryAccountTickets lists the tickets held by an account, newest first.
func LotteryAccountTickets(svc lottery.Service, logg *logger.Logger) http.HandlerFunc {
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

		tickets, err := svc.ListAccountTickets(r.Context(), accountID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]ticketResponse, 0, len(tickets))
		for _, ticket := range tickets {
			out = append(out, ticketResponse{
				TicketNumber: ticket.TicketNumber,
				Category:     string(ticket.Category),
				DrawID:       ticket.DrawID,
				OrderID:      ticket.OrderID,
				IssuedAt:     ticket.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"tickets": out})
	}
}
