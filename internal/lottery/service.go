package lottery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/veloramarket/loyalty-backend/pkg/db"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	"github.com/veloramarket/loyalty-backend/pkg/enums"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/outbox"
	"github.com/veloramarket/loyalty-backend/pkg/outbox/payloads"
	"github.com/veloramarket/loyalty-backend/pkg/random"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service issues lottery tickets for confirmed orders.
type Service interface {
	IssueForOrder(ctx context.Context, input IssueInput) (*IssueResult, error)
	ListAccountTickets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	prefix    string
	suffixLen int
	suffix    func(int) (string, error)
}

// LineItem carries the ticket entitlement of one order line.
type LineItem struct {
	ProductID      uuid.UUID
	Quantity       int
	TicketsPerUnit int
	Category       enums.LotteryCategory
}

// IssueInput requests ticket issuance for one confirmed order.
type IssueInput struct {
	AccountID uuid.UUID
	OrderID   uuid.UUID
	LineItems []LineItem
	Actor     *outbox.ActorRef
}

// IssueResult reports the tickets bound to the order. Duplicate is set when the
// order already had tickets and the existing ones are returned unchanged.
type IssueResult struct {
	Tickets   []models.LotteryTicket
	Duplicate bool
}

// NewService wires the ticket issuer. prefix and suffixLen control the minted
// ticket number format.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, prefix string, suffixLen int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lottery repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("ticket prefix required")
	}
	if suffixLen <= 0 {
		return nil, fmt.Errorf("ticket suffix length must be positive")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		prefix:    prefix,
		suffixLen: suffixLen,
		suffix:    random.TicketSuffix,
	}, nil
}

// IssueForOrder mints quantity times tickets_per_unit tickets per eligible line
// item and binds each to the open draw of its category. The whole issuance is
// one transaction; a missing draw for any category fails all of it.
func (s *service) IssueForOrder(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	counts, err := ticketCounts(input.LineItems)
	if err != nil {
		return nil, err
	}

	var result *IssueResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.LockOrder(ctx, input.OrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		existing, err := repo.ListByOrder(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing tickets")
		}
		if len(existing) > 0 {
			result = &IssueResult{Tickets: existing, Duplicate: true}
			return nil
		}
		if len(counts) == 0 {
			result = &IssueResult{}
			return nil
		}

		var all []models.LotteryTicket
		for _, category := range orderedCategories(counts) {
			draw, err := repo.FindOpenDraw(ctx, category)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNoOpenDraw, fmt.Sprintf("no open draw for category %q", category))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open draw")
			}

			tickets := make([]models.LotteryTicket, 0, counts[category])
			numbers := make([]string, 0, counts[category])
			for i := 0; i < counts[category]; i++ {
				number, err := s.mintNumber()
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint ticket number")
				}
				tickets = append(tickets, models.LotteryTicket{
					TicketNumber: number,
					AccountID:    input.AccountID,
					OrderID:      input.OrderID,
					DrawID:       draw.ID,
					Category:     category,
				})
				numbers = append(numbers, number)
			}

			if err := repo.CreateTickets(ctx, tickets); err != nil {
				if dbpkg.IsUniqueViolation(err, "idx_lottery_tickets_ticket_number") {
					return pkgerrors.Wrap(pkgerrors.CodeDuplicateTicket, err, "ticket number collision")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert tickets")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventTicketsIssued,
				AggregateType: enums.AggregateLotteryTicket,
				AggregateID:   input.OrderID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.TicketsIssuedEvent{
					AccountID:     input.AccountID,
					OrderID:       input.OrderID,
					Category:      category,
					DrawID:        draw.ID,
					TicketNumbers: numbers,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit tickets issued")
			}

			all = append(all, tickets...)
		}

		result = &IssueResult{Tickets: all}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListAccountTickets(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LotteryTicket, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	tickets, err := s.repo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return tickets, nil
}

func (s *service) mintNumber() (string, error) {
	suffix, err := s.suffix(s.suffixLen)
	if err != nil {
		return "", err
	}
	return s.prefix + suffix, nil
}

// ticketCounts aggregates line items into per-category ticket totals. Items
// without a ticket entitlement are skipped; a named but unknown category is a
// validation failure.
func ticketCounts(items []LineItem) (map[enums.LotteryCategory]int, error) {
	counts := make(map[enums.LotteryCategory]int)
	for _, item := range items {
		if item.TicketsPerUnit <= 0 || item.Category == "" {
			continue
		}
		if !item.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid lottery category %q", item.Category))
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		counts[item.Category] += item.Quantity * item.TicketsPerUnit
	}
	return counts, nil
}

// orderedCategories keeps issuance order deterministic across runs.
func orderedCategories(counts map[enums.LotteryCategory]int) []enums.LotteryCategory {
	ordered := []enums.LotteryCategory{
		enums.LotteryCategoryBronze,
		enums.LotteryCategorySilver,
		enums.LotteryCategoryGolden,
	}
	out := make([]enums.LotteryCategory, 0, len(counts))
	for _, category := range ordered {
		if counts[category] > 0 {
			out = append(out, category)
		}
	}
	return out
}
