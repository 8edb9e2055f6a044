package draws

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service schedules lottery draws and selects winners.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.LotteryDraw, error)
	Get(ctx context.Context, drawID uuid.UUID) (*models.LotteryDraw, error)
	List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error)
	Perform(ctx context.Context, drawID uuid.UUID) (*PerformResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	picker random.IndexPicker
	now    func() time.Time
}

// CreateInput schedules a new draw.
type CreateInput struct {
	Category    enums.LotteryCategory
	ScheduledAt time.Time
	Actor       *outbox.ActorRef
}

// PerformResult reports a completed draw.
type PerformResult struct {
	Draw         *models.LotteryDraw
	WinnerTicket *models.LotteryTicket
	PoolSize     int
}

// NewService wires the draw scheduler and winner selector.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, picker random.IndexPicker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("draws repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if picker == nil {
		picker = random.CryptoPicker{}
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		picker: picker,
		now:    time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.LotteryDraw, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid lottery category %q", input.Category))
	}
	if input.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date required")
	}

	draw := &models.LotteryDraw{
		Category:    input.Category,
		Status:      enums.DrawStatusUpcoming,
		ScheduledAt: input.ScheduledAt.UTC(),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, draw); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draw")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDrawScheduled,
			AggregateType: enums.AggregateLotteryDraw,
			AggregateID:   draw.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.DrawScheduledEvent{
				DrawID:      draw.ID,
				Category:    draw.Category,
				ScheduledAt: draw.ScheduledAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit draw scheduled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draw, nil
}

func (s *service) Get(ctx context.Context, drawID uuid.UUID) (*models.LotteryDraw, error) {
	if drawID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draw id required")
	}
	draw, err := s.repo.FindByID(ctx, drawID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draw not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draw")
	}
	return draw, nil
}

func (s *service) List(ctx context.Context, status *enums.DrawStatus, limit, offset int) ([]models.LotteryDraw, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid draw status %q", *status))
	}
	draws, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list draws")
	}
	return draws, nil
}

// Perform runs the draw at most once. A draw left in_progress with no winner
// by a crashed performer can be re-run; a completed draw never changes again.
func (s *service) Perform(ctx context.Context, drawID uuid.UUID) (*PerformResult, error) {
	if drawID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draw id required")
	}

	draw, err := s.repo.FindByID(ctx, drawID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draw not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draw")
	}

	now := s.now().UTC()
	if now.Before(draw.ScheduledAt) {
		return nil, pkgerrors.New(pkgerrors.CodeDrawNotReady, "draw date has not arrived")
	}
	if draw.Status == enums.DrawStatusCompleted || draw.WinnerTicketID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeDrawCompleted, "draw already has a winner")
	}

	switch draw.Status {
	case enums.DrawStatusUpcoming:
		claimed, err := s.repo.ClaimForPerform(ctx, draw.ID, draw.Version)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim draw")
		}
		if !claimed {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrentModify, "draw claimed by another performer")
		}
	case enums.DrawStatusInProgress:
		// recovery path for a prior performer that crashed before committing
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("draw in unexpected status %q", draw.Status))
	}

	pool, err := s.repo.LoadPool(ctx, draw.ID)
	if err != nil {
		s.revert(ctx, draw.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket pool")
	}
	if len(pool) == 0 {
		s.revert(ctx, draw.ID)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "draw has no tickets")
	}

	index, err := s.picker.PickIndex(len(pool))
	if err != nil {
		s.revert(ctx, draw.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pick winner")
	}
	winner := pool[index]

	var result *PerformResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		committed, err := repo.CommitWinner(ctx, draw.ID, winner.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit winner")
		}
		if !committed {
			return pkgerrors.New(pkgerrors.CodeDrawCompleted, "draw already has a winner")
		}

		selected := outbox.DomainEvent{
			EventType:     enums.EventWinnerSelected,
			AggregateType: enums.AggregateLotteryDraw,
			AggregateID:   draw.ID,
			Version:       1,
			Data: payloads.WinnerSelectedEvent{
				DrawID:         draw.ID,
				Category:       draw.Category,
				WinnerTicketID: winner.ID,
				TicketNumber:   winner.TicketNumber,
				AccountID:      winner.AccountID,
				PoolSize:       len(pool),
				PerformedAt:    now,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, selected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit winner selected")
		}

		completed := outbox.DomainEvent{
			EventType:     enums.EventDrawCompleted,
			AggregateType: enums.AggregateLotteryDraw,
			AggregateID:   draw.ID,
			Version:       1,
			Data: payloads.DrawCompletedEvent{
				DrawID:      draw.ID,
				Category:    draw.Category,
				PerformedAt: now,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, completed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit draw completed")
		}

		draw.Status = enums.DrawStatusCompleted
		draw.WinnerTicketID = &winner.ID
		draw.PerformedAt = &now
		result = &PerformResult{
			Draw:         draw,
			WinnerTicket: &winner,
			PoolSize:     len(pool),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// revert is best effort; a draw stuck in_progress with no winner stays
// re-runnable either way.
func (s *service) revert(ctx context.Context, drawID uuid.UUID) {
	_ = s.repo.RevertToUpcoming(ctx, drawID)
}
