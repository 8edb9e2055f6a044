package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/pkg/db/models"
	pkgerrors "github.com/veloramarket/loyalty-backend/pkg/errors"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
	"github.com/veloramarket/loyalty-backend/pkg/metrics"
)

const defaultDueDrawsBatch = 10

type dueDrawLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.LotteryDraw, error)
}

type drawPerformer interface {
	Perform(ctx context.Context, drawID uuid.UUID) (*draws.PerformResult, error)
}

type DueDrawsJobParams struct {
	Logger    *logger.Logger
	Repo      dueDrawLister
	Performer drawPerformer
	Metrics   *metrics.LoyaltyMetrics
	BatchSize int
}

// NewDueDrawsJob performs upcoming draws whose scheduled time has arrived.
// Draws that another instance grabs first, or that have no tickets yet, are
// skipped and retried on the next cycle.
func NewDueDrawsJob(params DueDrawsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("draws repository required")
	}
	if params.Performer == nil {
		return nil, fmt.Errorf("draw performer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultDueDrawsBatch
	}
	return &dueDrawsJob{
		logg:           params.Logger,
		repo:           params.Repo,
		performer:      params.Performer,
		loyaltyMetrics: params.Metrics,
		batch:          batch,
		now:            time.Now,
	}, nil
}

type dueDrawsJob struct {
	logg           *logger.Logger
	repo           dueDrawLister
	performer      drawPerformer
	loyaltyMetrics *metrics.LoyaltyMetrics
	batch          int
	now            func() time.Time
}

func (j *dueDrawsJob) Name() string { return "due-draws" }

func (j *dueDrawsJob) Run(ctx context.Context) error {
	due, err := j.repo.ListDue(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("list due draws: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	var errs []error
	for _, draw := range due {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"draw_id":  draw.ID,
			"category": draw.Category,
		})
		result, err := j.performer.Perform(ctx, draw.ID)
		if err != nil {
			if isSkippablePerformError(err) {
				j.logg.Info(logCtx, "draw not performable this cycle; will retry")
				continue
			}
			j.logg.Error(logCtx, "scheduled draw failed", err)
			errs = append(errs, fmt.Errorf("draw %s: %w", draw.ID, err))
			continue
		}
		j.loyaltyMetrics.IncDrawsPerformed(string(draw.Category))
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"winner_ticket": result.WinnerTicket.TicketNumber,
			"pool_size":     result.PoolSize,
		})
		j.logg.Info(logCtx, "scheduled draw performed")
	}
	return multierr.Combine(errs...)
}

// Skippable outcomes: another performer won the race, the draw already
// finished, or the pool is still empty.
func isSkippablePerformError(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeConcurrentModify,
		pkgerrors.CodeDrawCompleted,
		pkgerrors.CodeStateConflict:
		return true
	}
	return false
}
