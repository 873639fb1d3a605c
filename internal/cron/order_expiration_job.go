package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

type orderExpirer interface {
	ExpireDueOrders(ctx context.Context, now time.Time) (int, error)
}

// OrderExpirationJobParams configure the overdue order sweep.
type OrderExpirationJobParams struct {
	Logger *logger.Logger
	Orders orderExpirer
}

// NewOrderExpirationJob builds the cron sweep behind the inline reaper. Reads
// already expire overdue orders lazily; this job catches orders nobody reads.
func NewOrderExpirationJob(params OrderExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &orderExpirationJob{
		logg:   params.Logger,
		orders: params.Orders,
		now:    time.Now,
	}, nil
}

type orderExpirationJob struct {
	logg   *logger.Logger
	orders orderExpirer
	now    func() time.Time
}

func (j *orderExpirationJob) Name() string { return "order-expiration" }

func (j *orderExpirationJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireDueOrders(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire due orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": expired})
	j.logg.Info(logCtx, "order expiration sweep complete")
	return nil
}
