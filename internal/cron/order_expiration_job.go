package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type orderSweeper interface {
	Sweep(ctx context.Context, cutoff, now time.Time) (orders.SweepResult, error)
}

// OrderExpirationJobParams configure the unpaid order sweep.
type OrderExpirationJobParams struct {
	Logger     *logger.Logger
	Sweeper    orderSweeper
	PaymentTTL time.Duration
}

// NewOrderExpirationJob builds the job that cancels orders left unpaid past
// the payment TTL and returns their reservations.
func NewOrderExpirationJob(params OrderExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("order sweeper required")
	}
	if params.PaymentTTL <= 0 {
		return nil, fmt.Errorf("payment ttl must be positive")
	}
	return &orderExpirationJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		ttl:     params.PaymentTTL,
		now:     time.Now,
	}, nil
}

type orderExpirationJob struct {
	logg    *logger.Logger
	sweeper orderSweeper
	ttl     time.Duration
	now     func() time.Time
}

func (j *orderExpirationJob) Name() string { return "order-expiration" }

func (j *orderExpirationJob) Run(ctx context.Context) (int, error) {
	now := j.now().UTC()
	result, err := j.sweeper.Sweep(ctx, now.Add(-j.ttl), now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_cancelled":    result.OrdersCancelled,
		"promocodes_released": result.PromocodesReleased,
		"skus_restocked":      result.ItemsRestocked,
	})
	j.logg.Info(logCtx, "order expiration sweep complete")
	return result.OrdersCancelled, nil
}
