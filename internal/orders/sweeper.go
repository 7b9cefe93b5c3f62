package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SweepResult summarizes one expiration sweep.
type SweepResult struct {
	OrdersCancelled    int
	PromocodesReleased int
	ItemsRestocked     int
}

// SweeperParams wires the Sweeper.
type SweeperParams struct {
	DB         txRunner
	Orders     *Repository
	Products   *products.Repository
	Promocodes *promocodes.Repository
	Logger     *logger.Logger
}

// Sweeper cancels unpaid orders past their deadline and returns their
// reservations. It is the only path that reverses stock and promocode usage.
type Sweeper struct {
	db         txRunner
	orders     *Repository
	products   *products.Repository
	promocodes *promocodes.Repository
	logg       *logger.Logger
}

// NewSweeper builds a Sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Promocodes == nil {
		return nil, fmt.Errorf("promocodes repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sweeper{
		db:         params.DB,
		orders:     params.Orders,
		products:   params.Products,
		promocodes: params.Promocodes,
		logg:       params.Logger,
	}, nil
}

// Sweep cancels every order still pending that was created before cutoff,
// releasing its promocode usage and restoring its stock, all in one
// transaction. now stamps cancelled_at.
func (s *Sweeper) Sweep(ctx context.Context, cutoff, now time.Time) (SweepResult, error) {
	var result SweepResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		result = SweepResult{}
		orders := s.orders.WithTx(tx)
		skus := s.products.WithTx(tx)
		codes := s.promocodes.WithTx(tx)

		expired, err := orders.FindPendingBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("find expired orders: %w", err)
		}
		for _, order := range expired {
			cancelled, err := orders.MarkCancelled(ctx, order.ID, now)
			if err != nil {
				return fmt.Errorf("cancel order %s: %w", order.ID, err)
			}
			if !cancelled {
				continue
			}
			result.OrdersCancelled++

			if order.PromocodeID != nil {
				released, err := codes.Release(ctx, *order.PromocodeID)
				if err != nil {
					return fmt.Errorf("release promocode %s: %w", *order.PromocodeID, err)
				}
				if released {
					result.PromocodesReleased++
				} else {
					s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "promocode usage already at zero")
				}
			}
			for _, item := range order.Items {
				if err := skus.RestoreStock(ctx, item.SkuID, item.Quantity); err != nil {
					return fmt.Errorf("restore stock for sku %s: %w", item.SkuID, err)
				}
				result.ItemsRestocked++
			}
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return result, nil
}
