// Package checkout turns a user's cart into a pending order in one
// transaction: stock reservation, promocode consumption, order snapshot and
// cart clearing commit or roll back together.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rateSource interface {
	Rates(ctx context.Context) (*money.RateTable, error)
}

// CreateOrderInput carries the buyer-supplied checkout data. BillingAddress
// defaults to the shipping address and Currency to the store base currency.
type CreateOrderInput struct {
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Currency        enums.Currency
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	DB           txRunner
	Carts        *cart.Repository
	Products     *products.Repository
	Promocodes   *promocodes.Repository
	Orders       *orders.Repository
	Rates        rateSource
	Logger       *logger.Logger
	Metrics      *metrics.CheckoutMetrics
	BaseCurrency enums.Currency
}

// Service builds orders from carts.
type Service struct {
	db           txRunner
	carts        *cart.Repository
	products     *products.Repository
	promocodes   *promocodes.Repository
	orders       *orders.Repository
	rates        rateSource
	logg         *logger.Logger
	metrics      *metrics.CheckoutMetrics
	baseCurrency enums.Currency
	now          func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Promocodes == nil {
		return nil, fmt.Errorf("promocodes repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("rate source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !params.BaseCurrency.IsValid() {
		return nil, fmt.Errorf("invalid base currency %q", params.BaseCurrency)
	}
	return &Service{
		db:           params.DB,
		carts:        params.Carts,
		products:     params.Products,
		promocodes:   params.Promocodes,
		orders:       params.Orders,
		rates:        params.Rates,
		logg:         params.Logger,
		metrics:      params.Metrics,
		baseCurrency: params.BaseCurrency,
		now:          time.Now,
	}, nil
}

// CreateOrder converts the user's cart into a pending order. Any failure
// leaves the cart, stock and promocode usage untouched.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	order, err := s.createOrder(ctx, userID, input)
	if err != nil {
		s.metrics.IncCheckoutFailure(string(pkgerrors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncOrderCreated(string(order.Currency))

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"total_cents": order.TotalCents,
		"currency":    order.Currency,
		"items":       len(order.Items),
	})
	s.logg.Info(logCtx, "order created")
	return order, nil
}

func (s *Service) createOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	shipping, billing, err := normalizeAddresses(input)
	if err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = s.baseCurrency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}

	// Rates are resolved before the transaction so a slow provider never
	// holds row locks.
	var table *money.RateTable
	if currency != s.baseCurrency {
		table, err = s.rates.Rates(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := table.Convert(1, s.baseCurrency, currency); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		userCart, err := carts.FindByUserForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}

		items := append([]models.CartItem(nil), userCart.Items...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].SkuID.String() < items[j].SkuID.String()
		})
		if err := s.reserveStock(ctx, tx, items); err != nil {
			return err
		}

		var promo *models.Promocode
		if userCart.PromocodeID != nil {
			promo, err = s.consumePromocode(ctx, tx, userID, *userCart.PromocodeID, now)
			if err != nil {
				return err
			}
		}

		order, err = buildOrder(userID, currency, s.baseCurrency, table, items, promo, shipping, billing)
		if err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		cleared, err := carts.ClearItems(ctx, userCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		// Every line the order was built from must still be in the cart.
		if cleared != int64(len(userCart.Items)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed during checkout").
				WithDetails(map[string]any{
					"expected_items": len(userCart.Items),
					"cleared_items":  cleared,
				})
		}
		if userCart.PromocodeID != nil {
			if err := carts.SetPromocode(ctx, userCart.ID, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach promocode")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) reserveStock(ctx context.Context, tx *gorm.DB, items []models.CartItem) error {
	skus := s.products.WithTx(tx)
	for _, item := range items {
		if item.Sku == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").
				WithDetails(map[string]any{"sku_id": item.SkuID})
		}
		ok, err := skus.DecrementStock(ctx, item.SkuID, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("insufficient stock for %s", item.Sku.Code)).
				WithDetails(map[string]any{
					"sku_id":    item.SkuID,
					"sku_code":  item.Sku.Code,
					"requested": item.Quantity,
				})
		}
	}
	return nil
}

func (s *Service) consumePromocode(ctx context.Context, tx *gorm.DB, userID, promocodeID uuid.UUID, now time.Time) (*models.Promocode, error) {
	codes := s.promocodes.WithTx(tx)
	promo, err := codes.FindByID(ctx, promocodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, promocodes.InvalidError("", promocodes.ReasonNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
	}
	if reason := promocodes.IsValid(*promo, now); reason != promocodes.ReasonNone {
		return nil, promocodes.InvalidError(promo.Code, reason)
	}
	redeemed, err := s.orders.WithTx(tx).HasActiveRedemption(ctx, userID, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check promocode redemptions")
	}
	if redeemed {
		return nil, promocodes.InvalidError(promo.Code, promocodes.ReasonAlreadyRedeemed)
	}
	consumed, err := codes.Consume(ctx, promo.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume promocode")
	}
	if !consumed {
		return nil, promocodes.InvalidError(promo.Code, promocodes.ReasonExhausted)
	}
	return promo, nil
}

func buildOrder(
	userID uuid.UUID,
	currency, base enums.Currency,
	table *money.RateTable,
	items []models.CartItem,
	promo *models.Promocode,
	shipping, billing types.Address,
) (*models.Order, error) {
	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		Currency:        currency,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Items:           make([]models.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		unit, err := table.Convert(item.Sku.EffectivePriceCents(), base, currency)
		if err != nil {
			return nil, err
		}
		line := unit * int64(item.Quantity)
		order.SubtotalCents += line
		order.Items = append(order.Items, models.OrderItem{
			SkuID:          item.SkuID,
			Name:           item.Sku.DisplayName(),
			Quantity:       item.Quantity,
			UnitPriceCents: unit,
			LineTotalCents: line,
		})
	}

	order.TotalCents = order.SubtotalCents
	if promo != nil {
		applied := *promo
		if applied.Type == enums.PromocodeTypeFixed {
			converted, err := table.Convert(applied.DiscountValue, base, currency)
			if err != nil {
				return nil, err
			}
			applied.DiscountValue = converted
		}
		order.PromocodeID = &promo.ID
		order.TotalCents = promocodes.ApplyDiscount(order.SubtotalCents, applied)
		order.DiscountCents = order.SubtotalCents - order.TotalCents
	}
	return order, nil
}

func normalizeAddresses(input CreateOrderInput) (types.Address, types.Address, error) {
	if input.ShippingAddress.IsZero() {
		return types.Address{}, types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	shipping := input.ShippingAddress.Normalize()
	billing := shipping
	if input.BillingAddress != nil && !input.BillingAddress.IsZero() {
		billing = input.BillingAddress.Normalize()
	}
	return shipping, billing, nil
}
