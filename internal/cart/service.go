// Package cart manages the single mutable basket each user owns.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type promocodeFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
}

type redemptionChecker interface {
	HasActiveRedemption(ctx context.Context, userID, promocodeID uuid.UUID) (bool, error)
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	DB           txRunner
	Carts        *Repository
	Products     *products.Repository
	Promocodes   promocodeFinder
	Redemptions  redemptionChecker
	MaxItems     int
	BaseCurrency enums.Currency
}

// Service implements the cart operations.
type Service struct {
	db           txRunner
	carts        *Repository
	products     *products.Repository
	promocodes   promocodeFinder
	redemptions  redemptionChecker
	maxItems     int
	baseCurrency enums.Currency
	now          func() time.Time
}

// NewService builds a cart service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Promocodes == nil {
		return nil, fmt.Errorf("promocode finder required")
	}
	if params.Redemptions == nil {
		return nil, fmt.Errorf("redemption checker required")
	}
	if params.MaxItems <= 0 {
		return nil, fmt.Errorf("max cart items must be positive")
	}
	if !params.BaseCurrency.IsValid() {
		return nil, fmt.Errorf("invalid base currency %q", params.BaseCurrency)
	}
	return &Service{
		db:           params.DB,
		carts:        params.Carts,
		products:     params.Products,
		promocodes:   params.Promocodes,
		redemptions:  params.Redemptions,
		maxItems:     params.MaxItems,
		baseCurrency: params.BaseCurrency,
		now:          time.Now,
	}, nil
}

// Get returns the user's priced cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	cart, err := s.carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return buildView(cart, s.baseCurrency, s.now().UTC()), nil
}

// AddItem puts quantity units of sku in the cart, replacing the quantity of
// an existing line for the same SKU.
func (s *Service) AddItem(ctx context.Context, userID, skuID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		cart, err := carts.EnsureForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if _, err := s.products.WithTx(tx).FindSkuByID(ctx, skuID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sku")
		}

		existing, err := carts.FindItemBySku(ctx, cart.ID, skuID)
		switch {
		case err == nil:
			if _, err := carts.UpdateItemQuantity(ctx, cart.ID, existing.ID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		count, err := carts.CountItems(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart items")
		}
		if count >= int64(s.maxItems) {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded, "cart item limit reached").
				WithDetails(map[string]any{"max_items": s.maxItems})
		}
		item := &models.CartItem{CartID: cart.ID, SkuID: skuID, Quantity: quantity}
		if err := carts.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem changes the quantity of one of the caller's cart lines.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.ownCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes one of the caller's cart lines.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	cart, err := s.ownCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

// ApplyPromocode attaches a redeemable code to the cart. Usage is consumed
// at checkout, not here.
func (s *Service) ApplyPromocode(ctx context.Context, userID uuid.UUID, code string) (*View, error) {
	normalized := promocodes.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promocode is required")
	}
	promo, err := s.promocodes.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
	}
	if reason := promocodes.IsValid(*promo, s.now().UTC()); reason != promocodes.ReasonNone {
		return nil, promocodes.InvalidError(promo.Code, reason)
	}
	redeemed, err := s.redemptions.HasActiveRedemption(ctx, userID, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check promocode redemptions")
	}
	if redeemed {
		return nil, promocodes.InvalidError(promo.Code, promocodes.ReasonAlreadyRedeemed)
	}

	cart, err := s.carts.EnsureForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.carts.SetPromocode(ctx, cart.ID, &promo.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach promocode")
	}
	return s.Get(ctx, userID)
}

// RemovePromocode detaches the cart's promocode.
func (s *Service) RemovePromocode(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.ownCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.PromocodeID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no promocode")
	}
	if err := s.carts.SetPromocode(ctx, cart.ID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach promocode")
	}
	return s.Get(ctx, userID)
}

// Clear removes every line from the caller's cart.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.ownCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.ClearItems(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return s.Get(ctx, userID)
}

func (s *Service) ownCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}
