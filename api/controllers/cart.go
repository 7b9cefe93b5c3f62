package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartService is the cart surface the HTTP layer drives.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error)
	AddItem(ctx context.Context, userID, skuID uuid.UUID, quantity int) (*cartsvc.View, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cartsvc.View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.View, error)
	ApplyPromocode(ctx context.Context, userID uuid.UUID, code string) (*cartsvc.View, error)
	RemovePromocode(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error)
}

type addCartItemRequest struct {
	SkuID    uuid.UUID `json:"sku_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type applyPromocodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type cartAction func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error)

func cartHandler(svc CartService, logg *logger.Logger, action cartAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := middleware.AuthenticatedUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := action(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartFetch returns the caller's priced cart.
func CartFetch(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		return svc.Get(r.Context(), userID)
	})
}

func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, payload.SkuID, payload.Quantity)
	})
}

func CartUpdateItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, itemID, payload.Quantity)
	})
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		itemID, err := uuidParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, itemID)
	})
}

// CartApplyPromocode attaches a code; redemption happens at checkout.
func CartApplyPromocode(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		var payload applyPromocodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.ApplyPromocode(r.Context(), userID, payload.Code)
	})
}

func CartRemovePromocode(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		return svc.RemovePromocode(r.Context(), userID)
	})
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID uuid.UUID) (*cartsvc.View, error) {
		return svc.Clear(r.Context(), userID)
	})
}
