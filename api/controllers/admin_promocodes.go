package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type PromocodeCreator interface {
	Create(ctx context.Context, input promocodes.CreateInput) (*models.Promocode, error)
}

type createPromocodeRequest struct {
	Code          string    `json:"code" validate:"required,max=64"`
	Type          string    `json:"type" validate:"required,oneof=percent fixed"`
	DiscountValue int64     `json:"discount_value" validate:"required,gt=0"`
	UsageLimit    int       `json:"usage_limit" validate:"required,gt=0"`
	ValidFrom     time.Time `json:"valid_from" validate:"required"`
	ValidTo       time.Time `json:"valid_to" validate:"required,gtfield=ValidFrom"`
}

// AdminPromocodeCreate registers a new promocode.
func AdminPromocodeCreate(svc PromocodeCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promocodes service unavailable"))
			return
		}

		var payload createPromocodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), promocodes.CreateInput{
			Code:          payload.Code,
			Type:          enums.PromocodeType(payload.Type),
			DiscountValue: payload.DiscountValue,
			UsageLimit:    payload.UsageLimit,
			ValidFrom:     payload.ValidFrom,
			ValidTo:       payload.ValidTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promocodes.FromModel(promo))
	}
}
