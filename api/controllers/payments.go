package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PaymentService is the buyer-facing payment surface.
type PaymentService interface {
	Create(ctx context.Context, userID, orderID uuid.UUID) (*models.Payment, error)
	Capture(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error)
	Cancel(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error)
}

// PaymentCreate opens a gateway session for one of the caller's pending orders.
func PaymentCreate(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		userID, err := middleware.AuthenticatedUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Create(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payments.FromModel(payment))
	}
}

// PaymentCapture settles a session the gateway reports as paid.
func PaymentCapture(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return paymentSessionHandler(svc, logg, func(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
		return svc.Capture(ctx, userID, sessionID)
	})
}

// PaymentCancel abandons a pending session; the order stays pending.
func PaymentCancel(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return paymentSessionHandler(svc, logg, func(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
		return svc.Cancel(ctx, userID, sessionID)
	})
}

func paymentSessionHandler(
	svc PaymentService,
	logg *logger.Logger,
	action func(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		userID, err := middleware.AuthenticatedUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := stringParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := action(r.Context(), userID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.FromModel(payment))
	}
}
