// Package stripewebhook applies Stripe Checkout events to payments.
package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type paymentSessions interface {
	ConfirmSession(ctx context.Context, sessionID string) (*models.Payment, error)
	FailSession(ctx context.Context, sessionID string) error
}

type ServiceParams struct {
	Payments paymentSessions
	Logger   *logger.Logger
}

type Service struct {
	payments paymentSessions
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		logg:     params.Logger,
	}, nil
}

// HandleEvent routes checkout session events. Events that can never succeed
// on redelivery (unknown session, order already settled) are acknowledged
// with a warning instead of an error.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		cs, err := decodeSession(event)
		if err != nil {
			return err
		}
		// Delayed payment methods complete the session before funds arrive.
		if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return nil
		}
		_, err = s.payments.ConfirmSession(ctx, cs.ID)
		return s.settle(ctx, cs.ID, err)
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		cs, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.settle(ctx, cs.ID, s.payments.FailSession(ctx, cs.ID))
	default:
		return nil
	}
}

func (s *Service) settle(ctx context.Context, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID), "stripe event ignored: "+err.Error())
		return nil
	}
	return err
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if cs.ID == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errors.New("missing id"), "decode checkout session event")
	}
	return &cs, nil
}
