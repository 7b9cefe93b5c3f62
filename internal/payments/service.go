// Package payments drives the payment state machine for orders and keeps
// order status in step with it.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// minSessionLifetime is the shortest expiry Stripe accepts for a session.
const minSessionLifetime = 31 * time.Minute

var errPendingExists = errors.New("pending payment already exists")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	DB         txRunner
	Payments   *Repository
	Orders     *orders.Repository
	Gateway    Gateway
	Logger     *logger.Logger
	Metrics    *metrics.CheckoutMetrics
	PaymentTTL time.Duration
}

// Service coordinates gateway sessions with payment and order rows.
type Service struct {
	db         txRunner
	payments   *Repository
	orders     *orders.Repository
	gateway    Gateway
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics
	paymentTTL time.Duration
	now        func() time.Time
}

// NewService builds the payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PaymentTTL <= 0 {
		return nil, fmt.Errorf("payment ttl must be positive")
	}
	return &Service{
		db:         params.DB,
		payments:   params.Payments,
		orders:     params.Orders,
		gateway:    params.Gateway,
		logg:       params.Logger,
		metrics:    params.Metrics,
		paymentTTL: params.PaymentTTL,
		now:        time.Now,
	}, nil
}

// Create opens a gateway session for the caller's pending order. An order
// that already has a pending payment gets that payment back.
func (s *Service) Create(ctx context.Context, userID, orderID uuid.UUID) (*models.Payment, error) {
	order, err := s.orders.FindForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}
	existing, err := s.payments.FindPendingByOrder(ctx, order.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payment")
	}

	now := s.now().UTC()
	expiresAt := order.CreatedAt.Add(s.paymentTTL)
	if floor := now.Add(minSessionLifetime); expiresAt.Before(floor) {
		expiresAt = floor
	}
	session, err := s.gateway.CreateSession(ctx, SessionRequest{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}

	payment := &models.Payment{
		OrderID:     order.ID,
		SessionID:   session.ID,
		Status:      enums.PaymentStatusPending,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		RedirectURL: session.RedirectURL,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.orders.WithTx(tx).FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errPendingExists
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return nil
	})
	if err != nil {
		s.expireQuietly(ctx, session.ID)
		if errors.Is(err, errPendingExists) {
			existing, findErr := s.payments.FindPendingByOrder(ctx, order.ID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load pending payment")
			}
			return existing, nil
		}
		return nil, err
	}

	s.metrics.IncPayment(string(enums.PaymentStatusPending))
	s.logg.Info(s.logg.WithField(s.logg.WithOrderID(ctx, order.ID.String()), "session_id", session.ID), "payment session created")
	return payment, nil
}

// Capture confirms the caller's payment with the gateway and marks the order
// paid. Capturing a completed payment again is a no-op.
func (s *Service) Capture(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
	payment, err := s.payments.FindBySessionForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}
	return s.confirm(ctx, payment)
}

// ConfirmSession is the gateway callback path of Capture. It is not scoped to
// a user because the caller is the gateway itself.
func (s *Service) ConfirmSession(ctx context.Context, sessionID string) (*models.Payment, error) {
	payment, err := s.payments.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}
	return s.confirm(ctx, payment)
}

// Cancel abandons the caller's pending payment. Stock and promocode usage
// stay reserved until the order expires.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
	payment, err := s.payments.FindBySessionForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, stateConflict("payment is not pending", payment)
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
				WithDetails(map[string]any{"order_status": order.Status})
		}
		ok, err := s.payments.WithTx(tx).MarkCancelled(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	payment.Status = enums.PaymentStatusCancelled

	s.expireQuietly(ctx, payment.SessionID)
	s.metrics.IncPayment(string(enums.PaymentStatusCancelled))
	s.logg.Info(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment cancelled")
	return payment, nil
}

// FailSession marks a pending payment failed after the gateway expired its
// session. Payments that already settled are left alone.
func (s *Service) FailSession(ctx context.Context, sessionID string) error {
	payment, err := s.payments.FindBySessionID(ctx, sessionID)
	if err != nil {
		return notFoundOr(err, "payment not found", "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil
	}
	return s.fail(ctx, payment)
}

func (s *Service) confirm(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	switch payment.Status {
	case enums.PaymentStatusCompleted:
		return payment, nil
	case enums.PaymentStatusPending:
	default:
		return nil, stateConflict("payment is not pending", payment)
	}

	session, err := s.gateway.GetSession(ctx, payment.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment session")
	}
	switch session.State {
	case SessionOpen:
		return nil, stateConflict("payment has not been completed", payment)
	case SessionExpired:
		if err := s.fail(ctx, payment); err != nil {
			return nil, err
		}
		return nil, stateConflict("payment session expired", payment)
	}

	now := s.now().UTC()
	alreadyCompleted := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		ok, err := repo.MarkCompleted(ctx, payment.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
		}
		if !ok {
			current, err := repo.FindBySessionID(ctx, payment.SessionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
			}
			if current.Status == enums.PaymentStatusCompleted {
				alreadyCompleted = true
				*payment = *current
				return nil
			}
			return stateConflict("payment is not pending", current)
		}
		paid, err := s.orders.WithTx(tx).MarkPaid(ctx, payment.OrderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending").
				WithDetails(map[string]any{"order_id": payment.OrderID})
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Warn(s.logg.WithOrderID(ctx, payment.OrderID.String()), "paid session rejected: "+err.Error())
		}
		return nil, err
	}
	if alreadyCompleted {
		return payment, nil
	}

	payment.Status = enums.PaymentStatusCompleted
	payment.CompletedAt = &now
	s.metrics.IncPayment(string(enums.PaymentStatusCompleted))
	s.logg.Info(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment captured")
	return payment, nil
}

func (s *Service) fail(ctx context.Context, payment *models.Payment) error {
	if _, err := s.payments.MarkFailed(ctx, payment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	payment.Status = enums.PaymentStatusFailed
	s.metrics.IncPayment(string(enums.PaymentStatusFailed))
	s.logg.Info(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment session expired")
	return nil
}

func (s *Service) expireQuietly(ctx context.Context, sessionID string) {
	if err := s.gateway.ExpireSession(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", sessionID), "expire payment session: "+err.Error())
	}
}

func stateConflict(message string, payment *models.Payment) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"payment_status": payment.Status})
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
