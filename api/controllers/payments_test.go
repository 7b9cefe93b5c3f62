package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubPaymentService struct {
	payment   *models.Payment
	err       error
	sessionID string
	orderID   uuid.UUID
}

func (s *stubPaymentService) Create(ctx context.Context, userID, orderID uuid.UUID) (*models.Payment, error) {
	s.orderID = orderID
	return s.payment, s.err
}

func (s *stubPaymentService) Capture(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
	s.sessionID = sessionID
	return s.payment, s.err
}

func (s *stubPaymentService) Cancel(ctx context.Context, userID uuid.UUID, sessionID string) (*models.Payment, error) {
	s.sessionID = sessionID
	return s.payment, s.err
}

func TestPaymentCreateReturnsRedirect(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{payment: &models.Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		SessionID:   "cs_123",
		Status:      enums.PaymentStatusPending,
		AmountCents: 4200,
		Currency:    enums.CurrencyEUR,
		RedirectURL: "https://checkout.example/cs_123",
	}}
	req := withURLParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments", ""), "orderId", orderID.String())

	resp := httptest.NewRecorder()
	PaymentCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.orderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, svc.orderID)
	}
	var envelope struct {
		Data payments.PaymentDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RedirectURL != "https://checkout.example/cs_123" || envelope.Data.SessionID != "cs_123" {
		t.Fatalf("unexpected payment payload %+v", envelope.Data)
	}
}

func TestPaymentCaptureStateConflict(t *testing.T) {
	svc := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "payment session is not paid")}
	req := withURLParam(authedRequest(http.MethodPost, "/api/v1/payments/cs_1/capture", ""), "sessionId", "cs_1")

	resp := httptest.NewRecorder()
	PaymentCapture(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if svc.sessionID != "cs_1" {
		t.Fatalf("expected session cs_1 got %q", svc.sessionID)
	}
}

func TestPaymentCancelSuccess(t *testing.T) {
	svc := &stubPaymentService{payment: &models.Payment{SessionID: "cs_2", Status: enums.PaymentStatusCancelled}}
	req := withURLParam(authedRequest(http.MethodPost, "/api/v1/payments/cs_2/cancel", ""), "sessionId", "cs_2")

	resp := httptest.NewRecorder()
	PaymentCancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPaymentCreateRejectsBadOrderID(t *testing.T) {
	req := withURLParam(authedRequest(http.MethodPost, "/api/v1/orders/x/payments", ""), "orderId", "x")
	resp := httptest.NewRecorder()
	PaymentCreate(&stubPaymentService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
