package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubCheckout struct {
	order *models.Order
	err   error
	input checkout.CreateOrderInput
	calls int
}

func (s *stubCheckout) CreateOrder(ctx context.Context, userID uuid.UUID, input checkout.CreateOrderInput) (*models.Order, error) {
	s.calls++
	s.input = input
	return s.order, s.err
}

type stubOrderReader struct {
	order  *models.Order
	page   *orders.OrderPage
	err    error
	params pagination.Params
}

func (s *stubOrderReader) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderReader) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderPage, error) {
	s.params = params
	return s.page, s.err
}

const validOrderBody = `{
	"shipping_address": {"name":"Ada","line1":"1 Main St","city":"Springfield","postal_code":"12345","country":"us"},
	"currency": "eur"
}`

func TestOrderCreateReturnsCreated(t *testing.T) {
	order := &models.Order{
		ID:         uuid.New(),
		Status:     enums.OrderStatusPending,
		Currency:   enums.CurrencyEUR,
		TotalCents: 1300,
		Items:      []models.OrderItem{{SkuID: uuid.New(), Name: "Widget", Quantity: 3, UnitPriceCents: 500, LineTotalCents: 1500}},
	}
	svc := &stubCheckout{order: order}

	resp := httptest.NewRecorder()
	OrderCreate(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders", validOrderBody))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.input.Currency != enums.CurrencyEUR {
		t.Fatalf("expected upper-cased currency, got %q", svc.input.Currency)
	}
	if svc.input.BillingAddress != nil {
		t.Fatal("billing address should default in the service")
	}

	var envelope struct {
		Data orders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID || envelope.Data.TotalCents != 1300 || len(envelope.Data.Items) != 1 {
		t.Fatalf("unexpected order payload %+v", envelope.Data)
	}
}

func TestOrderCreateRejectsIncompleteAddress(t *testing.T) {
	svc := &stubCheckout{}
	body := `{"shipping_address": {"name":"Ada"}}`

	resp := httptest.NewRecorder()
	OrderCreate(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("checkout should not run")
	}
}

func TestOrderCreateOutOfStock(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
		WithDetails(map[string]any{"sku_code": "W-1", "requested": 4})}

	resp := httptest.NewRecorder()
	OrderCreate(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/orders", validOrderBody))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestOrderListParsesPagination(t *testing.T) {
	svc := &stubOrderReader{page: &orders.OrderPage{
		Orders:     []models.Order{{ID: uuid.New()}},
		NextCursor: "next",
	}}

	resp := httptest.NewRecorder()
	OrderList(svc, nil).ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/orders?limit=10&cursor=abc", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Limit != 10 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.params)
	}
	var envelope struct {
		Data orders.OrderPageDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestOrderListRejectsLimitOutOfRange(t *testing.T) {
	resp := httptest.NewRecorder()
	OrderList(&stubOrderReader{}, nil).ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/orders?limit=1000", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	orderID := uuid.NewString()
	svc := &stubOrderReader{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	req := withURLParam(authedRequest(http.MethodGet, "/api/v1/orders/"+orderID, ""), "orderId", orderID)

	resp := httptest.NewRecorder()
	OrderDetail(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
