package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 10},
	}
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

type stubCart struct {
	gets int
}

func (s *stubCart) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error) {
	s.gets++
	return &cartsvc.View{}, nil
}

func (s *stubCart) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCart) UpdateItem(context.Context, uuid.UUID, uuid.UUID, int) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCart) ApplyPromocode(context.Context, uuid.UUID, string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCart) RemovePromocode(context.Context, uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCart) Clear(context.Context, uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

type stubPromocodes struct{}

func (stubPromocodes) Create(ctx context.Context, input promocodes.CreateInput) (*models.Promocode, error) {
	return &models.Promocode{Code: input.Code}, nil
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := NewRouter(RouterParams{Config: testConfig()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestCartRequiresAuthentication(t *testing.T) {
	cart := &stubCart{}
	cfg := testConfig()
	router := NewRouter(RouterParams{Config: cfg, Cart: cart})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if cart.gets != 1 {
		t.Fatalf("expected cart fetched once, got %d", cart.gets)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(RouterParams{Config: cfg, Promocodes: stubPromocodes{}})
	body := `{"code":"spring","type":"percent","discount_value":10,"usage_limit":5,"valid_from":"2026-03-01T00:00:00Z","valid_to":"2026-04-01T00:00:00Z"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promocodes", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/promocodes", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestMetricsEndpointExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg).IncOrderCreated("USD")
	router := NewRouter(RouterParams{Config: testConfig(), MetricsGatherer: reg})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "storefront_") {
		t.Fatalf("expected storefront metrics, got %s", resp.Body.String())
	}
}

func TestStripeWebhookIsUnauthenticated(t *testing.T) {
	router := NewRouter(RouterParams{Config: testConfig()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	if resp.Code == http.StatusUnauthorized || resp.Code == http.StatusNotFound {
		t.Fatalf("webhook route should bypass auth, got %d", resp.Code)
	}
}
