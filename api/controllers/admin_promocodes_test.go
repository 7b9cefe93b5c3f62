package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type stubPromocodeCreator struct {
	input promocodes.CreateInput
	calls int
}

func (s *stubPromocodeCreator) Create(ctx context.Context, input promocodes.CreateInput) (*models.Promocode, error) {
	s.calls++
	s.input = input
	return &models.Promocode{Code: input.Code, Type: input.Type}, nil
}

func TestAdminPromocodeCreate(t *testing.T) {
	svc := &stubPromocodeCreator{}
	body := `{"code":"spring","type":"percent","discount_value":10,"usage_limit":100,
		"valid_from":"2026-03-01T00:00:00Z","valid_to":"2026-04-01T00:00:00Z"}`

	resp := httptest.NewRecorder()
	AdminPromocodeCreate(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/admin/promocodes", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.input.Type != enums.PromocodeTypePercent || svc.input.UsageLimit != 100 {
		t.Fatalf("unexpected input %+v", svc.input)
	}
}

func TestAdminPromocodeCreateValidation(t *testing.T) {
	cases := map[string]string{
		"unknown type":   `{"code":"x","type":"bogo","discount_value":1,"usage_limit":1,"valid_from":"2026-03-01T00:00:00Z","valid_to":"2026-04-01T00:00:00Z"}`,
		"inverted dates": `{"code":"x","type":"fixed","discount_value":1,"usage_limit":1,"valid_from":"2026-04-01T00:00:00Z","valid_to":"2026-03-01T00:00:00Z"}`,
		"zero limit":     `{"code":"x","type":"fixed","discount_value":1,"usage_limit":0,"valid_from":"2026-03-01T00:00:00Z","valid_to":"2026-04-01T00:00:00Z"}`,
	}
	for name, body := range cases {
		svc := &stubPromocodeCreator{}
		resp := httptest.NewRecorder()
		AdminPromocodeCreate(svc, nil).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/admin/promocodes", body))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
		if svc.calls != 0 {
			t.Fatalf("%s: service should not be called", name)
		}
	}
}
