package money

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestHTTPRateProviderParsesRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"EUR","date":"2024-03-01","rates":{"USD":1.0845,"jpy":162.5,"BAD":0}}`))
	}))
	defer srv.Close()

	provider, err := NewHTTPRateProvider(HTTPRateProviderParams{URL: srv.URL, Reference: enums.CurrencyEUR})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	table, err := provider.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if table.Reference != enums.CurrencyEUR {
		t.Fatalf("unexpected reference %s", table.Reference)
	}
	if rate, ok := table.Rate(enums.CurrencyJPY); !ok || rate.String() != "162.5" {
		t.Fatalf("unexpected JPY rate %s", rate)
	}
	if _, ok := table.Rates["BAD"]; ok {
		t.Fatalf("non-positive rates should be dropped")
	}
	if table.FetchedAt.IsZero() {
		t.Fatalf("expected fetched timestamp")
	}
}

func TestHTTPRateProviderRejectsMismatchedBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	provider, err := NewHTTPRateProvider(HTTPRateProviderParams{URL: srv.URL, Reference: enums.CurrencyEUR})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.FetchRates(context.Background()); err == nil {
		t.Fatalf("expected base mismatch error")
	}
}

func TestHTTPRateProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	provider, _ := NewHTTPRateProvider(HTTPRateProviderParams{URL: srv.URL, Reference: enums.CurrencyEUR})
	if _, err := provider.FetchRates(context.Background()); err == nil {
		t.Fatalf("expected status error")
	}
}
