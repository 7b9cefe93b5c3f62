package money

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	defaultProviderTimeout = 5 * time.Second
	maxProviderBody        = 1 << 20
)

// HTTPRateProviderParams configure an HTTPRateProvider.
type HTTPRateProviderParams struct {
	URL       string
	Reference enums.Currency
	Timeout   time.Duration
	Client    *http.Client
}

// HTTPRateProvider reads a {"base": "...", "rates": {...}} JSON document.
type HTTPRateProvider struct {
	url       string
	reference enums.Currency
	client    *http.Client
	now       func() time.Time
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewHTTPRateProvider builds a provider for the given endpoint.
func NewHTTPRateProvider(params HTTPRateProviderParams) (*HTTPRateProvider, error) {
	if strings.TrimSpace(params.URL) == "" {
		return nil, fmt.Errorf("rates provider url required")
	}
	if !params.Reference.IsValid() {
		return nil, fmt.Errorf("invalid reference currency %q", params.Reference)
	}
	client := params.Client
	if client == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = defaultProviderTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPRateProvider{
		url:       params.URL,
		reference: params.Reference,
		client:    client,
		now:       time.Now,
	}, nil
}

// FetchRates calls the endpoint and returns the decoded table.
func (p *HTTPRateProvider) FetchRates(ctx context.Context) (*RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rates provider returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProviderBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if base := strings.ToUpper(strings.TrimSpace(payload.Base)); base != "" && base != string(p.reference) {
		return nil, fmt.Errorf("rates provider base %q does not match reference %q", payload.Base, p.reference)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rates provider returned no rates")
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		if !rate.IsPositive() {
			continue
		}
		rates[strings.ToUpper(code)] = rate
	}
	return &RateTable{
		Reference: p.reference,
		Rates:     rates,
		FetchedAt: p.now().UTC(),
	}, nil
}
