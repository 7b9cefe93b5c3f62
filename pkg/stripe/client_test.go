package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func validStripeConfig() config.StripeConfig {
	return config.StripeConfig{
		APIKey:     "sk_test_123",
		Secret:     "whsec_123",
		Env:        "test",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	client, err := NewClient(context.Background(), validStripeConfig(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Environment() != testEnv {
		t.Fatalf("unexpected env %s", client.Environment())
	}
	if client.SuccessURL() == "" || client.CancelURL() == "" {
		t.Fatalf("expected return urls")
	}

	cases := map[string]func(*config.StripeConfig){
		"missing key":      func(c *config.StripeConfig) { c.APIKey = "" },
		"missing secret":   func(c *config.StripeConfig) { c.Secret = " " },
		"live key in test": func(c *config.StripeConfig) { c.APIKey = "sk_live_1" },
		"unknown env":      func(c *config.StripeConfig) { c.Env = "staging" },
		"missing urls":     func(c *config.StripeConfig) { c.SuccessURL = "" },
	}
	for name, mutate := range cases {
		cfg := validStripeConfig()
		mutate(&cfg)
		if _, err := NewClient(context.Background(), cfg, nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestConstructEventRejectsBadSignature(t *testing.T) {
	client, err := NewClient(context.Background(), validStripeConfig(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ConstructEvent([]byte(`{"id":"evt_1"}`), "t=1,v1=bad"); err == nil {
		t.Fatalf("expected signature error")
	}
	var nilClient *Client
	if _, err := nilClient.ConstructEvent(nil, ""); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestNewCheckoutSessionsRequiresClient(t *testing.T) {
	if NewCheckoutSessions(nil) != nil {
		t.Fatalf("expected nil sessions without client")
	}
}
