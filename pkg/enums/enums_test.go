package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
	if !OrderStatusCancelled.IsTerminal() || !OrderStatusDelivered.IsTerminal() {
		t.Fatal("cancelled and delivered must be terminal")
	}
	if OrderStatusPending.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Fatal("pending and paid are not terminal")
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	if PaymentStatusPending.IsTerminal() {
		t.Fatal("pending payment is not terminal")
	}
	for _, status := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	if PaymentStatus("bogus").IsTerminal() {
		t.Fatal("unknown status should not report terminal")
	}
}

func TestParseCurrencyNormalizes(t *testing.T) {
	got, err := ParseCurrency(" eur ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CurrencyEUR {
		t.Fatalf("expected EUR, got %s", got)
	}
	if _, err := ParseCurrency("XYZ"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}

func TestParsePromocodeType(t *testing.T) {
	if _, err := ParsePromocodeType("percent"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePromocodeType("bogo"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
