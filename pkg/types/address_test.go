package types

import "testing"

func TestAddressNormalize(t *testing.T) {
	blank := "   "
	addr := Address{
		Name:       " Ada ",
		Line1:      " 1 Main St ",
		Line2:      &blank,
		City:       " Springfield ",
		PostalCode: " 12345 ",
		Country:    "us",
	}
	got := addr.Normalize()
	if got.Name != "Ada" || got.Line1 != "1 Main St" || got.City != "Springfield" || got.PostalCode != "12345" {
		t.Fatalf("unexpected normalization %+v", got)
	}
	if got.Country != "US" {
		t.Fatalf("expected upper-cased country, got %q", got.Country)
	}
	if got.Line2 != nil {
		t.Fatalf("blank line2 should collapse to nil")
	}
}

func TestAddressIsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Fatal("empty address should be zero")
	}
	if (Address{Line1: "x"}).IsZero() {
		t.Fatal("address with line1 is not zero")
	}
}
