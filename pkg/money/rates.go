package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// RateTable maps currency codes to units per one unit of Reference.
type RateTable struct {
	Reference enums.Currency             `json:"reference"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// Rate returns the units of currency per reference unit.
func (t *RateTable) Rate(currency enums.Currency) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	if currency == t.Reference {
		return decimal.NewFromInt(1), true
	}
	rate, ok := t.Rates[string(currency)]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, false
	}
	return rate, true
}

// Fresh reports whether the table is younger than ttl at now.
func (t *RateTable) Fresh(now time.Time, ttl time.Duration) bool {
	if t == nil || t.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(t.FetchedAt) < ttl
}

// Convert normalizes amount through the reference currency and rounds to the
// nearest minor unit of to.
func (t *RateTable) Convert(amount int64, from, to enums.Currency) (int64, error) {
	if from == to {
		return amount, nil
	}
	if t == nil {
		return 0, pkgerrors.New(pkgerrors.CodeRatesUnavailable, "no exchange rate table cached")
	}
	fromRate, ok := t.Rate(from)
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeRatesUnavailable, fmt.Sprintf("no exchange rate for %s", from))
	}
	toRate, ok := t.Rate(to)
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeRatesUnavailable, fmt.Sprintf("no exchange rate for %s", to))
	}
	reference := FromMinor(amount, from).Div(fromRate)
	return ToMinor(reference.Mul(toRate), to), nil
}
