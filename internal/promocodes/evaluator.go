// Package promocodes validates promotional codes and computes their discounts.
package promocodes

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Reason explains why a promocode cannot be redeemed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotFound        Reason = "not_found"
	ReasonNotYetValid     Reason = "not_yet_valid"
	ReasonExpired         Reason = "expired"
	ReasonExhausted       Reason = "usage_limit_reached"
	ReasonAlreadyRedeemed Reason = "already_redeemed"
)

var hundred = decimal.NewFromInt(100)

// IsValid checks the validity window and usage ceiling at now. It returns
// ReasonNone when the code can be redeemed.
func IsValid(code models.Promocode, now time.Time) Reason {
	switch {
	case now.Before(code.ValidFrom):
		return ReasonNotYetValid
	case !now.Before(code.ValidTo):
		return ReasonExpired
	case code.UsageCount >= code.UsageLimit:
		return ReasonExhausted
	default:
		return ReasonNone
	}
}

// ApplyDiscount returns amount after the discount, floored at 0. Fixed
// discounts are read in the same minor units as amount.
func ApplyDiscount(amount int64, code models.Promocode) int64 {
	var discounted int64
	switch code.Type {
	case enums.PromocodeTypeFixed:
		discounted = amount - code.DiscountValue
	case enums.PromocodeTypePercent:
		off := decimal.NewFromInt(amount).
			Mul(decimal.NewFromInt(code.DiscountValue)).
			Div(hundred).
			Round(0).
			IntPart()
		discounted = amount - off
	default:
		discounted = amount
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}

// InvalidError builds the PromocodeInvalid error for reason.
func InvalidError(code string, reason Reason) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodePromocodeInvalid, "promocode cannot be applied").
		WithDetails(map[string]any{
			"code":   code,
			"reason": string(reason),
		})
}

// NormalizeCode canonicalizes user input for lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
