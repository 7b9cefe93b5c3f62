package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// View is the priced read model of a cart. Amounts are minor units of Currency.
type View struct {
	ID            uuid.UUID      `json:"id"`
	Currency      enums.Currency `json:"currency"`
	Items         []ItemView     `json:"items"`
	Promocode     *PromocodeView `json:"promocode,omitempty"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	TotalCents    int64          `json:"total_cents"`
}

// ItemView is one priced cart line.
type ItemView struct {
	ID             uuid.UUID `json:"id"`
	SkuID          uuid.UUID `json:"sku_id"`
	SkuCode        string    `json:"sku_code"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	InStock        int       `json:"in_stock"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// PromocodeView describes the attached code. Issue is set when the code can
// no longer be redeemed, in which case no discount is applied.
type PromocodeView struct {
	Code          string              `json:"code"`
	Type          enums.PromocodeType `json:"type"`
	DiscountValue int64               `json:"discount_value"`
	Issue         promocodes.Reason   `json:"issue,omitempty"`
}

func buildView(cart *models.Cart, currency enums.Currency, now time.Time) *View {
	view := &View{
		ID:       cart.ID,
		Currency: currency,
		Items:    make([]ItemView, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		line := ItemView{
			ID:       item.ID,
			SkuID:    item.SkuID,
			Quantity: item.Quantity,
		}
		if item.Sku != nil {
			line.SkuCode = item.Sku.Code
			line.Name = item.Sku.DisplayName()
			line.InStock = item.Sku.Quantity
			line.UnitPriceCents = item.Sku.EffectivePriceCents()
		}
		line.LineTotalCents = line.UnitPriceCents * int64(item.Quantity)
		view.SubtotalCents += line.LineTotalCents
		view.Items = append(view.Items, line)
	}

	view.TotalCents = view.SubtotalCents
	if cart.Promocode != nil {
		code := *cart.Promocode
		view.Promocode = &PromocodeView{
			Code:          code.Code,
			Type:          code.Type,
			DiscountValue: code.DiscountValue,
			Issue:         promocodes.IsValid(code, now),
		}
		if view.Promocode.Issue == promocodes.ReasonNone {
			view.TotalCents = promocodes.ApplyDiscount(view.SubtotalCents, code)
			view.DiscountCents = view.SubtotalCents - view.TotalCents
		}
	}
	return view
}
