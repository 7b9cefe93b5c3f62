package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

// OrderDTO is the transport shape of a placed order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	Status          enums.OrderStatus `json:"status"`
	Currency        enums.Currency    `json:"currency"`
	PromocodeID     *uuid.UUID        `json:"promocode_id,omitempty"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	TotalCents      int64             `json:"total_cents"`
	ShippingAddress types.Address     `json:"shipping_address"`
	BillingAddress  types.Address     `json:"billing_address"`
	Items           []OrderItemDTO    `json:"items"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	SkuID          uuid.UUID `json:"sku_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// OrderPageDTO is the transport shape of OrderPage.
type OrderPageDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			SkuID:          item.SkuID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		Status:          o.Status,
		Currency:        o.Currency,
		PromocodeID:     o.PromocodeID,
		SubtotalCents:   o.SubtotalCents,
		DiscountCents:   o.DiscountCents,
		TotalCents:      o.TotalCents,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Items:           items,
		PaidAt:          o.PaidAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
	}
}

func PageFromModel(p *OrderPage) *OrderPageDTO {
	out := &OrderPageDTO{Orders: []OrderDTO{}}
	if p == nil {
		return out
	}
	for i := range p.Orders {
		out.Orders = append(out.Orders, *FromModel(&p.Orders[i]))
	}
	out.NextCursor = p.NextCursor
	return out
}
