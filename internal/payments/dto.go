package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentDTO is the transport shape of a payment session.
type PaymentDTO struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     uuid.UUID           `json:"order_id"`
	SessionID   string              `json:"session_id"`
	Status      enums.PaymentStatus `json:"status"`
	AmountCents int64               `json:"amount_cents"`
	Currency    enums.Currency      `json:"currency"`
	RedirectURL string              `json:"redirect_url"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:          p.ID,
		OrderID:     p.OrderID,
		SessionID:   p.SessionID,
		Status:      p.Status,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		RedirectURL: p.RedirectURL,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
	}
}
