package promocodes

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PromocodeDTO is the back-office view of a code.
type PromocodeDTO struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	Type          enums.PromocodeType `json:"type"`
	DiscountValue int64               `json:"discount_value"`
	UsageLimit    int                 `json:"usage_limit"`
	UsageCount    int                 `json:"usage_count"`
	ValidFrom     time.Time           `json:"valid_from"`
	ValidTo       time.Time           `json:"valid_to"`
	CreatedAt     time.Time           `json:"created_at"`
}

func FromModel(p *models.Promocode) *PromocodeDTO {
	if p == nil {
		return nil
	}
	return &PromocodeDTO{
		ID:            p.ID,
		Code:          p.Code,
		Type:          p.Type,
		DiscountValue: p.DiscountValue,
		UsageLimit:    p.UsageLimit,
		UsageCount:    p.UsageCount,
		ValidFrom:     p.ValidFrom,
		ValidTo:       p.ValidTo,
		CreatedAt:     p.CreatedAt,
	}
}
