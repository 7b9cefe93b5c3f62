package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Promocode is a redeemable discount. DiscountValue is a percentage for
// percent codes and minor units of the base currency for fixed codes.
type Promocode struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code          string              `gorm:"column:code;not null;uniqueIndex"`
	Type          enums.PromocodeType `gorm:"column:type;not null"`
	DiscountValue int64               `gorm:"column:discount_value;not null;check:chk_promocodes_discount_value,discount_value > 0"`
	UsageLimit    int                 `gorm:"column:usage_limit;not null;check:chk_promocodes_usage_limit,usage_limit > 0"`
	UsageCount    int                 `gorm:"column:usage_count;not null;default:0;check:chk_promocodes_usage_count,usage_count >= 0 AND usage_count <= usage_limit"`
	ValidFrom     time.Time           `gorm:"column:valid_from;not null"`
	ValidTo       time.Time           `gorm:"column:valid_to;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Promocode) TableName() string { return "promocodes" }

func (p *Promocode) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
