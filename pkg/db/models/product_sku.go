package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSku is a purchasable variant. Prices are in minor units of the
// storefront base currency.
type ProductSku struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Code           string    `gorm:"column:code;not null;uniqueIndex"`
	Name           string    `gorm:"column:name;not null"`
	PriceCents     int64     `gorm:"column:price_cents;not null;check:chk_product_skus_price,price_cents >= 0"`
	SalePriceCents *int64    `gorm:"column:sale_price_cents;check:chk_product_skus_sale_price,sale_price_cents IS NULL OR (sale_price_cents >= 0 AND sale_price_cents < price_cents)"`
	Quantity       int       `gorm:"column:quantity;not null;default:0;check:chk_product_skus_quantity,quantity >= 0"`
	Product        *Product  `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductSku) TableName() string { return "product_skus" }

func (s *ProductSku) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// ValidatePricing reports whether the list and sale prices are usable. A sale
// price must be non-negative and strictly below the list price.
func (s ProductSku) ValidatePricing() error {
	if s.PriceCents < 0 {
		return fmt.Errorf("sku %s: price must not be negative", s.Code)
	}
	if s.SalePriceCents != nil && (*s.SalePriceCents < 0 || *s.SalePriceCents >= s.PriceCents) {
		return fmt.Errorf("sku %s: sale price must be below the list price", s.Code)
	}
	return nil
}

// EffectivePriceCents returns the sale price when one is set below list price.
func (s ProductSku) EffectivePriceCents() int64 {
	if s.SalePriceCents != nil && *s.SalePriceCents < s.PriceCents {
		return *s.SalePriceCents
	}
	return s.PriceCents
}

// DisplayName combines the product and variant names when the product is loaded.
func (s ProductSku) DisplayName() string {
	if s.Product != nil && s.Product.Name != "" {
		return s.Product.Name + " - " + s.Name
	}
	return s.Name
}
