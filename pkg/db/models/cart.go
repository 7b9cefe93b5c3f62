package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the single mutable basket owned by a user.
type Cart struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PromocodeID *uuid.UUID `gorm:"column:promocode_id;type:uuid"`
	Promocode   *Promocode `gorm:"foreignKey:PromocodeID;references:ID"`
	Items       []CartItem `gorm:"foreignKey:CartID;references:ID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem is a (cart, sku) pair with a positive quantity.
type CartItem struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID   `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_sku"`
	SkuID     uuid.UUID   `gorm:"column:sku_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_sku"`
	Quantity  int         `gorm:"column:quantity;not null;check:chk_cart_items_quantity,quantity > 0"`
	Sku       *ProductSku `gorm:"foreignKey:SkuID;references:ID"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
