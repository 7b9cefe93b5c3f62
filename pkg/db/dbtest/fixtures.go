package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SeedUser inserts a verified user.
func SeedUser(t testing.TB, conn *gorm.DB) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		Email:      uuid.NewString() + "@example.com",
		IsVerified: true,
		VerifiedAt: &now,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedSku inserts a product with one SKU holding quantity units at priceCents.
func SeedSku(t testing.TB, conn *gorm.DB, priceCents int64, quantity int) models.ProductSku {
	t.Helper()
	product := models.Product{Name: "Product " + uuid.NewString()[:8]}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	sku := models.ProductSku{
		ProductID:  product.ID,
		Code:       "SKU-" + uuid.NewString()[:8],
		Name:       "Default",
		PriceCents: priceCents,
		Quantity:   quantity,
	}
	if err := conn.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}
	return sku
}

// SeedPromocode inserts a code valid for an hour around now.
func SeedPromocode(t testing.TB, conn *gorm.DB, kind enums.PromocodeType, value int64, limit int, now time.Time) models.Promocode {
	t.Helper()
	code := models.Promocode{
		Code:          "PROMO" + strings.ToUpper(uuid.NewString()[:6]),
		Type:          kind,
		DiscountValue: value,
		UsageLimit:    limit,
		ValidFrom:     now.Add(-time.Hour).UTC(),
		ValidTo:       now.Add(time.Hour).UTC(),
	}
	if err := conn.Create(&code).Error; err != nil {
		t.Fatalf("seed promocode: %v", err)
	}
	return code
}

// Reload fetches the current row for dest's primary key.
func Reload(t testing.TB, conn *gorm.DB, dest any, id uuid.UUID) {
	t.Helper()
	if err := conn.Where("id = ?", id).First(dest).Error; err != nil {
		t.Fatalf("reload %T: %v", dest, err)
	}
}
