package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promocodes"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func testAddress() types.Address {
	return types.Address{
		Name:       "Ada Lovelace",
		Line1:      "1 Analytical Way",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "GB",
	}
}

// placeOrder writes an order the way checkout leaves it: stock already
// decremented and promocode usage already consumed.
func placeOrder(t *testing.T, conn *gorm.DB, user models.User, sku models.ProductSku, qty int, promo *models.Promocode, createdAt time.Time) models.Order {
	t.Helper()
	require.NoError(t, conn.Model(&models.ProductSku{}).Where("id = ?", sku.ID).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty)).Error)
	order := models.Order{
		UserID:          user.ID,
		Status:          enums.OrderStatusPending,
		Currency:        enums.CurrencyUSD,
		SubtotalCents:   sku.PriceCents * int64(qty),
		TotalCents:      sku.PriceCents * int64(qty),
		ShippingAddress: testAddress(),
		BillingAddress:  testAddress(),
		CreatedAt:       createdAt,
		Items: []models.OrderItem{{
			SkuID:          sku.ID,
			Name:           sku.Name,
			Quantity:       qty,
			UnitPriceCents: sku.PriceCents,
			LineTotalCents: sku.PriceCents * int64(qty),
		}},
	}
	if promo != nil {
		order.PromocodeID = &promo.ID
		require.NoError(t, conn.Model(&models.Promocode{}).Where("id = ?", promo.ID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error)
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), &order))
	return order
}

func newTestSweeper(t *testing.T) (*Sweeper, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	sweeper, err := NewSweeper(SweeperParams{
		DB:         client,
		Orders:     NewRepository(conn),
		Products:   products.NewRepository(conn),
		Promocodes: promocodes.NewRepository(conn),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return sweeper, conn
}

func TestSweepCancelsExpiredOrdersAndRestoresStock(t *testing.T) {
	ctx := context.Background()
	sweeper, conn := newTestSweeper(t)
	now := time.Now().UTC()
	user := dbtest.SeedUser(t, conn)
	sku := dbtest.SeedSku(t, conn, 1000, 5)
	promo := dbtest.SeedPromocode(t, conn, enums.PromocodeTypePercent, 10, 3, now)

	expired := placeOrder(t, conn, user, sku, 3, &promo, now.Add(-time.Hour))
	fresh := placeOrder(t, conn, user, sku, 1, nil, now.Add(-time.Minute))

	result, err := sweeper.Sweep(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{OrdersCancelled: 1, PromocodesReleased: 1, ItemsRestocked: 1}, result)

	var reloaded models.Order
	dbtest.Reload(t, conn, &reloaded, expired.ID)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.CancelledAt)

	dbtest.Reload(t, conn, &reloaded, fresh.ID)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)

	var stock models.ProductSku
	dbtest.Reload(t, conn, &stock, sku.ID)
	assert.Equal(t, 4, stock.Quantity)

	var code models.Promocode
	dbtest.Reload(t, conn, &code, promo.ID)
	assert.Equal(t, 0, code.UsageCount)
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sweeper, conn := newTestSweeper(t)
	now := time.Now().UTC()
	user := dbtest.SeedUser(t, conn)
	sku := dbtest.SeedSku(t, conn, 1000, 5)
	placeOrder(t, conn, user, sku, 3, nil, now.Add(-time.Hour))

	first, err := sweeper.Sweep(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrdersCancelled)

	second, err := sweeper.Sweep(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, second)

	var stock models.ProductSku
	dbtest.Reload(t, conn, &stock, sku.ID)
	assert.Equal(t, 5, stock.Quantity)
}

func TestSweepSkipsPaidOrders(t *testing.T) {
	ctx := context.Background()
	sweeper, conn := newTestSweeper(t)
	now := time.Now().UTC()
	user := dbtest.SeedUser(t, conn)
	sku := dbtest.SeedSku(t, conn, 1000, 5)
	order := placeOrder(t, conn, user, sku, 2, nil, now.Add(-time.Hour))

	paid, err := NewRepository(conn).MarkPaid(ctx, order.ID, now)
	require.NoError(t, err)
	require.True(t, paid)

	result, err := sweeper.Sweep(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Zero(t, result.OrdersCancelled)

	var stock models.ProductSku
	dbtest.Reload(t, conn, &stock, sku.ID)
	assert.Equal(t, 3, stock.Quantity)
}

func TestSweepNeverDrivesUsageNegative(t *testing.T) {
	ctx := context.Background()
	sweeper, conn := newTestSweeper(t)
	now := time.Now().UTC()
	user := dbtest.SeedUser(t, conn)
	sku := dbtest.SeedSku(t, conn, 1000, 5)
	promo := dbtest.SeedPromocode(t, conn, enums.PromocodeTypeFixed, 100, 3, now)
	placeOrder(t, conn, user, sku, 1, &promo, now.Add(-time.Hour))

	require.NoError(t, conn.Model(&models.Promocode{}).Where("id = ?", promo.ID).Update("usage_count", 0).Error)

	result, err := sweeper.Sweep(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersCancelled)
	assert.Zero(t, result.PromocodesReleased)

	var code models.Promocode
	dbtest.Reload(t, conn, &code, promo.ID)
	assert.Equal(t, 0, code.UsageCount)
}
