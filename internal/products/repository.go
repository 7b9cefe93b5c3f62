package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Repository reads SKUs and applies conditional stock changes. Stock is only
// written from checkout and the expiration sweep.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindSkuByID loads a SKU with its product.
func (r *Repository) FindSkuByID(ctx context.Context, id uuid.UUID) (*models.ProductSku, error) {
	var sku models.ProductSku
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		First(&sku).Error
	if err != nil {
		return nil, err
	}
	return &sku, nil
}

// CreateProduct inserts a product together with its SKUs. SKUs with unusable
// pricing are rejected before anything is written.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product, skus []models.ProductSku) error {
	for _, sku := range skus {
		if err := sku.ValidatePricing(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
				WithDetails(map[string]any{"sku_code": sku.Code})
		}
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return err
	}
	if len(skus) == 0 {
		return nil
	}
	for i := range skus {
		skus[i].ProductID = product.ID
	}
	return r.db.WithContext(ctx).Create(&skus).Error
}

// DecrementStock removes qty units when at least qty are available. It
// reports false when the row did not have enough stock.
func (r *Repository) DecrementStock(ctx context.Context, skuID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductSku{}).
		Where("id = ? AND quantity >= ?", skuID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock returns qty units to the SKU.
func (r *Repository) RestoreStock(ctx context.Context, skuID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductSku{}).
		Where("id = ?", skuID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error
}
