package promocodes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists promocodes. Usage counters only move through Consume
// and Release.
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

// Create inserts a promocode.
func (r *Repository) Create(ctx context.Context, code *models.Promocode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// FindByID loads a promocode by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promocode, error) {
	var code models.Promocode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// FindByCode loads a promocode by its normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	var row models.Promocode
	if err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Consume increments usage by one while the code is inside its window and
// below its limit. It reports false when the conditions no longer hold.
func (r *Repository) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ? AND usage_count < usage_limit AND valid_from <= ? AND valid_to > ?", id, now, now).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release decrements usage by one, never below zero. It reports false when
// the counter was already zero.
func (r *Repository) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ? AND usage_count > 0", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
