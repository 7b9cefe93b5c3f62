package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new unverified user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkVerified flips an unverified user to verified. It reports false when
// the user was already verified.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{"is_verified": true, "verified_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PurgeUnverifiedBefore deletes unverified users created before cutoff that
// never placed an order, together with their carts. Callers run it inside a
// transaction.
func (r *Repository) PurgeUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.db.WithContext(ctx)
	stale := db.Model(&models.User{}).
		Select("id").
		Where("is_verified = ? AND created_at < ?", false, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.user_id = users.id)")
	carts := db.Model(&models.Cart{}).Select("id").Where("user_id IN (?)", stale)

	if err := db.Where("cart_id IN (?)", carts).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	if err := db.Where("user_id IN (?)", stale).Delete(&models.Cart{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("id IN (?)", stale).Delete(&models.User{})
	return res.RowsAffected, res.Error
}
