// Package users covers account verification and the cleanup of accounts that
// never verified.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the users service.
type ServiceParams struct {
	DB    txRunner
	Users *Repository
	Carts *cart.Repository
}

// Service verifies and purges accounts.
type Service struct {
	db    txRunner
	users *Repository
	carts *cart.Repository
	now   func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &Service{
		db:    params.DB,
		users: params.Users,
		carts: params.Carts,
		now:   time.Now,
	}, nil
}

// Get returns the account.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// Verify marks the account verified and creates its cart in the same
// transaction. Verifying twice is harmless.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	var verified *UserDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := users.MarkVerified(ctx, userID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify user")
		}
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if _, err := s.carts.WithTx(tx).EnsureForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		verified = FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// PurgeUnverifiedBefore removes accounts that stayed unverified past cutoff
// and never ordered. It returns the number of deleted users.
func (s *Service) PurgeUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.users.WithTx(tx).PurgeUnverifiedBefore(ctx, cutoff.UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge unverified users")
		}
		purged = n
		return nil
	})
	return purged, err
}
