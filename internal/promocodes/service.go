package promocodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxCodeLength = 64

type repository interface {
	Create(ctx context.Context, code *models.Promocode) error
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
}

// CreateInput carries the fields for a new promocode.
type CreateInput struct {
	Code          string
	Type          enums.PromocodeType
	DiscountValue int64
	UsageLimit    int
	ValidFrom     time.Time
	ValidTo       time.Time
}

// Service administers promocodes.
type Service struct {
	repo repository
}

// NewService builds a promocode service.
func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promocode repository required")
	}
	return &Service{repo: repo}, nil
}

// Create validates and stores a new promocode.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Promocode, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	code := &models.Promocode{
		Code:          NormalizeCode(input.Code),
		Type:          input.Type,
		DiscountValue: input.DiscountValue,
		UsageLimit:    input.UsageLimit,
		ValidFrom:     input.ValidFrom.UTC(),
		ValidTo:       input.ValidTo.UTC(),
	}
	if err := s.repo.Create(ctx, code); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promocode already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promocode")
	}
	return code, nil
}

// GetByCode returns the promocode or NotFound.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Promocode, error) {
	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
	}
	return row, nil
}

func (in CreateInput) validate() error {
	code := NormalizeCode(in.Code)
	switch {
	case code == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	case len(code) > maxCodeLength:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("code must be at most %d characters", maxCodeLength))
	case !in.Type.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid promocode type %q", in.Type))
	case in.DiscountValue <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	case in.Type == enums.PromocodeTypePercent && in.DiscountValue >= 100:
		return pkgerrors.New(pkgerrors.CodeValidation, "percent discount must be below 100")
	case in.UsageLimit < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be at least 1")
	case in.ValidFrom.IsZero() || in.ValidTo.IsZero():
		return pkgerrors.New(pkgerrors.CodeValidation, "validity window is required")
	case !in.ValidFrom.Before(in.ValidTo):
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_to")
	}
	return nil
}
