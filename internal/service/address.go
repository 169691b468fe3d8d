package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CreateAddressInput holds the fields of a new shipping address.
type CreateAddressInput struct {
	Street       string `json:"street" validate:"required,min=5,max=200"`
	BuildingName string `json:"building_name" validate:"max=100"`
	City         string `json:"city" validate:"required,min=2,max=100"`
	State        string `json:"state" validate:"max=100"`
	Country      string `json:"country" validate:"required,min=2,max=100"`
	Pincode      string `json:"pincode" validate:"required,min=3,max=12"`
}

// AddressService stores and resolves the user's shipping addresses.
type AddressService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAddressService creates a new address service.
func NewAddressService(store repository.Store, logger *slog.Logger) *AddressService {
	return &AddressService{store: store, logger: logger, now: utcNow}
}

// CreateAddress stores a new address owned by user.
func (s *AddressService) CreateAddress(ctx context.Context, user domain.User, input CreateAddressInput) (*domain.Address, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	address := &domain.Address{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Street:       input.Street,
		BuildingName: input.BuildingName,
		City:         input.City,
		State:        input.State,
		Country:      input.Country,
		Pincode:      input.Pincode,
		CreatedAt:    s.now(),
	}
	if err := s.store.Repos().Addresses.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	s.logger.InfoContext(ctx, "address created",
		slog.String("address_id", address.ID),
		slog.String("user_id", user.ID),
	)
	return address, nil
}

// GetAddress returns one of the user's addresses. Addresses owned by other
// users are reported as not found.
func (s *AddressService) GetAddress(ctx context.Context, user domain.User, id string) (*domain.Address, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	address, err := s.store.Repos().Addresses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("address", id)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	if address.UserID != user.ID {
		return nil, apperrors.NotFound("address", id)
	}
	return address, nil
}
