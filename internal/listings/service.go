package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskly/internal/cancellation"
	"deskly/internal/shared/apperrors"

	"github.com/google/uuid"
)

type Service interface {
	CreateListing(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest) (*Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	GetOwnerListings(ctx context.Context, ownerID uuid.UUID) ([]Listing, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateListing(ctx context.Context, ownerID uuid.UUID, req CreateListingRequest) (*Listing, error) {
	if !req.HourlyRate.IsPositive() {
		return nil, apperrors.Validation("hourly rate must be positive")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	listing := &Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		City:        req.City,
		Address:     req.Address,
		Capacity:    req.Capacity,
		HourlyRate:  req.HourlyRate.Round(2),
		Currency:    currency,
	}

	// Without a template the listing falls back to the default policy on read
	if req.PolicyTemplate != "" {
		preset, ok := cancellation.PolicyTemplates()[cancellation.PolicyType(req.PolicyTemplate)]
		if !ok {
			return nil, apperrors.Validation("unknown policy template " + req.PolicyTemplate)
		}
		now := time.Now().UTC()
		preset.CreatedAt, preset.UpdatedAt = now, now
		listing.CancellationPolicy = &preset
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, apperrors.Internal("failed to create listing", err)
	}
	return listing, nil
}

func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	listing, err := s.repo.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, apperrors.NotFound("listing not found")
		}
		return nil, apperrors.Internal("failed to load listing", err)
	}
	return listing, nil
}

func (s *service) GetOwnerListings(ctx context.Context, ownerID uuid.UUID) ([]Listing, error) {
	listings, err := s.repo.GetListingsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal("failed to list listings", err)
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}
