package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskly/internal/cancellation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrListingNotFound = errors.New("listing not found")

// Repository interface for listing operations
type Repository interface {
	CreateListing(ctx context.Context, listing *Listing) error
	GetListingByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	GetListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Listing, error)
	UpdateCancellationPolicy(ctx context.Context, id uuid.UUID, policy cancellation.CancellationPolicy) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new listing repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateListing(ctx context.Context, listing *Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *repository) GetListingByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (r *repository) GetListingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// UpdateCancellationPolicy replaces the policy column only
func (r *repository) UpdateCancellationPolicy(ctx context.Context, id uuid.UUID, policy cancellation.CancellationPolicy) error {
	result := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cancellation_policy": policy,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update cancellation policy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}
