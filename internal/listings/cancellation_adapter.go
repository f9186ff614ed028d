package listings

import (
	"context"
	"errors"

	"deskly/internal/cancellation"

	"github.com/google/uuid"
)

// CancellationAdapter implements cancellation.ListingStore on the listing repository
type CancellationAdapter struct {
	repo Repository
}

func NewCancellationAdapter(repo Repository) *CancellationAdapter {
	return &CancellationAdapter{repo: repo}
}

func (a *CancellationAdapter) GetListing(ctx context.Context, listingID uuid.UUID) (*cancellation.ListingInfo, error) {
	listing, err := a.repo.GetListingByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, cancellation.ErrListingNotFound
		}
		return nil, err
	}

	return &cancellation.ListingInfo{
		ID:      listing.ID,
		OwnerID: listing.OwnerID,
		Title:   listing.Title,
		Policy:  listing.CancellationPolicy,
	}, nil
}

func (a *CancellationAdapter) SaveCancellationPolicy(ctx context.Context, listingID uuid.UUID, policy cancellation.CancellationPolicy) error {
	err := a.repo.UpdateCancellationPolicy(ctx, listingID, policy)
	if errors.Is(err, ErrListingNotFound) {
		return cancellation.ErrListingNotFound
	}
	return err
}
