package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound        = errors.New("cancellation request not found")
	ErrDuplicateActiveRequest = errors.New("an active cancellation request already exists for this booking")
	ErrStatusConflict         = errors.New("cancellation request is no longer in the expected status")
)

// Repository interface defines the contract for cancellation request storage
type Repository interface {
	Create(ctx context.Context, request *CancellationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filters RequestFilters) ([]CancellationRequest, int64, error)
	ListPendingAutomatic(ctx context.Context, limit int) ([]CancellationRequest, error)

	// Transition moves a request to status `to` only if it is currently in one of `from`.
	// Returns ErrStatusConflict when no row matched.
	Transition(ctx context.Context, id uuid.UUID, from []RequestStatus, to RequestStatus, fields map[string]interface{}) error
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new cancellation repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new request; the partial unique index rejects a second active request
func (r *repository) Create(ctx context.Context, request *CancellationRequest) error {
	err := r.db.WithContext(ctx).Create(request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateActiveRequest
		}
		return fmt.Errorf("failed to create cancellation request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by its ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	var request CancellationRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation request: %w", err)
	}
	return &request, nil
}

// FindActiveByBooking returns the active request for a booking, or ErrRequestNotFound
func (r *repository) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	var request CancellationRequest
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID, ActiveStatuses).
		Order("created_at DESC").
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find active cancellation request: %w", err)
	}
	return &request, nil
}

// ListByOwner retrieves a page of requests for an owner's listings, newest first
func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filters RequestFilters) ([]CancellationRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&CancellationRequest{}).Where("owner_id = ?", ownerID)

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ListingID != nil {
		query = query.Where("listing_id = ?", *filters.ListingID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("created_at <= ?", *filters.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cancellation requests: %w", err)
	}

	var requests []CancellationRequest
	offset := (filters.Page - 1) * filters.Limit
	err := query.Order("created_at DESC").Offset(offset).Limit(filters.Limit).Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cancellation requests: %w", err)
	}

	return requests, total, nil
}

// ListPendingAutomatic returns automatic requests that were never processed, oldest first
func (r *repository) ListPendingAutomatic(ctx context.Context, limit int) ([]CancellationRequest, error) {
	var requests []CancellationRequest
	err := r.db.WithContext(ctx).
		Where("is_automatic = ? AND status = ?", true, StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending automatic requests: %w", err)
	}
	return requests, nil
}

// Transition performs a conditional status update in a single statement
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []RequestStatus, to RequestStatus, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&CancellationRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update cancellation request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
