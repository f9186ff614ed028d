package cancellation

import (
	"context"
	"errors"
	"time"

	"deskly/internal/shared/apperrors"
	"deskly/internal/shared/constants"
	"deskly/pkg/logger"

	"github.com/google/uuid"
)

// PolicyCache is the subset of the cache service the policy manager uses
type PolicyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PolicyManager validates, stores and reads per-listing cancellation policies
type PolicyManager struct {
	listings ListingStore
	cache    PolicyCache
	ttl      time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewPolicyManager creates a policy manager. cache may be nil.
func NewPolicyManager(listings ListingStore, cache PolicyCache, log *logger.Logger) *PolicyManager {
	if log == nil {
		log = logger.GetDefault()
	}
	return &PolicyManager{
		listings: listings,
		cache:    cache,
		ttl:      constants.TTL_CANCELLATION_POLICY,
		logger:   log,
		now:      time.Now,
	}
}

// SetCacheTTL overrides how long policies stay cached
func (m *PolicyManager) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		m.ttl = ttl
	}
}

// SetPolicy validates and stores a listing's policy on behalf of its owner
func (m *PolicyManager) SetPolicy(ctx context.Context, listingID, ownerID uuid.UUID, input CancellationPolicy) (*CancellationPolicy, error) {
	listing, err := m.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, listingError(err)
	}
	if listing.OwnerID != ownerID {
		return nil, apperrors.Authorization("only the listing owner can change its cancellation policy")
	}

	result := ValidatePolicy(input)
	if !result.Valid {
		return nil, apperrors.Validation("invalid cancellation policy", result.Errors...)
	}

	now := m.now().UTC()
	policy := input.clone()
	policy.Tiers = sortedTiers(policy.Tiers)
	policy.CreatedAt = now
	if listing.Policy != nil && !listing.Policy.CreatedAt.IsZero() {
		policy.CreatedAt = listing.Policy.CreatedAt
	}
	policy.UpdatedAt = now

	if err := m.listings.SaveCancellationPolicy(ctx, listingID, policy); err != nil {
		return nil, listingError(err)
	}

	if m.cache != nil {
		if err := m.cache.Delete(ctx, constants.BuildCancellationPolicyKey(listingID.String())); err != nil {
			m.logger.WithError(err).Warn("failed to invalidate cancellation policy cache", "listing_id", listingID.String())
		}
	}

	return &policy, nil
}

// GetPolicy returns the listing's policy or the default preset. It never writes to the listing.
func (m *PolicyManager) GetPolicy(ctx context.Context, listingID uuid.UUID) (*CancellationPolicy, error) {
	key := constants.BuildCancellationPolicyKey(listingID.String())

	if m.cache != nil {
		var cached CancellationPolicy
		if err := m.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	listing, err := m.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, listingError(err)
	}

	var policy CancellationPolicy
	if listing.Policy != nil {
		policy = listing.Policy.clone()
	} else {
		policy = DefaultPolicy()
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, policy, m.ttl); err != nil {
			m.logger.WithError(err).Debug("failed to cache cancellation policy", "listing_id", listingID.String())
		}
	}

	return &policy, nil
}

// ValidatePolicy checks a policy without storing it
func (m *PolicyManager) ValidatePolicy(policy CancellationPolicy) PolicyValidationResult {
	return ValidatePolicy(policy)
}

// GetPolicyTemplates returns the named presets
func (m *PolicyManager) GetPolicyTemplates() map[PolicyType]CancellationPolicy {
	return PolicyTemplates()
}

func listingError(err error) error {
	if errors.Is(err, ErrListingNotFound) {
		return apperrors.NotFound("listing not found")
	}
	return apperrors.Internal("failed to access listing", err)
}
