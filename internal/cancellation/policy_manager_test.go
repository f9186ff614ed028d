package cancellation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"deskly/internal/shared/apperrors"
	"deskly/pkg/cache"
	"deskly/pkg/logger"

	"github.com/google/uuid"
)

type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deletes int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return errors.New("redis: connection refused")
	}
	data, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.deletes++
	return nil
}

func TestGetPolicyDefaultsToModerateWithoutWriting(t *testing.T) {
	listingID := uuid.New()
	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: uuid.New()})
	m := NewPolicyManager(listings, nil, logger.Discard())

	policy, err := m.GetPolicy(context.Background(), listingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Type != PolicyModerate {
		t.Fatalf("type = %s, want moderate", policy.Type)
	}
	if listings.saves != 0 || listings.listings[listingID].Policy != nil {
		t.Fatal("reading a policy must not persist the default")
	}
}

func TestGetPolicyUnknownListing(t *testing.T) {
	m := NewPolicyManager(newFakeListings(), nil, logger.Discard())

	_, err := m.GetPolicy(context.Background(), uuid.New())
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetPolicyPreservesCreatedAt(t *testing.T) {
	listingID, ownerID := uuid.New(), uuid.New()
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	existing := PolicyTemplates()[PolicyFlexible]
	existing.CreatedAt = created
	existing.UpdatedAt = created

	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: ownerID, Policy: &existing})
	m := NewPolicyManager(listings, nil, logger.Discard())
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	policy, err := m.SetPolicy(context.Background(), listingID, ownerID, PolicyTemplates()[PolicyStrict])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !policy.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", policy.CreatedAt, created)
	}
	if !policy.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %v, want %v", policy.UpdatedAt, now)
	}
	if stored := listings.listings[listingID].Policy; stored.Type != PolicyStrict || !stored.CreatedAt.Equal(created) {
		t.Fatalf("stored policy = %+v", stored)
	}
}

func TestSetPolicyStoresTiersSorted(t *testing.T) {
	listingID, ownerID := uuid.New(), uuid.New()
	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: ownerID})
	m := NewPolicyManager(listings, nil, logger.Discard())

	input := CancellationPolicy{
		Type:              PolicyCustom,
		AllowCancellation: true,
		Tiers: []PolicyTier{
			{HoursBeforeBooking: 0, RefundPercentage: 25, Description: "late"},
			{HoursBeforeBooking: 72, RefundPercentage: 100, Description: "early"},
		},
	}
	policy, err := m.SetPolicy(context.Background(), listingID, ownerID, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Tiers[0].HoursBeforeBooking != 72 {
		t.Fatalf("tiers not sorted: %+v", policy.Tiers)
	}
	if input.Tiers[0].HoursBeforeBooking != 0 {
		t.Fatal("input tiers were mutated")
	}
	if policy.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set on first save")
	}
}

func TestSetPolicyRejections(t *testing.T) {
	listingID, ownerID := uuid.New(), uuid.New()
	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: ownerID})
	m := NewPolicyManager(listings, nil, logger.Discard())

	_, err := m.SetPolicy(context.Background(), listingID, uuid.New(), DefaultPolicy())
	if !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Fatalf("non-owner: expected authorization error, got %v", err)
	}

	bad := DefaultPolicy()
	bad.ProcessingFeePercentage = 150
	bad.Tiers[2].RefundPercentage = 100
	_, err = m.SetPolicy(context.Background(), listingID, ownerID, bad)
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("invalid policy: expected validation error, got %v", err)
	}
	if details := apperrors.DetailsOf(err); len(details) < 2 {
		t.Fatalf("expected every violation in details, got %v", details)
	}
	if listings.saves != 0 {
		t.Fatal("invalid policy must not be stored")
	}
}

func TestPolicyCacheReadThroughAndInvalidation(t *testing.T) {
	listingID, ownerID := uuid.New(), uuid.New()
	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: ownerID})
	memory := newMemoryCache()
	m := NewPolicyManager(listings, memory, logger.Discard())
	ctx := context.Background()

	if _, err := m.GetPolicy(ctx, listingID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(memory.items) != 1 {
		t.Fatalf("expected policy to be cached, have %d items", len(memory.items))
	}

	if _, err := m.SetPolicy(ctx, listingID, ownerID, PolicyTemplates()[PolicyStrict]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if memory.deletes != 1 || len(memory.items) != 0 {
		t.Fatal("SetPolicy should invalidate the cached policy")
	}

	policy, err := m.GetPolicy(ctx, listingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Type != PolicyStrict {
		t.Fatalf("type = %s, want strict after update", policy.Type)
	}
}

func TestPolicyCacheFailureFallsBackToStore(t *testing.T) {
	listingID := uuid.New()
	strict := PolicyTemplates()[PolicyStrict]
	listings := newFakeListings(&ListingInfo{ID: listingID, OwnerID: uuid.New(), Policy: &strict})
	memory := newMemoryCache()
	memory.failGet = true
	m := NewPolicyManager(listings, memory, logger.Discard())

	policy, err := m.GetPolicy(context.Background(), listingID)
	if err != nil {
		t.Fatalf("cache errors must not fail reads: %v", err)
	}
	if policy.Type != PolicyStrict {
		t.Fatalf("type = %s, want strict", policy.Type)
	}
}
