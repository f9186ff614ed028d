package listings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"deskly/internal/cancellation"
	"deskly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*Listing
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{listings: make(map[uuid.UUID]*Listing)}
}

func (f *fakeRepo) CreateListing(_ context.Context, listing *Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *listing
	f.listings[listing.ID] = &c
	return nil
}

func (f *fakeRepo) GetListingByID(_ context.Context, id uuid.UUID) (*Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	c := *l
	return &c, nil
}

func (f *fakeRepo) GetListingsByOwner(_ context.Context, ownerID uuid.UUID) ([]Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Listing
	for _, l := range f.listings {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateCancellationPolicy(_ context.Context, id uuid.UUID, policy cancellation.CancellationPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return ErrListingNotFound
	}
	l.CancellationPolicy = &policy
	return nil
}

func validRequest() CreateListingRequest {
	return CreateListingRequest{
		Title:      "  Harbour View Desk ",
		City:       "Lisbon",
		Capacity:   4,
		HourlyRate: decimal.RequireFromString("12.505"),
	}
}

func TestCreateListingDefaults(t *testing.T) {
	svc := NewService(newFakeRepo())
	ownerID := uuid.New()

	listing, err := svc.CreateListing(context.Background(), ownerID, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if listing.Title != "Harbour View Desk" || listing.Currency != "USD" || listing.OwnerID != ownerID {
		t.Fatalf("listing = %+v", listing)
	}
	if listing.CancellationPolicy != nil {
		t.Fatalf("expected no stored policy, got %+v", listing.CancellationPolicy)
	}
	if !listing.HourlyRate.Equal(decimal.RequireFromString("12.51")) {
		t.Fatalf("hourly rate = %s", listing.HourlyRate)
	}
}

func TestCreateListingWithTemplate(t *testing.T) {
	svc := NewService(newFakeRepo())
	req := validRequest()
	req.PolicyTemplate = "strict"
	req.Currency = "eur"

	listing, err := svc.CreateListing(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if listing.Currency != "EUR" {
		t.Fatalf("currency = %s", listing.Currency)
	}
	if listing.CancellationPolicy == nil || listing.CancellationPolicy.Type != cancellation.PolicyStrict {
		t.Fatalf("policy = %+v", listing.CancellationPolicy)
	}
	if listing.CancellationPolicy.CreatedAt.IsZero() {
		t.Fatal("policy timestamps not set")
	}
}

func TestCreateListingRejectsNonPositiveRate(t *testing.T) {
	svc := NewService(newFakeRepo())
	req := validRequest()
	req.HourlyRate = decimal.Zero

	_, err := svc.CreateListing(context.Background(), uuid.New(), req)
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetListingNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.GetListing(context.Background(), uuid.New())
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetOwnerListingsEmpty(t *testing.T) {
	svc := NewService(newFakeRepo())
	listings, err := svc.GetOwnerListings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listings == nil || len(listings) != 0 {
		t.Fatalf("listings = %#v", listings)
	}
}

func TestCancellationAdapter(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	adapter := NewCancellationAdapter(repo)
	ctx := context.Background()

	listing, err := svc.CreateListing(ctx, uuid.New(), validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	info, err := adapter.GetListing(ctx, listing.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.OwnerID != listing.OwnerID || info.Policy != nil {
		t.Fatalf("info = %+v", info)
	}

	if err := adapter.SaveCancellationPolicy(ctx, listing.ID, cancellation.DefaultPolicy()); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, _ = adapter.GetListing(ctx, listing.ID)
	if info.Policy == nil || info.Policy.Type != cancellation.PolicyModerate {
		t.Fatalf("policy not saved: %+v", info.Policy)
	}

	if _, err := adapter.GetListing(ctx, uuid.New()); !errors.Is(err, cancellation.ErrListingNotFound) {
		t.Fatalf("expected cancellation.ErrListingNotFound, got %v", err)
	}
	if err := adapter.SaveCancellationPolicy(ctx, uuid.New(), cancellation.DefaultPolicy()); !errors.Is(err, cancellation.ErrListingNotFound) {
		t.Fatalf("expected cancellation.ErrListingNotFound, got %v", err)
	}
}
