package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"deskly/internal/shared/apperrors"
	"deskly/internal/shared/constants"
	"deskly/pkg/cache"
	"deskly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxPageSize = 100

// Service interface defines the contract for booking business logic
type Service interface {
	SetCacheService(cacheService cache.Service)
	SetCacheTTL(ttl time.Duration)

	CreateBooking(ctx context.Context, input CreateBookingInput) (*Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	GetBookingForUser(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*BookingListResponse, error)

	// Status writes used by the cancellation flow
	MarkCancelled(ctx context.Context, bookingID uuid.UUID) error
	RestoreStatus(ctx context.Context, bookingID uuid.UUID, status Status) error
	RecordRefund(ctx context.Context, bookingID uuid.UUID, entry RefundEntry) error
}

// CreateBookingInput describes a paid reservation
type CreateBookingInput struct {
	UserID           uuid.UUID
	ListingID        uuid.UUID
	StartDate        time.Time
	EndDate          time.Time
	TotalPrice       decimal.Decimal
	Currency         string
	Status           Status
	PaymentReference string
}

// service implements the Service interface
type service struct {
	repo         Repository
	cacheService cache.Service
	listTTL      time.Duration
	logger       *logger.Logger
}

// NewService creates a new booking service instance
func NewService(repo Repository, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{repo: repo, listTTL: constants.TTL_USER_BOOKINGS, logger: log}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SetCacheTTL overrides how long user booking pages stay cached
func (s *service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.listTTL = ttl
	}
}

func (s *service) CreateBooking(ctx context.Context, input CreateBookingInput) (*Booking, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, apperrors.Validation("booking must end after it starts")
	}
	if input.TotalPrice.IsNegative() {
		return nil, apperrors.Validation("booking price cannot be negative")
	}
	if input.Status == "" {
		input.Status = StatusConfirmed
	}
	if !input.Status.IsValid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid booking status %q", input.Status))
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}

	bookingRef, err := generateBookingReference()
	if err != nil {
		return nil, apperrors.Internal("failed to generate booking reference", err)
	}

	booking := &Booking{
		ID:               uuid.New(),
		UserID:           input.UserID,
		ListingID:        input.ListingID,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		TotalPrice:       input.TotalPrice.Round(2),
		Currency:         strings.ToUpper(input.Currency),
		Status:           input.Status,
		PaymentReference: input.PaymentReference,
		Refunds:          RefundLedger{},
		BookingRef:       bookingRef,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, apperrors.Internal("failed to create booking", err)
	}
	s.invalidateUserBookings(ctx, booking.UserID)

	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, apperrors.NotFound("booking not found")
		}
		return nil, apperrors.Internal("failed to load booking", err)
	}
	return booking, nil
}

// GetBookingForUser returns the booking when userID owns it or the caller is an admin
func (s *service) GetBookingForUser(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && booking.UserID != userID {
		return nil, apperrors.Authorization("access denied")
	}
	return booking, nil
}

func (s *service) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*BookingListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	if query.Limit > maxPageSize {
		query.Limit = maxPageSize
	}
	if query.Status != "" && !Status(query.Status).IsValid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid status filter %q", query.Status))
	}

	// Only the unfiltered listing is cached
	cacheable := query.Status == "" && query.ListingID == "" && query.DateFrom == "" && query.DateTo == ""
	cacheKey := constants.BuildUserBookingsKey(userID.String(), query.Page, query.Limit)
	if cacheable {
		var cached BookingListResponse
		if err := s.getCache(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	bookings, total, err := s.repo.GetUserBookings(ctx, userID, query)
	if err != nil {
		return nil, apperrors.Internal("failed to list bookings", err)
	}

	resp := &BookingListResponse{
		Bookings:   bookings,
		Total:      total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}
	if resp.Bookings == nil {
		resp.Bookings = []Booking{}
	}

	if cacheable {
		if err := s.setCache(ctx, cacheKey, resp, s.listTTL); err != nil {
			s.logger.WithError(err).Warn("failed to cache user bookings", "user_id", userID.String())
		}
	}
	return resp, nil
}

func (s *service) MarkCancelled(ctx context.Context, bookingID uuid.UUID) error {
	now := time.Now()
	return s.updateStatus(ctx, bookingID, StatusCancelled, &now)
}

func (s *service) RestoreStatus(ctx context.Context, bookingID uuid.UUID, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid booking status %q", status)
	}
	restored, err := s.repo.RestoreCancelled(ctx, bookingID, status)
	if err != nil {
		return err
	}
	if !restored {
		s.logger.Info("booking no longer cancelled, status left unchanged", "booking_id", bookingID.String())
		return nil
	}
	s.invalidateBooking(ctx, bookingID)
	return nil
}

func (s *service) RecordRefund(ctx context.Context, bookingID uuid.UUID, entry RefundEntry) error {
	if err := s.repo.AppendRefund(ctx, bookingID, entry); err != nil {
		return err
	}
	s.invalidateBooking(ctx, bookingID)
	return nil
}

func (s *service) updateStatus(ctx context.Context, bookingID uuid.UUID, status Status, cancelledAt *time.Time) error {
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, status, cancelledAt); err != nil {
		return err
	}
	s.invalidateBooking(ctx, bookingID)
	return nil
}

// invalidateBooking drops the owner's cached booking pages after a write
func (s *service) invalidateBooking(ctx context.Context, bookingID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load booking for cache invalidation", "booking_id", bookingID.String())
		return
	}
	s.invalidateUserBookings(ctx, booking.UserID)
}

func (s *service) invalidateUserBookings(ctx context.Context, userID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PatternUserBookings(userID.String())); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate user bookings cache", "user_id", userID.String())
	}
}

// Cache helper methods
func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.Set(ctx, key, value, ttl)
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return fmt.Errorf("cache service not available")
	}
	return s.cacheService.Get(ctx, key, dest)
}

// generateBookingReference generates a unique booking reference
func generateBookingReference() (string, error) {
	timestamp := time.Now().Format("20060102")

	// Generate 6 random uppercase letters
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("DSK-%s-%s", timestamp, string(randomPart)), nil
}
