package cancellation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"deskly/internal/shared/apperrors"
	"deskly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// Minimum lead time for a request to skip owner approval
	automaticRefundMinHours = 24
)

// Service interface defines the contract for cancellation request handling
type Service interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*CancellationRequest, error)
	GetOwnerRequests(ctx context.Context, ownerID uuid.UUID, filters RequestFilters) (*RequestPage, error)
	GetRequest(ctx context.Context, requestID, actorID uuid.UUID) (*CancellationRequest, error)
	ApproveRequest(ctx context.Context, input ApproveInput) (*CancellationRequest, error)
	RejectRequest(ctx context.Context, input RejectInput) (*CancellationRequest, error)
	ProcessAutomaticRefund(ctx context.Context, requestID uuid.UUID) (*AutomaticRefundResult, error)
}

// CreateRequestInput is a client's cancellation request
type CreateRequestInput struct {
	BookingID   uuid.UUID
	ClientID    uuid.UUID
	Reason      Reason
	ReasonOther string
}

// ApproveInput is an owner's approval, optionally overriding the refund amount
type ApproveInput struct {
	RequestID          uuid.UUID
	OwnerID            uuid.UUID
	CustomRefundAmount *decimal.Decimal
	CustomRefundNote   string
}

// RejectInput is an owner's rejection
type RejectInput struct {
	RequestID uuid.UUID
	OwnerID   uuid.UUID
	Reason    string
}

// AutomaticRefundResult describes the settled state after automatic processing
type AutomaticRefundResult struct {
	Success bool                 `json:"success"`
	Request *CancellationRequest `json:"request"`
	Message string               `json:"message"`
}

// Dependencies wires the service to its collaborators
type Dependencies struct {
	Repo          Repository
	Policies      *PolicyManager
	Bookings      BookingStore
	Listings      ListingStore
	Gateway       PaymentGateway
	Notifications *NotificationDispatcher
	Calculator    *Calculator
	Logger        *logger.Logger
	PageSize      int
}

// service implements the Service interface
type service struct {
	repo          Repository
	policies      *PolicyManager
	bookings      BookingStore
	listings      ListingStore
	gateway       PaymentGateway
	notifications *NotificationDispatcher
	calculator    *Calculator
	logger        *logger.Logger
	pageSize      int
}

// NewService creates a new cancellation service instance
func NewService(deps Dependencies) Service {
	s := &service{
		repo:          deps.Repo,
		policies:      deps.Policies,
		bookings:      deps.Bookings,
		listings:      deps.Listings,
		gateway:       deps.Gateway,
		notifications: deps.Notifications,
		calculator:    deps.Calculator,
		logger:        deps.Logger,
		pageSize:      deps.PageSize,
	}
	if s.calculator == nil {
		s.calculator = NewCalculator(nil)
	}
	if s.logger == nil {
		s.logger = logger.GetDefault()
	}
	if s.pageSize <= 0 || s.pageSize > maxPageSize {
		s.pageSize = defaultPageSize
	}
	return s
}

// CreateRequest validates the booking and opens a pending cancellation request
func (s *service) CreateRequest(ctx context.Context, input CreateRequestInput) (*CancellationRequest, error) {
	if !input.Reason.Valid() {
		return nil, apperrors.Validation("invalid cancellation reason", fmt.Sprintf("unknown reason %q", input.Reason))
	}
	reasonOther := strings.TrimSpace(input.ReasonOther)
	if input.Reason == ReasonOther && reasonOther == "" {
		return nil, apperrors.Validation("please describe the reason for cancelling")
	}
	if input.Reason != ReasonOther {
		reasonOther = ""
	}

	booking, err := s.bookings.GetBooking(ctx, input.BookingID)
	if err != nil {
		return nil, bookingError(err)
	}
	if booking.UserID != input.ClientID {
		return nil, apperrors.Authorization("you can only cancel your own bookings")
	}

	now := s.calculator.Now()
	if err := checkEligibility(booking, now); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindActiveByBooking(ctx, booking.ID); err == nil {
		return nil, apperrors.Conflict("a cancellation request is already active for this booking")
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, apperrors.Internal("failed to check existing cancellation requests", err)
	}

	listing, err := s.listings.GetListing(ctx, booking.ListingID)
	if err != nil {
		return nil, listingError(err)
	}
	policy, err := s.policies.GetPolicy(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	if !policy.AllowCancellation {
		return nil, apperrors.Validation("this listing's cancellation policy does not allow cancellations")
	}

	calc, err := CalculateRefund(BookingSnapshot{Amount: booking.Amount, StartDate: booking.StartDate}, *policy, now)
	if err != nil {
		return nil, apperrors.Internal("failed to calculate refund", err)
	}

	request := &CancellationRequest{
		ID:                     uuid.New(),
		BookingID:              booking.ID,
		ClientID:               input.ClientID,
		OwnerID:                listing.OwnerID,
		ListingID:              booking.ListingID,
		BookingStartDate:       booking.StartDate,
		BookingEndDate:         booking.EndDate,
		BookingAmount:          booking.Amount.Round(2),
		Currency:               booking.Currency,
		BookingStatusAtRequest: booking.Status,
		RefundCalculation:      calc,
		CancellationReason:     input.Reason,
		ReasonOther:            reasonOther,
		Status:                 StatusPending,
		IsAutomatic:            isAutomaticEligible(*policy, calc),
		CreatedAt:              now.UTC(),
		UpdatedAt:              now.UTC(),
	}

	if err := s.repo.Create(ctx, request); err != nil {
		if errors.Is(err, ErrDuplicateActiveRequest) {
			return nil, apperrors.Conflict("a cancellation request is already active for this booking")
		}
		return nil, apperrors.Internal("failed to save cancellation request", err)
	}

	s.logger.LogCancellationRequested(ctx, request.ID.String(), booking.ID.String(), input.ClientID.String(), request.IsAutomatic)

	s.notifications.CancellationConfirmation(ctx, request.ID)
	if request.IsAutomatic {
		s.notifications.AutomaticRefundProcessed(ctx, request.ID)
	} else {
		s.notifications.RefundRequest(ctx, request.ID)
	}

	return request, nil
}

// GetOwnerRequests lists the requests on an owner's listings, newest first
func (s *service) GetOwnerRequests(ctx context.Context, ownerID uuid.UUID, filters RequestFilters) (*RequestPage, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.Validation("invalid status filter", fmt.Sprintf("unknown status %q", filters.Status))
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, apperrors.Validation("invalid date range: from must not be after to")
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = s.pageSize
	}
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}

	requests, total, err := s.repo.ListByOwner(ctx, ownerID, filters)
	if err != nil {
		return nil, apperrors.Internal("failed to list cancellation requests", err)
	}
	if requests == nil {
		requests = []CancellationRequest{}
	}

	return &RequestPage{
		Requests:   requests,
		Total:      total,
		Page:       filters.Page,
		Limit:      filters.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filters.Limit))),
	}, nil
}

// GetRequest returns a request visible to its client or owner
func (s *service) GetRequest(ctx context.Context, requestID, actorID uuid.UUID) (*CancellationRequest, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ClientID != actorID && request.OwnerID != actorID {
		return nil, apperrors.Authorization("you do not have access to this cancellation request")
	}
	return request, nil
}

// ApproveRequest accepts a pending request, cancels the booking and settles the refund
func (s *service) ApproveRequest(ctx context.Context, input ApproveInput) (*CancellationRequest, error) {
	request, err := s.loadOwnedPending(ctx, input.RequestID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	calc := request.RefundCalculation
	var customAmount *decimal.Decimal
	note := strings.TrimSpace(input.CustomRefundNote)
	if input.CustomRefundAmount != nil {
		amount := input.CustomRefundAmount.Round(2)
		if amount.IsNegative() || amount.GreaterThan(request.BookingAmount) {
			return nil, apperrors.Validation(fmt.Sprintf("custom refund amount must be between 0 and %s", request.BookingAmount.StringFixed(2)))
		}
		if note == "" {
			return nil, apperrors.Validation("a note is required when overriding the refund amount")
		}
		customAmount = &amount
		calc.FinalRefund = amount
		calc.Message = "refund amount set by the owner"
	} else {
		note = ""
	}

	now := s.calculator.Now().UTC()
	fields := map[string]interface{}{
		"approved_by":          input.OwnerID,
		"approved_at":          now,
		"custom_refund_amount": customAmount,
		"custom_refund_note":   note,
		"refund_calculation":   calc,
	}
	if err := s.repo.Transition(ctx, request.ID, []RequestStatus{StatusPending}, StatusApproved, fields); err != nil {
		return nil, transitionError(err)
	}

	request.Status = StatusApproved
	request.ApprovedBy = &input.OwnerID
	request.ApprovedAt = &now
	request.CustomRefundAmount = customAmount
	request.CustomRefundNote = note
	request.RefundCalculation = calc
	request.UpdatedAt = now

	s.logger.LogCancellationResolved(ctx, request.ID.String(), input.OwnerID.String(), string(StatusApproved))

	if err := s.bookings.MarkCancelled(ctx, request.BookingID); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to mark booking cancelled", err, map[string]interface{}{
			"request_id": request.ID.String(),
			"booking_id": request.BookingID.String(),
		})
	}

	s.settle(ctx, request)

	s.notifications.RefundApproved(ctx, request.ID)

	return request, nil
}

// RejectRequest declines a pending request and restores the booking
func (s *service) RejectRequest(ctx context.Context, input RejectInput) (*CancellationRequest, error) {
	request, err := s.loadOwnedPending(ctx, input.RequestID, input.OwnerID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	now := s.calculator.Now().UTC()
	fields := map[string]interface{}{
		"rejected_by":      input.OwnerID,
		"rejected_at":      now,
		"rejection_reason": reason,
	}
	if err := s.repo.Transition(ctx, request.ID, []RequestStatus{StatusPending}, StatusRejected, fields); err != nil {
		return nil, transitionError(err)
	}

	request.Status = StatusRejected
	request.RejectedBy = &input.OwnerID
	request.RejectedAt = &now
	request.RejectionReason = reason
	request.UpdatedAt = now

	s.logger.LogCancellationResolved(ctx, request.ID.String(), input.OwnerID.String(), string(StatusRejected))

	if err := s.bookings.RestoreStatus(ctx, request.BookingID, request.BookingStatusAtRequest); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to restore booking status", err, map[string]interface{}{
			"request_id": request.ID.String(),
			"booking_id": request.BookingID.String(),
			"status":     request.BookingStatusAtRequest,
		})
	}

	s.notifications.RefundRejected(ctx, request.ID)

	return request, nil
}

// ProcessAutomaticRefund settles an automatic request without owner approval
func (s *service) ProcessAutomaticRefund(ctx context.Context, requestID uuid.UUID) (*AutomaticRefundResult, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsAutomatic {
		return nil, apperrors.Validation("this cancellation request requires owner approval")
	}
	if request.Status != StatusPending {
		return nil, apperrors.Conflict("cancellation request has already been processed")
	}

	if err := s.repo.Transition(ctx, request.ID, []RequestStatus{StatusPending}, StatusProcessing, nil); err != nil {
		return nil, transitionError(err)
	}
	request.Status = StatusProcessing
	request.UpdatedAt = s.calculator.Now().UTC()

	s.logger.LogCancellationResolved(ctx, request.ID.String(), "system", string(StatusProcessing))

	if err := s.bookings.MarkCancelled(ctx, request.BookingID); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to mark booking cancelled", err, map[string]interface{}{
			"request_id": request.ID.String(),
			"booking_id": request.BookingID.String(),
		})
	}

	s.settle(ctx, request)

	s.notifications.RefundApproved(ctx, request.ID)

	result := &AutomaticRefundResult{
		Success: request.Status == StatusCompleted,
		Request: request,
	}
	if result.Success {
		result.Message = "refund processed automatically"
	} else {
		result.Message = fmt.Sprintf("automatic refund ended in status %s", request.Status)
		if request.FailureReason != "" {
			result.Message += ": " + request.FailureReason
		}
	}

	return result, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*CancellationRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, apperrors.NotFound("cancellation request not found")
		}
		return nil, apperrors.Internal("failed to load cancellation request", err)
	}
	return request, nil
}

// loadOwnedPending loads a request and checks the caller currently owns its listing and that it is pending
func (s *service) loadOwnedPending(ctx context.Context, requestID, ownerID uuid.UUID) (*CancellationRequest, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.GetListing(ctx, request.ListingID)
	if err != nil {
		return nil, listingError(err)
	}
	if listing.OwnerID != ownerID {
		return nil, apperrors.Authorization("only the listing owner can resolve this cancellation request")
	}

	if request.Status != StatusPending {
		return nil, apperrors.Conflict("cancellation request has already been processed")
	}
	return request, nil
}

func checkEligibility(booking *BookingInfo, now time.Time) error {
	switch booking.Status {
	case BookingStatusCancelled:
		return apperrors.Validation("booking is already cancelled")
	case BookingStatusCompleted:
		return apperrors.Validation("booking has already been completed")
	}
	if !booking.StartDate.After(now) {
		return apperrors.Validation("booking has already started")
	}
	if !cancellableBookingStatuses[booking.Status] {
		return apperrors.Validation(fmt.Sprintf("bookings with status %s cannot be cancelled", booking.Status))
	}
	return nil
}

// isAutomaticEligible restricts automation to full refunds with ample notice
func isAutomaticEligible(policy CancellationPolicy, calc RefundCalculation) bool {
	return policy.AutomaticRefund &&
		calc.RefundPercentage == 100 &&
		calc.HoursUntilBooking >= automaticRefundMinHours
}

func bookingError(err error) error {
	if errors.Is(err, ErrBookingNotFound) {
		return apperrors.NotFound("booking not found")
	}
	return apperrors.Internal("failed to load booking", err)
}

func transitionError(err error) error {
	if errors.Is(err, ErrStatusConflict) {
		return apperrors.Conflict("cancellation request has already been processed")
	}
	return apperrors.Internal("failed to update cancellation request", err)
}
