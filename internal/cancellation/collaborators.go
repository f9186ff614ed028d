package cancellation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrListingNotFound = errors.New("listing not found")
)

// Booking statuses as seen by the cancellation flow
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

var cancellableBookingStatuses = map[string]bool{
	BookingStatusPending:   true,
	BookingStatusConfirmed: true,
}

// BookingInfo represents booking information for cancellation (to avoid circular dependency)
type BookingInfo struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	ListingID        uuid.UUID       `json:"listing_id"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	PaymentReference string          `json:"payment_reference"`
}

// BookingStore reads bookings and writes their status. Implementations return ErrBookingNotFound.
type BookingStore interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingInfo, error)
	MarkCancelled(ctx context.Context, bookingID uuid.UUID) error
	// RestoreStatus only reverts a booking that is currently cancelled; otherwise it is a no-op
	RestoreStatus(ctx context.Context, bookingID uuid.UUID, status string) error
}

// ListingInfo is the listing data the cancellation flow needs
type ListingInfo struct {
	ID      uuid.UUID           `json:"id"`
	OwnerID uuid.UUID           `json:"owner_id"`
	Title   string              `json:"title"`
	Policy  *CancellationPolicy `json:"cancellation_policy,omitempty"`
}

// ListingStore reads listings and persists their policy. Implementations return ErrListingNotFound.
type ListingStore interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingInfo, error)
	SaveCancellationPolicy(ctx context.Context, listingID uuid.UUID, policy CancellationPolicy) error
}

// NotificationResult reports whether a notification went out
type NotificationResult struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
}

// Notifier sends cancellation notifications. Methods never panic or return errors; failures are reported in the result.
type Notifier interface {
	SendCancellationConfirmation(ctx context.Context, requestID uuid.UUID) NotificationResult
	SendRefundRequestNotification(ctx context.Context, requestID uuid.UUID) NotificationResult
	SendRefundApproved(ctx context.Context, requestID uuid.UUID) NotificationResult
	SendRefundRejected(ctx context.Context, requestID uuid.UUID) NotificationResult
	SendAutomaticRefundProcessed(ctx context.Context, requestID uuid.UUID) NotificationResult
}

// RefundReasonCustomerRequest is the reason code sent to the payment gateway
const RefundReasonCustomerRequest = "requested_by_customer"

// RefundInput is what settlement asks the payment gateway to refund
type RefundInput struct {
	RequestID        uuid.UUID
	BookingID        uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	PaymentReference string
	Reason           string
}

// RefundResult is the gateway's answer
type RefundResult struct {
	Success       bool
	TransactionID uuid.UUID
	Error         string
}

// PaymentGateway settles refunds and owns the refund transaction record
type PaymentGateway interface {
	ProcessRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
}
