package bookings

import (
	"context"
	"errors"
	"time"

	"deskly/internal/cancellation"
	"deskly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancellationAdapter exposes bookings to the cancellation and payment flows
type CancellationAdapter struct {
	service Service
}

func NewCancellationAdapter(service Service) *CancellationAdapter {
	return &CancellationAdapter{service: service}
}

func (a *CancellationAdapter) GetBooking(ctx context.Context, bookingID uuid.UUID) (*cancellation.BookingInfo, error) {
	booking, err := a.service.GetBooking(ctx, bookingID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, cancellation.ErrBookingNotFound
		}
		return nil, err
	}

	return &cancellation.BookingInfo{
		ID:               booking.ID,
		UserID:           booking.UserID,
		ListingID:        booking.ListingID,
		StartDate:        booking.StartDate,
		EndDate:          booking.EndDate,
		Amount:           booking.TotalPrice,
		Currency:         booking.Currency,
		Status:           booking.Status.String(),
		PaymentReference: booking.PaymentReference,
	}, nil
}

func (a *CancellationAdapter) MarkCancelled(ctx context.Context, bookingID uuid.UUID) error {
	return translateNotFound(a.service.MarkCancelled(ctx, bookingID))
}

func (a *CancellationAdapter) RestoreStatus(ctx context.Context, bookingID uuid.UUID, status string) error {
	return translateNotFound(a.service.RestoreStatus(ctx, bookingID, Status(status)))
}

// RecordRefund appends a settled refund to the booking's ledger
func (a *CancellationAdapter) RecordRefund(ctx context.Context, bookingID, transactionID uuid.UUID, amount decimal.Decimal, currency string, processedAt time.Time) error {
	return translateNotFound(a.service.RecordRefund(ctx, bookingID, RefundEntry{
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		ProcessedAt:   processedAt,
	}))
}

func translateNotFound(err error) error {
	if errors.Is(err, ErrBookingNotFound) {
		return cancellation.ErrBookingNotFound
	}
	return err
}
