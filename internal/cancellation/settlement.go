package cancellation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var settleFrom = []RequestStatus{StatusApproved, StatusProcessing}

// settle pays out an approved or processing request. It never returns an error:
// every outcome is recorded on the request as completed or failed.
func (s *service) settle(ctx context.Context, request *CancellationRequest) {
	// The outcome is recorded even when the caller goes away mid-settlement
	ctx = context.WithoutCancel(ctx)

	booking, err := s.bookings.GetBooking(ctx, request.BookingID)
	if err != nil {
		s.fail(ctx, request, fmt.Sprintf("failed to load booking for settlement: %v", err))
		return
	}

	if booking.PaymentReference == "" {
		// No captured payment to refund against. The request is completed without any money movement.
		s.logger.Warn("completing cancellation without a payment reference, no refund was issued",
			"request_id", request.ID.String(),
			"booking_id", request.BookingID.String(),
		)
		s.complete(ctx, request, nil)
		return
	}

	if request.Status != StatusProcessing {
		if err := s.repo.Transition(ctx, request.ID, []RequestStatus{StatusApproved}, StatusProcessing, nil); err != nil {
			s.logger.ErrorWithContext(ctx, "failed to move cancellation request to processing", err, map[string]interface{}{
				"request_id": request.ID.String(),
			})
			s.fail(ctx, request, fmt.Sprintf("failed to start refund processing: %v", err))
			return
		}
		request.Status = StatusProcessing
	}

	amount := request.RefundAmountDue()
	result, err := s.callGateway(ctx, RefundInput{
		RequestID:        request.ID,
		BookingID:        request.BookingID,
		Amount:           amount,
		Currency:         request.Currency,
		PaymentReference: booking.PaymentReference,
		Reason:           RefundReasonCustomerRequest,
	})
	if err != nil {
		s.fail(ctx, request, err.Error())
		return
	}
	if result == nil || !result.Success {
		reason := "payment gateway declined the refund"
		if result != nil && result.Error != "" {
			reason = result.Error
		}
		s.fail(ctx, request, reason)
		return
	}

	var txID *uuid.UUID
	if result.TransactionID != uuid.Nil {
		id := result.TransactionID
		txID = &id
	}
	s.complete(ctx, request, txID)
}

func (s *service) callGateway(ctx context.Context, input RefundInput) (result *RefundResult, err error) {
	if s.gateway == nil {
		return nil, errors.New("payment gateway is not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("payment gateway panicked: %v", r)
		}
	}()
	return s.gateway.ProcessRefund(ctx, input)
}

func (s *service) complete(ctx context.Context, request *CancellationRequest, transactionID *uuid.UUID) {
	now := s.calculator.Now().UTC()
	fields := map[string]interface{}{
		"processed_at":   now,
		"failure_reason": "",
	}
	if transactionID != nil {
		fields["refund_transaction_id"] = *transactionID
	}

	if err := s.repo.Transition(ctx, request.ID, settleFrom, StatusCompleted, fields); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to mark cancellation request completed", err, map[string]interface{}{
			"request_id": request.ID.String(),
		})
		return
	}

	request.Status = StatusCompleted
	request.ProcessedAt = &now
	request.FailureReason = ""
	request.RefundTransactionID = transactionID
	request.UpdatedAt = now

	s.logger.LogRefundSettlement(ctx, request.ID.String(), string(StatusCompleted), request.RefundAmountDue().StringFixed(2), "")
}

func (s *service) fail(ctx context.Context, request *CancellationRequest, reason string) {
	now := s.calculator.Now().UTC()
	fields := map[string]interface{}{
		"failure_reason": reason,
	}

	if err := s.repo.Transition(ctx, request.ID, settleFrom, StatusFailed, fields); err != nil {
		s.logger.ErrorWithContext(ctx, "failed to mark cancellation request failed", err, map[string]interface{}{
			"request_id":     request.ID.String(),
			"failure_reason": reason,
		})
		return
	}

	request.Status = StatusFailed
	request.FailureReason = reason
	request.UpdatedAt = now

	s.logger.LogRefundSettlement(ctx, request.ID.String(), string(StatusFailed), request.RefundAmountDue().StringFixed(2), reason)
}
