package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskly/internal/cancellation"
	"deskly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingLedger records settled refunds on the booking
type BookingLedger interface {
	RecordRefund(ctx context.Context, bookingID, transactionID uuid.UUID, amount decimal.Decimal, currency string, processedAt time.Time) error
}

// Service settles refunds through a provider and keeps the transaction record.
// It implements cancellation.PaymentGateway.
type Service struct {
	repo     Repository
	provider Provider
	ledger   BookingLedger
	logger   *logger.Logger
	now      func() time.Time
}

var _ cancellation.PaymentGateway = (*Service)(nil)

func NewService(repo Repository, provider Provider, ledger BookingLedger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		ledger:   ledger,
		logger:   log,
		now:      time.Now,
	}
}

// ProcessRefund issues one refund. A declined refund is reported in the result;
// transport and storage failures are returned as errors.
func (s *Service) ProcessRefund(ctx context.Context, input cancellation.RefundInput) (*cancellation.RefundResult, error) {
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("refund amount cannot be negative: %s", input.Amount.StringFixed(2))
	}
	if input.Amount.IsZero() {
		s.logger.Info("nothing to refund, skipping provider",
			"request_id", input.RequestID.String(),
			"booking_id", input.BookingID.String(),
		)
		return &cancellation.RefundResult{Success: true}, nil
	}

	tx := &RefundTransaction{
		ID:                    uuid.New(),
		CancellationRequestID: input.RequestID,
		BookingID:             input.BookingID,
		Amount:                input.Amount.Round(2),
		Currency:              input.Currency,
		OriginalTransactionID: input.PaymentReference,
		Status:                TransactionPending,
		GatewayProvider:       s.provider.Name(),
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, tx.ID, []TransactionStatus{TransactionPending}, TransactionProcessing, nil); err != nil {
		return nil, err
	}

	resp, err := s.provider.Refund(ctx, ProviderRefundRequest{
		PaymentReference: input.PaymentReference,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		Reason:           input.Reason,
		IdempotencyKey:   tx.ID.String(),
	})
	if err != nil {
		s.markFailed(context.WithoutCancel(ctx), tx, err)

		var declined *DeclinedError
		if errors.As(err, &declined) {
			return &cancellation.RefundResult{Success: false, TransactionID: tx.ID, Error: declined.Error()}, nil
		}
		return nil, fmt.Errorf("refund via %s failed: %w", tx.GatewayProvider, err)
	}

	processedAt := s.now().UTC()
	err = s.repo.UpdateStatus(ctx, tx.ID, []TransactionStatus{TransactionProcessing}, TransactionCompleted, map[string]interface{}{
		"gateway_transaction_id": resp.ID,
		"processed_at":           processedAt,
	})
	if err != nil {
		// The provider already moved the money; the record is fixed up by reconciliation
		s.logger.ErrorWithContext(ctx, "failed to mark refund transaction completed", err, map[string]interface{}{
			"transaction_id":         tx.ID.String(),
			"gateway_transaction_id": resp.ID,
		})
	}

	if s.ledger != nil {
		if err := s.ledger.RecordRefund(ctx, tx.BookingID, tx.ID, tx.Amount, tx.Currency, processedAt); err != nil {
			s.logger.ErrorWithContext(ctx, "failed to record refund on booking", err, map[string]interface{}{
				"transaction_id": tx.ID.String(),
				"booking_id":     tx.BookingID.String(),
			})
		}
	}

	s.logger.Info("refund processed",
		"transaction_id", tx.ID.String(),
		"gateway_transaction_id", resp.ID,
		"amount", tx.Amount.StringFixed(2),
		"currency", tx.Currency,
	)

	return &cancellation.RefundResult{Success: true, TransactionID: tx.ID}, nil
}

func (s *Service) markFailed(ctx context.Context, tx *RefundTransaction, cause error) {
	err := s.repo.UpdateStatus(ctx, tx.ID, []TransactionStatus{TransactionProcessing}, TransactionFailed, map[string]interface{}{
		"gateway_error": cause.Error(),
	})
	if err != nil {
		s.logger.ErrorWithContext(ctx, "failed to mark refund transaction failed", err, map[string]interface{}{
			"transaction_id": tx.ID.String(),
		})
	}
}
