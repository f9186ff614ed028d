package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus tracks a refund through the provider
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionProcessing TransactionStatus = "processing"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionFailed     TransactionStatus = "failed"
	TransactionCancelled  TransactionStatus = "cancelled"
)

// RefundTransaction records one refund attempt against a captured payment
type RefundTransaction struct {
	ID                    uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CancellationRequestID uuid.UUID         `gorm:"type:uuid;not null;index" json:"cancellation_request_id"`
	BookingID             uuid.UUID         `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount                decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency              string            `gorm:"type:varchar(3);not null" json:"currency"`
	OriginalTransactionID string            `gorm:"type:varchar(255);not null" json:"original_transaction_id"`
	Status                TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	GatewayProvider       string            `gorm:"type:varchar(50);not null" json:"gateway_provider"`
	GatewayTransactionID  string            `gorm:"type:varchar(255)" json:"gateway_transaction_id,omitempty"`
	GatewayError          string            `gorm:"type:text" json:"gateway_error,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
}

// TableName sets the table name for RefundTransaction
func (RefundTransaction) TableName() string {
	return "refund_transactions"
}
