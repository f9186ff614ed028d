package bookings

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is a client's reservation of a workspace listing
type Booking struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	ListingID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"listing_id"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	EndDate          time.Time       `gorm:"not null" json:"end_date"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status           Status          `gorm:"type:varchar(20);check:status IN ('PENDING', 'CONFIRMED', 'CANCELLED', 'COMPLETED');default:'CONFIRMED'" json:"status"`
	PaymentReference string          `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	Refunds          RefundLedger    `gorm:"type:jsonb;not null;default:'[]'" json:"refunds"`
	BookingRef       string          `gorm:"unique;not null" json:"booking_ref"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// RefundEntry is one settled refund recorded against a booking
type RefundEntry struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

// RefundLedger is stored as a JSONB array on the booking row
type RefundLedger []RefundEntry

func (l RefundLedger) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *RefundLedger) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = RefundLedger{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("refund ledger: unsupported scan type")
	}
	return json.Unmarshal(data, l)
}

// TotalRefunded sums every recorded refund
func (l RefundLedger) TotalRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		total = total.Add(e.Amount)
	}
	return total
}

// BookingListQuery filters a user's bookings
type BookingListQuery struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Status    string `form:"status"`
	ListingID string `form:"listing_id"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

