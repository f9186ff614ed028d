package cancellation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of a cancellation request
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// ActiveStatuses block a new request for the same booking
var ActiveStatuses = []RequestStatus{StatusPending, StatusApproved, StatusProcessing, StatusCompleted}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Reason is the client-selected cancellation reason
type Reason string

const (
	ReasonChangeOfPlans    Reason = "change_of_plans"
	ReasonFoundAlternative Reason = "found_alternative"
	ReasonEmergency        Reason = "emergency"
	ReasonWorkspaceIssue   Reason = "workspace_issue"
	ReasonHostRequest      Reason = "host_request"
	ReasonOther            Reason = "other"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonChangeOfPlans, ReasonFoundAlternative, ReasonEmergency, ReasonWorkspaceIssue, ReasonHostRequest, ReasonOther:
		return true
	}
	return false
}

// CancellationRequest records one cancellation attempt on a booking
type CancellationRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index" json:"booking_id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;index" json:"listing_id"`

	// Booking snapshot taken at creation
	BookingStartDate       time.Time       `gorm:"not null" json:"booking_start_date"`
	BookingEndDate         time.Time       `gorm:"not null" json:"booking_end_date"`
	BookingAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"booking_amount"`
	Currency               string          `gorm:"type:varchar(3);not null" json:"currency"`
	BookingStatusAtRequest string          `gorm:"type:varchar(20);not null" json:"booking_status_at_request"`

	RefundCalculation  RefundCalculation `gorm:"type:jsonb;not null" json:"refund_calculation"`
	CancellationReason Reason            `gorm:"type:varchar(30);not null" json:"cancellation_reason"`
	ReasonOther        string            `gorm:"type:text" json:"reason_other,omitempty"`
	Status             RequestStatus     `gorm:"type:varchar(20);not null;index;check:status IN ('pending','approved','rejected','processing','completed','failed')" json:"status"`
	IsAutomatic        bool              `gorm:"not null" json:"is_automatic"`

	ApprovedBy          *uuid.UUID       `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time       `json:"approved_at,omitempty"`
	RejectedBy          *uuid.UUID       `gorm:"type:uuid" json:"rejected_by,omitempty"`
	RejectedAt          *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason     string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	CustomRefundAmount  *decimal.Decimal `gorm:"type:numeric(12,2)" json:"custom_refund_amount,omitempty"`
	CustomRefundNote    string           `gorm:"type:text" json:"custom_refund_note,omitempty"`
	FailureReason       string           `gorm:"type:text" json:"failure_reason,omitempty"`
	RetryCount          int              `gorm:"not null;default:0" json:"retry_count"`
	RefundTransactionID *uuid.UUID       `gorm:"type:uuid" json:"refund_transaction_id,omitempty"`
	ProcessedAt         *time.Time       `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for CancellationRequest
func (CancellationRequest) TableName() string {
	return "cancellation_requests"
}

// RefundAmountDue is the amount settlement sends to the gateway
func (r *CancellationRequest) RefundAmountDue() decimal.Decimal {
	if r.CustomRefundAmount != nil {
		return *r.CustomRefundAmount
	}
	return r.RefundCalculation.FinalRefund
}

// RequestFilters narrows an owner's request listing
type RequestFilters struct {
	Status    RequestStatus
	ListingID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// RequestPage is one page of requests, newest first
type RequestPage struct {
	Requests   []CancellationRequest `json:"requests"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"total_pages"`
}
