package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies which cancellation email to send
type NotificationType string

const (
	NotificationTypeCancellationConfirmation NotificationType = "CANCELLATION_CONFIRMATION"
	NotificationTypeRefundRequest            NotificationType = "REFUND_REQUEST"
	NotificationTypeRefundApproved           NotificationType = "REFUND_APPROVED"
	NotificationTypeRefundRejected           NotificationType = "REFUND_REJECTED"
	NotificationTypeAutomaticRefund          NotificationType = "AUTOMATIC_REFUND_PROCESSED"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusQueued  NotificationStatus = "QUEUED"
	NotificationStatusSending NotificationStatus = "SENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// EmailNotification is the message carried on the notifications topic
type EmailNotification struct {
	ID   uuid.UUID        `json:"id"`
	Type NotificationType `json:"type"`

	RecipientID    uuid.UUID `json:"recipient_id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`

	Subject      string            `json:"subject"`
	TemplateData map[string]string `json:"template_data"`

	CancellationRequestID uuid.UUID `json:"cancellation_request_id"`
	BookingID             uuid.UUID `json:"booking_id"`

	Status     NotificationStatus `json:"status"`
	RetryCount int                `json:"retry_count"`
	LastError  *string            `json:"last_error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
}

type NotificationBuilder struct {
	notification *EmailNotification
}

func NewNotificationBuilder() *NotificationBuilder {
	now := time.Now().UTC()
	return &NotificationBuilder{
		notification: &EmailNotification{
			ID:           uuid.New(),
			Status:       NotificationStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
			TemplateData: make(map[string]string),
		},
	}
}

func (nb *NotificationBuilder) WithType(notType NotificationType) *NotificationBuilder {
	nb.notification.Type = notType
	nb.notification.Subject = defaultSubjects[notType]
	return nb
}

func (nb *NotificationBuilder) WithRecipient(userID uuid.UUID, email, name string) *NotificationBuilder {
	nb.notification.RecipientID = userID
	nb.notification.RecipientEmail = email
	nb.notification.RecipientName = name
	return nb
}

func (nb *NotificationBuilder) WithRequest(requestID, bookingID uuid.UUID) *NotificationBuilder {
	nb.notification.CancellationRequestID = requestID
	nb.notification.BookingID = bookingID
	return nb
}

func (nb *NotificationBuilder) WithData(key, value string) *NotificationBuilder {
	nb.notification.TemplateData[key] = value
	return nb
}

func (nb *NotificationBuilder) Build() *EmailNotification {
	return nb.notification
}

var defaultSubjects = map[NotificationType]string{
	NotificationTypeCancellationConfirmation: "Your cancellation request was received",
	NotificationTypeRefundRequest:            "A guest asked to cancel their booking",
	NotificationTypeRefundApproved:           "Your refund has been approved",
	NotificationTypeRefundRejected:           "Your cancellation request was declined",
	NotificationTypeAutomaticRefund:          "Your refund is on its way",
}

func (n *EmailNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// GetPartitionKey keeps one recipient's messages on one partition, in order
func (n *EmailNotification) GetPartitionKey() string {
	return n.RecipientID.String()
}

func (n *EmailNotification) MarkSent() {
	now := time.Now().UTC()
	n.Status = NotificationStatusSent
	n.SentAt = &now
	n.UpdatedAt = now
}

func (n *EmailNotification) MarkFailed(err error) {
	msg := err.Error()
	n.Status = NotificationStatusFailed
	n.LastError = &msg
	n.UpdatedAt = time.Now().UTC()
}
