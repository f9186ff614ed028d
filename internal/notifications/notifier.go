package notifications

import (
	"context"
	"fmt"
	"time"

	"deskly/internal/cancellation"
	"deskly/internal/users"
	"deskly/pkg/logger"

	"github.com/google/uuid"
)

// RequestReader loads cancellation requests
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*cancellation.CancellationRequest, error)
}

// UserDirectory loads recipients
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// CancellationNotifier builds cancellation emails and queues them on the publisher.
// It implements cancellation.Notifier.
type CancellationNotifier struct {
	requests  RequestReader
	users     UserDirectory
	listings  cancellation.ListingStore
	publisher Publisher
}

var _ cancellation.Notifier = (*CancellationNotifier)(nil)

func NewCancellationNotifier(requests RequestReader, users UserDirectory, listings cancellation.ListingStore, publisher Publisher) *CancellationNotifier {
	return &CancellationNotifier{requests: requests, users: users, listings: listings, publisher: publisher}
}

type recipient int

const (
	toClient recipient = iota
	toOwner
)

func (n *CancellationNotifier) SendCancellationConfirmation(ctx context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return n.send(ctx, requestID, NotificationTypeCancellationConfirmation, toClient)
}

func (n *CancellationNotifier) SendRefundRequestNotification(ctx context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return n.send(ctx, requestID, NotificationTypeRefundRequest, toOwner)
}

func (n *CancellationNotifier) SendRefundApproved(ctx context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return n.send(ctx, requestID, NotificationTypeRefundApproved, toClient)
}

func (n *CancellationNotifier) SendRefundRejected(ctx context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return n.send(ctx, requestID, NotificationTypeRefundRejected, toClient)
}

func (n *CancellationNotifier) SendAutomaticRefundProcessed(ctx context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return n.send(ctx, requestID, NotificationTypeAutomaticRefund, toClient)
}

func (n *CancellationNotifier) send(ctx context.Context, requestID uuid.UUID, notType NotificationType, to recipient) cancellation.NotificationResult {
	notification, err := n.build(ctx, requestID, notType, to)
	if err != nil {
		return cancellation.NotificationResult{Sent: false, Reason: err.Error()}
	}
	if err := n.publisher.Publish(ctx, notification); err != nil {
		return cancellation.NotificationResult{Sent: false, Reason: err.Error()}
	}
	return cancellation.NotificationResult{Sent: true}
}

func (n *CancellationNotifier) build(ctx context.Context, requestID uuid.UUID, notType NotificationType, to recipient) (*EmailNotification, error) {
	request, err := n.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load cancellation request: %w", err)
	}

	userID := request.ClientID
	if to == toOwner {
		userID = request.OwnerID
	}
	user, err := n.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load recipient %s: %w", userID, err)
	}

	listingTitle := "your workspace"
	if n.listings != nil {
		if listing, err := n.listings.GetListing(ctx, request.ListingID); err == nil && listing.Title != "" {
			listingTitle = listing.Title
		}
	}

	reason := string(request.CancellationReason)
	if request.CancellationReason == cancellation.ReasonOther && request.ReasonOther != "" {
		reason = request.ReasonOther
	}

	return NewNotificationBuilder().
		WithType(notType).
		WithRecipient(user.ID, user.Email, user.FullName()).
		WithRequest(request.ID, request.BookingID).
		WithData("name", user.FirstName).
		WithData("listing", listingTitle).
		WithData("booking_start", request.BookingStartDate.UTC().Format(time.RFC1123)).
		WithData("refund_amount", request.RefundAmountDue().StringFixed(2)).
		WithData("currency", request.Currency).
		WithData("reason", reason).
		WithData("rejection_reason", request.RejectionReason).
		WithData("automatic", fmt.Sprintf("%t", request.IsAutomatic)).
		WithData("request_id", request.ID.String()).
		Build(), nil
}

// LogNotifier records notifications in the log when no broker is configured
type LogNotifier struct {
	logger *logger.Logger
}

var _ cancellation.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogNotifier{logger: log}
}

func (l *LogNotifier) record(kind string, requestID uuid.UUID) cancellation.NotificationResult {
	l.logger.Info("notification", "kind", kind, "cancellation_request_id", requestID.String())
	return cancellation.NotificationResult{Sent: true}
}

func (l *LogNotifier) SendCancellationConfirmation(_ context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return l.record(cancellation.NotifyCancellationConfirmation, requestID)
}

func (l *LogNotifier) SendRefundRequestNotification(_ context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return l.record(cancellation.NotifyRefundRequest, requestID)
}

func (l *LogNotifier) SendRefundApproved(_ context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return l.record(cancellation.NotifyRefundApproved, requestID)
}

func (l *LogNotifier) SendRefundRejected(_ context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return l.record(cancellation.NotifyRefundRejected, requestID)
}

func (l *LogNotifier) SendAutomaticRefundProcessed(_ context.Context, requestID uuid.UUID) cancellation.NotificationResult {
	return l.record(cancellation.NotifyAutomaticRefund, requestID)
}
