package cancellation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deskly/pkg/logger"

	"github.com/google/uuid"
)

// Notification kinds used in logs
const (
	NotifyCancellationConfirmation = "cancellation_confirmation"
	NotifyRefundRequest            = "refund_request"
	NotifyRefundApproved           = "refund_approved"
	NotifyRefundRejected           = "refund_rejected"
	NotifyAutomaticRefund          = "automatic_refund_processed"
)

type sendFunc func(n Notifier, ctx context.Context, requestID uuid.UUID) NotificationResult

// NotificationDispatcher runs notifications in the background and logs failures
type NotificationDispatcher struct {
	notifier Notifier
	logger   *logger.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewNotificationDispatcher creates a dispatcher; each send is bounded by timeout
func NewNotificationDispatcher(notifier Notifier, log *logger.Logger, timeout time.Duration) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &NotificationDispatcher{notifier: notifier, logger: log, timeout: timeout}
}

func (d *NotificationDispatcher) dispatch(ctx context.Context, kind string, requestID uuid.UUID, send sendFunc) {
	if d == nil || d.notifier == nil {
		return
	}

	// Detach from the caller so request completion does not cancel the send
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.LogNotificationFailed(base, kind, requestID.String(), fmt.Sprintf("panic: %v", r))
			}
		}()

		sendCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		result := send(d.notifier, sendCtx, requestID)
		if !result.Sent {
			d.logger.LogNotificationFailed(base, kind, requestID.String(), result.Reason)
		}
	}()
}

func (d *NotificationDispatcher) CancellationConfirmation(ctx context.Context, requestID uuid.UUID) {
	d.dispatch(ctx, NotifyCancellationConfirmation, requestID, Notifier.SendCancellationConfirmation)
}

func (d *NotificationDispatcher) RefundRequest(ctx context.Context, requestID uuid.UUID) {
	d.dispatch(ctx, NotifyRefundRequest, requestID, Notifier.SendRefundRequestNotification)
}

func (d *NotificationDispatcher) RefundApproved(ctx context.Context, requestID uuid.UUID) {
	d.dispatch(ctx, NotifyRefundApproved, requestID, Notifier.SendRefundApproved)
}

func (d *NotificationDispatcher) RefundRejected(ctx context.Context, requestID uuid.UUID) {
	d.dispatch(ctx, NotifyRefundRejected, requestID, Notifier.SendRefundRejected)
}

func (d *NotificationDispatcher) AutomaticRefundProcessed(ctx context.Context, requestID uuid.UUID) {
	d.dispatch(ctx, NotifyAutomaticRefund, requestID, Notifier.SendAutomaticRefundProcessed)
}

// Wait blocks until every dispatched notification has finished
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}
