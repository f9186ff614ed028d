package cancellation

import (
	"context"
	"sort"
	"sync"
	"time"

	"deskly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*CancellationRequest

	// honorContext makes Transition fail once ctx is done, like a real driver
	honorContext bool
	// transitionErr fails transitions into the given status
	transitionErr map[RequestStatus]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{requests: make(map[uuid.UUID]*CancellationRequest)}
}

func copyRequest(r *CancellationRequest) *CancellationRequest {
	c := *r
	return &c
}

func isActive(s RequestStatus) bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func (f *fakeRepo) Create(_ context.Context, request *CancellationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.requests {
		if existing.BookingID == request.BookingID && isActive(existing.Status) {
			return ErrDuplicateActiveRequest
		}
	}
	f.requests[request.ID] = copyRequest(request)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return copyRequest(r), nil
}

func (f *fakeRepo) FindActiveByBooking(_ context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.BookingID == bookingID && isActive(r.Status) {
			return copyRequest(r), nil
		}
	}
	return nil, ErrRequestNotFound
}

func (f *fakeRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, filters RequestFilters) ([]CancellationRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []CancellationRequest
	for _, r := range f.requests {
		if r.OwnerID != ownerID {
			continue
		}
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.ListingID != nil && r.ListingID != *filters.ListingID {
			continue
		}
		matched = append(matched, *r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (filters.Page - 1) * filters.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filters.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeRepo) ListPendingAutomatic(_ context.Context, limit int) ([]CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CancellationRequest
	for _, r := range f.requests {
		if r.IsAutomatic && r.Status == StatusPending {
			out = append(out, *r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Transition(ctx context.Context, id uuid.UUID, from []RequestStatus, to RequestStatus, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.honorContext && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := f.transitionErr[to]; err != nil {
		return err
	}
	r, ok := f.requests[id]
	if !ok {
		return ErrStatusConflict
	}
	matched := false
	for _, s := range from {
		if r.Status == s {
			matched = true
		}
	}
	if !matched {
		return ErrStatusConflict
	}

	for k, v := range fields {
		switch k {
		case "approved_by":
			id := v.(uuid.UUID)
			r.ApprovedBy = &id
		case "approved_at":
			t := v.(time.Time)
			r.ApprovedAt = &t
		case "custom_refund_amount":
			r.CustomRefundAmount = v.(*decimal.Decimal)
		case "custom_refund_note":
			r.CustomRefundNote = v.(string)
		case "refund_calculation":
			r.RefundCalculation = v.(RefundCalculation)
		case "rejected_by":
			id := v.(uuid.UUID)
			r.RejectedBy = &id
		case "rejected_at":
			t := v.(time.Time)
			r.RejectedAt = &t
		case "rejection_reason":
			r.RejectionReason = v.(string)
		case "processed_at":
			t := v.(time.Time)
			r.ProcessedAt = &t
		case "failure_reason":
			r.FailureReason = v.(string)
		case "refund_transaction_id":
			id := v.(uuid.UUID)
			r.RefundTransactionID = &id
		}
	}
	r.Status = to
	return nil
}

func (f *fakeRepo) get(id uuid.UUID) *CancellationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRequest(f.requests[id])
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*BookingInfo
	restored []string
	markErr  error
}

func newFakeBookings(bookings ...*BookingInfo) *fakeBookings {
	f := &fakeBookings{bookings: make(map[uuid.UUID]*BookingInfo)}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookings) GetBooking(_ context.Context, id uuid.UUID) (*BookingInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	c := *b
	return &c, nil
}

func (f *fakeBookings) MarkCancelled(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.bookings[id].Status = BookingStatusCancelled
	return nil
}

func (f *fakeBookings) RestoreStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookings[id].Status != BookingStatusCancelled {
		return nil
	}
	f.bookings[id].Status = status
	f.restored = append(f.restored, status)
	return nil
}

func (f *fakeBookings) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id].Status
}

type fakeListings struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*ListingInfo
	saves    int
}

func newFakeListings(listings ...*ListingInfo) *fakeListings {
	f := &fakeListings{listings: make(map[uuid.UUID]*ListingInfo)}
	for _, l := range listings {
		f.listings[l.ID] = l
	}
	return f
}

func (f *fakeListings) GetListing(_ context.Context, id uuid.UUID) (*ListingInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	c := *l
	if l.Policy != nil {
		p := l.Policy.clone()
		c.Policy = &p
	}
	return &c, nil
}

func (f *fakeListings) SaveCancellationPolicy(_ context.Context, id uuid.UUID, policy CancellationPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return ErrListingNotFound
	}
	p := policy.clone()
	l.Policy = &p
	f.saves++
	return nil
}

type fakeGateway struct {
	mu     sync.Mutex
	calls  []RefundInput
	result *RefundResult
	err    error
	panics bool
	onCall func()
}

func (f *fakeGateway) ProcessRefund(_ context.Context, input RefundInput) (*RefundResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, input)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.panics {
		panic("connection reset")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &RefundResult{Success: true, TransactionID: uuid.New()}, nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []string
	fail   bool
	panics bool
}

func (f *fakeNotifier) record(kind string) NotificationResult {
	if f.panics {
		panic("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind)
	if f.fail {
		return NotificationResult{Sent: false, Reason: "broker unavailable"}
	}
	return NotificationResult{Sent: true}
}

func (f *fakeNotifier) SendCancellationConfirmation(context.Context, uuid.UUID) NotificationResult {
	return f.record(NotifyCancellationConfirmation)
}

func (f *fakeNotifier) SendRefundRequestNotification(context.Context, uuid.UUID) NotificationResult {
	return f.record(NotifyRefundRequest)
}

func (f *fakeNotifier) SendRefundApproved(context.Context, uuid.UUID) NotificationResult {
	return f.record(NotifyRefundApproved)
}

func (f *fakeNotifier) SendRefundRejected(context.Context, uuid.UUID) NotificationResult {
	return f.record(NotifyRefundRejected)
}

func (f *fakeNotifier) SendAutomaticRefundProcessed(context.Context, uuid.UUID) NotificationResult {
	return f.record(NotifyAutomaticRefund)
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.sent...)
	sort.Strings(out)
	return out
}

// fixture wires a service around in-memory collaborators
type fixture struct {
	repo       *fakeRepo
	bookings   *fakeBookings
	listings   *fakeListings
	gateway    *fakeGateway
	notifier   *fakeNotifier
	dispatcher *NotificationDispatcher
	service    Service

	clientID  uuid.UUID
	ownerID   uuid.UUID
	listingID uuid.UUID
	bookingID uuid.UUID
	now       time.Time
}

// newFixture builds a booking of 1000.00 starting `lead` after the fixed clock
func newFixture(policy *CancellationPolicy, lead time.Duration, paymentRef string) *fixture {
	f := &fixture{
		repo:      newFakeRepo(),
		gateway:   &fakeGateway{},
		notifier:  &fakeNotifier{},
		clientID:  uuid.New(),
		ownerID:   uuid.New(),
		listingID: uuid.New(),
		bookingID: uuid.New(),
		now:       time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	f.bookings = newFakeBookings(&BookingInfo{
		ID:               f.bookingID,
		UserID:           f.clientID,
		ListingID:        f.listingID,
		StartDate:        f.now.Add(lead),
		EndDate:          f.now.Add(lead + 8*time.Hour),
		Amount:           decimal.NewFromInt(1000),
		Currency:         "USD",
		Status:           BookingStatusConfirmed,
		PaymentReference: paymentRef,
	})
	f.listings = newFakeListings(&ListingInfo{
		ID:      f.listingID,
		OwnerID: f.ownerID,
		Title:   "Quiet desk by the window",
		Policy:  policy,
	})

	log := logger.Discard()
	f.dispatcher = NewNotificationDispatcher(f.notifier, log, time.Second)
	f.service = NewService(Dependencies{
		Repo:          f.repo,
		Policies:      NewPolicyManager(f.listings, nil, log),
		Bookings:      f.bookings,
		Listings:      f.listings,
		Gateway:       f.gateway,
		Notifications: f.dispatcher,
		Calculator:    NewCalculator(func() time.Time { return f.now }),
		Logger:        log,
	})
	return f
}

func (f *fixture) create() (*CancellationRequest, error) {
	return f.service.CreateRequest(context.Background(), CreateRequestInput{
		BookingID: f.bookingID,
		ClientID:  f.clientID,
		Reason:    ReasonChangeOfPlans,
	})
}

func policyPtr(p CancellationPolicy) *CancellationPolicy {
	return &p
}
