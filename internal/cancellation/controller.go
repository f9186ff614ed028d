package cancellation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"deskly/internal/shared/apperrors"
	"deskly/internal/shared/utils/response"
	"deskly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PolicyService is the policy surface used by the controller
type PolicyService interface {
	SetPolicy(ctx context.Context, listingID, ownerID uuid.UUID, input CancellationPolicy) (*CancellationPolicy, error)
	GetPolicy(ctx context.Context, listingID uuid.UUID) (*CancellationPolicy, error)
	ValidatePolicy(policy CancellationPolicy) PolicyValidationResult
	GetPolicyTemplates() map[PolicyType]CancellationPolicy
}

// Controller handles HTTP requests for cancellations and policies
type Controller struct {
	service   Service
	policies  PolicyService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewController creates a new cancellation controller
func NewController(service Service, policies PolicyService, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{
		service:   service,
		policies:  policies,
		validator: validator.New(),
		logger:    log,
	}
}

// CreateRequest handles POST /api/v1/bookings/:id/cancellation-requests
func (c *Controller) CreateRequest(ctx *gin.Context) {
	bookingID, ok := parseIDParam(ctx, "id", "Invalid booking ID")
	if !ok {
		return
	}
	clientID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CreateCancellationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	request, err := c.service.CreateRequest(ctx.Request.Context(), CreateRequestInput{
		BookingID:   bookingID,
		ClientID:    clientID,
		Reason:      Reason(req.Reason),
		ReasonOther: req.ReasonOther,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	resp := CreateCancellationResponse{Request: request}
	message := "Cancellation request submitted. The workspace owner will review it."

	if request.IsAutomatic {
		result, err := c.service.ProcessAutomaticRefund(ctx.Request.Context(), request.ID)
		if err != nil {
			// The sweeper picks the request up later
			c.logger.WithError(err).Warn("immediate automatic refund failed", "request_id", request.ID.String())
			message = "Cancellation request submitted. Your refund will be processed automatically."
		} else {
			resp.Request = result.Request
			resp.Automatic = result
			message = "Cancellation processed. " + result.Message
		}
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, message, resp, nil)
}

// GetOwnerRequests handles GET /api/v1/owners/cancellation-requests
func (c *Controller) GetOwnerRequests(ctx *gin.Context) {
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	filters, err := parseFilters(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	page, err := c.service.GetOwnerRequests(ctx.Request.Context(), ownerID, filters)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation requests retrieved successfully", page, nil)
}

// GetRequest handles GET /api/v1/cancellation-requests/:id
func (c *Controller) GetRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id", "Invalid cancellation request ID")
	if !ok {
		return
	}
	actorID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	request, err := c.service.GetRequest(ctx.Request.Context(), requestID, actorID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation request retrieved successfully", request, nil)
}

// ApproveRequest handles POST /api/v1/cancellation-requests/:id/approve
func (c *Controller) ApproveRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id", "Invalid cancellation request ID")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req ApproveCancellationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	request, err := c.service.ApproveRequest(ctx.Request.Context(), ApproveInput{
		RequestID:          requestID,
		OwnerID:            ownerID,
		CustomRefundAmount: req.CustomRefundAmount,
		CustomRefundNote:   req.CustomRefundNote,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	message := "Cancellation approved and refund processed"
	if request.Status == StatusFailed {
		message = "Cancellation approved but the refund failed: " + request.FailureReason
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, request, nil)
}

// RejectRequest handles POST /api/v1/cancellation-requests/:id/reject
func (c *Controller) RejectRequest(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id", "Invalid cancellation request ID")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req RejectCancellationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	request, err := c.service.RejectRequest(ctx.Request.Context(), RejectInput{
		RequestID: requestID,
		OwnerID:   ownerID,
		Reason:    req.Reason,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation request rejected", request, nil)
}

// ProcessAutomaticRefund handles POST /api/v1/cancellation-requests/:id/process-automatic
func (c *Controller) ProcessAutomaticRefund(ctx *gin.Context) {
	requestID, ok := parseIDParam(ctx, "id", "Invalid cancellation request ID")
	if !ok {
		return
	}

	result, err := c.service.ProcessAutomaticRefund(ctx.Request.Context(), requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// GetListingPolicy handles GET /api/v1/listings/:id/cancellation-policy
func (c *Controller) GetListingPolicy(ctx *gin.Context) {
	listingID, ok := parseIDParam(ctx, "id", "Invalid listing ID")
	if !ok {
		return
	}

	policy, err := c.policies.GetPolicy(ctx.Request.Context(), listingID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy retrieved successfully", policy, nil)
}

// SetListingPolicy handles PUT /api/v1/listings/:id/cancellation-policy
func (c *Controller) SetListingPolicy(ctx *gin.Context) {
	listingID, ok := parseIDParam(ctx, "id", "Invalid listing ID")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CancellationPolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	policy, err := c.policies.SetPolicy(ctx.Request.Context(), listingID, ownerID, req.ToPolicy())
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy updated successfully", policy, nil)
}

// ValidatePolicy handles POST /api/v1/cancellation-policies/validate
func (c *Controller) ValidatePolicy(ctx *gin.Context) {
	var req CancellationPolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result := c.policies.ValidatePolicy(req.ToPolicy())
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy validated", result, nil)
}

// GetPolicyTemplates handles GET /api/v1/cancellation-policies/templates
func (c *Controller) GetPolicyTemplates(ctx *gin.Context) {
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy templates retrieved successfully",
		PolicyTemplatesResponse{Templates: c.policies.GetPolicyTemplates()}, nil)
}

func (c *Controller) respondError(ctx *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.WithUserID(ctx.GetString("user_id")).LogHTTPError(ctx, err, status)
	}
	response.RespondJSON(ctx, "error", status, apperrors.PublicMessage(err), nil, apperrors.DetailsOf(err))
}

func parseIDParam(ctx *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, message, nil, nil)
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID reads the authenticated user set by the JWT middleware
func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	value, exists := ctx.Get("user_id")
	if !exists {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, false
	}

	idStr, ok := value.(string)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Invalid user ID format", nil, nil)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseFilters(ctx *gin.Context) (RequestFilters, error) {
	var filters RequestFilters

	filters.Status = RequestStatus(ctx.Query("status"))

	if v := ctx.Query("listing_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, errors.New("listing_id must be a UUID")
		}
		filters.ListingID = &id
	}
	if v := ctx.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filters, errors.New("from must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		}
		filters.From = &t
	}
	if v := ctx.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filters, errors.New("to must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		}
		filters.To = &t
	}
	if v := ctx.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return filters, errors.New("page must be a number")
		}
		filters.Page = page
	}
	if v := ctx.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filters, errors.New("limit must be a number")
		}
		filters.Limit = limit
	}

	return filters, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
