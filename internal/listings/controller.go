package listings

import (
	"net/http"

	"deskly/internal/shared/apperrors"
	"deskly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// CreateListing handles POST /api/v1/listings
func (c *Controller) CreateListing(ctx *gin.Context) {
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CreateListingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	listing, err := c.service.CreateListing(ctx.Request.Context(), ownerID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Listing created successfully", listing, nil)
}

// GetListing handles GET /api/v1/listings/:id
func (c *Controller) GetListing(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid listing ID", nil, nil)
		return
	}

	listing, err := c.service.GetListing(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Listing retrieved successfully", listing, nil)
}

// GetOwnerListings handles GET /api/v1/owners/listings
func (c *Controller) GetOwnerListings(ctx *gin.Context) {
	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	listings, err := c.service.GetOwnerListings(ctx.Request.Context(), ownerID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Listings retrieved successfully", listings, nil)
}

func respondError(ctx *gin.Context, err error) {
	response.RespondJSON(ctx, "error", apperrors.HTTPStatus(err), apperrors.PublicMessage(err), nil, apperrors.DetailsOf(err))
}

func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	value, exists := ctx.Get("user_id")
	if !exists {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, false
	}
	idStr, _ := value.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return uuid.Nil, false
	}
	return id, true
}
