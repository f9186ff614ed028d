package listings

import (
	"deskly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupListingRoutes configures listing routes; policy routes live in the cancellation module
func SetupListingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	listings := rg.Group("/listings")
	listings.Use(auth)
	{
		listings.GET("/:id", controller.GetListing)                                                  // GET /api/v1/listings/:id
		listings.POST("", middleware.RequireRoles("OWNER", "ADMIN"), controller.CreateListing) // POST /api/v1/listings
	}

	owners := rg.Group("/owners")
	owners.Use(auth, middleware.RequireRoles("OWNER", "ADMIN"))
	{
		owners.GET("/listings", controller.GetOwnerListings) // GET /api/v1/owners/listings
	}
}
