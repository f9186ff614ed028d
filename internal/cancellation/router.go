package cancellation

import (
	"deskly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	// Client cancellation routes
	bookings := rg.Group("/bookings")
	bookings.Use(auth, middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.POST("/:id/cancellation-requests", controller.CreateRequest) // POST /api/v1/bookings/:id/cancellation-requests
	}

	// Owner review routes
	owners := rg.Group("/owners")
	owners.Use(auth, middleware.RequireRoles("OWNER", "ADMIN"))
	{
		owners.GET("/cancellation-requests", controller.GetOwnerRequests) // GET /api/v1/owners/cancellation-requests
	}

	requests := rg.Group("/cancellation-requests")
	requests.Use(auth)
	{
		requests.GET("/:id", controller.GetRequest)                                                                   // GET /api/v1/cancellation-requests/:id
		requests.POST("/:id/approve", middleware.RequireRoles("OWNER", "ADMIN"), controller.ApproveRequest)           // POST /api/v1/cancellation-requests/:id/approve
		requests.POST("/:id/reject", middleware.RequireRoles("OWNER", "ADMIN"), controller.RejectRequest)             // POST /api/v1/cancellation-requests/:id/reject
		requests.POST("/:id/process-automatic", middleware.RequireAdmin(), controller.ProcessAutomaticRefund)         // POST /api/v1/cancellation-requests/:id/process-automatic
	}

	// Listing policy routes
	listings := rg.Group("/listings")
	listings.Use(auth)
	{
		listings.GET("/:id/cancellation-policy", controller.GetListingPolicy)                                          // GET /api/v1/listings/:id/cancellation-policy
		listings.PUT("/:id/cancellation-policy", middleware.RequireRoles("OWNER", "ADMIN"), controller.SetListingPolicy) // PUT /api/v1/listings/:id/cancellation-policy
	}

	policies := rg.Group("/cancellation-policies")
	policies.Use(auth)
	{
		policies.GET("/templates", controller.GetPolicyTemplates) // GET /api/v1/cancellation-policies/templates
		policies.POST("/validate", controller.ValidatePolicy)     // POST /api/v1/cancellation-policies/validate
	}
}
