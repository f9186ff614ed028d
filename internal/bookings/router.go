package bookings

import (
	"deskly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures the booking read routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth, middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.GET("/:id", controller.GetBooking) // GET /api/v1/bookings/:id
	}

	// User-specific booking routes
	users := rg.Group("/users")
	users.Use(auth, middleware.RequireRoles("USER", "ADMIN"))
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}
}

// Route definitions for reference:
//
// GET    /api/v1/bookings/:id                                  - Get specific booking with its refund ledger
// GET    /api/v1/users/bookings?page=1&limit=10&status=...     - Get user's bookings with pagination
// POST   /api/v1/bookings/:id/cancellation-requests            - Request cancellation (cancellation module)
