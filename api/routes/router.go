// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"deskly/internal/auth"
	"deskly/internal/bookings"
	"deskly/internal/cancellation"
	"deskly/internal/listings"
	"deskly/internal/notifications"
	"deskly/internal/payments"
	"deskly/internal/shared/config"
	"deskly/internal/shared/database"
	"deskly/internal/shared/middleware"
	"deskly/internal/users"
	"deskly/pkg/cache"
	"deskly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	logger    *logger.Logger
	publisher notifications.Publisher

	// built during SetupRoutes, needed by main for background work and shutdown
	dispatcher *cancellation.NotificationDispatcher
	jobs       *cancellation.JobProcessor
}

// NewRouter creates a new router instance. A nil publisher logs notifications instead of queueing them.
func NewRouter(cfg *config.Config, db *database.DB, log *logger.Logger, publisher notifications.Publisher) *Router {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Router{
		config:    cfg,
		db:        db,
		logger:    log,
		publisher: publisher,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) error {
	pg := r.db.PostgreSQL
	cacheService := cache.NewService(r.db.Redis)
	authMiddleware := middleware.JWTAuth(r.config.JWT.Secret, r.logger)

	userRepo := users.NewRepository(pg)
	listingRepo := listings.NewRepository(pg)
	listingStore := listings.NewCancellationAdapter(listingRepo)

	bookingService := bookings.NewService(bookings.NewRepository(pg), r.logger)
	bookingService.SetCacheService(cacheService)
	bookingService.SetCacheTTL(r.config.Redis.BookingsTTL)
	bookingStore := bookings.NewCancellationAdapter(bookingService)

	provider, err := payments.NewProvider(r.config.PaymentGateway)
	if err != nil {
		return err
	}
	gateway := payments.NewService(payments.NewRepository(pg), provider, bookingStore, r.logger)

	cancellationRepo := cancellation.NewRepository(pg)

	var notifier cancellation.Notifier
	if r.publisher != nil {
		notifier = notifications.NewCancellationNotifier(cancellationRepo, userRepo, listingStore, r.publisher)
	} else {
		notifier = notifications.NewLogNotifier(r.logger)
	}
	r.dispatcher = cancellation.NewNotificationDispatcher(notifier, r.logger, r.config.Cancellation.NotificationTimeout)

	policies := cancellation.NewPolicyManager(listingStore, cacheService, r.logger)
	policies.SetCacheTTL(r.config.Redis.PolicyTTL)

	cancellationService := cancellation.NewService(cancellation.Dependencies{
		Repo:          cancellationRepo,
		Policies:      policies,
		Bookings:      bookingStore,
		Listings:      listingStore,
		Gateway:       gateway,
		Notifications: r.dispatcher,
		Calculator:    cancellation.NewCalculator(nil),
		Logger:        r.logger,
		PageSize:      r.config.Cancellation.DefaultPageSize,
	})

	if r.config.Cancellation.SweepEnabled {
		r.jobs = cancellation.NewJobProcessor(cancellationRepo, cancellationService, &cancellation.JobConfig{
			SweepInterval: r.config.Cancellation.SweepInterval,
			GracePeriod:   r.config.Cancellation.SweepGracePeriod,
			BatchSize:     r.config.Cancellation.SweepBatchSize,
		}, r.logger)
	}

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		auth.SetupAuthRoutes(api, auth.NewController(auth.NewService(userRepo, r.config.JWT, r.logger)), authMiddleware)
		listings.SetupListingRoutes(api, listings.NewController(listings.NewService(listingRepo)), authMiddleware)
		bookings.SetupBookingRoutes(api, bookings.NewController(bookingService), authMiddleware)
		cancellation.SetupCancellationRoutes(api, cancellation.NewController(cancellationService, policies, r.logger), authMiddleware)
	}

	return nil
}

// Dispatcher returns the notification dispatcher so shutdown can drain it
func (r *Router) Dispatcher() *cancellation.NotificationDispatcher {
	return r.dispatcher
}

// Jobs returns the automatic refund sweeper, nil when disabled
func (r *Router) Jobs() *cancellation.JobProcessor {
	return r.jobs
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		checks, err := r.db.HealthCheck(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"checks":    checks,
				"timestamp": time.Now(),
				"service":   "deskly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"checks":    checks,
			"timestamp": time.Now(),
			"service":   "deskly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":           "operational",
			"api_version":      r.config.APIVersion,
			"timestamp":        time.Now(),
			"payment_provider": r.config.PaymentGateway.Provider,
			"notifications":    r.publisher != nil,
		}
		if r.jobs != nil {
			status["jobs"] = r.jobs.GetJobStatus()
		}
		c.JSON(http.StatusOK, status)
	})
}
