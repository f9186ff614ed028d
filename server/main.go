package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskly/api/routes"
	"deskly/internal/notifications"
	"deskly/internal/shared/config"
	"deskly/internal/shared/database"
	"deskly/internal/shared/middleware"
	"deskly/pkg/logger"
	"deskly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// Rebuild with the configured mode and level
	appLogger = logger.New()
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize databases", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
			Enabled:                      cfg.RateLimit.Enabled,
			WindowDuration:               cfg.RateLimit.WindowDuration,
			DefaultRequests:              cfg.RateLimit.DefaultRequests,
			PublicRequests:               cfg.RateLimit.PublicRequests,
			AuthRequests:                 cfg.RateLimit.AuthRequests,
			CancellationRequests:         cfg.RateLimit.CancellationRequests,
			CancellationCriticalRequests: cfg.RateLimit.CancellationCriticalRequests,
			AdminRequests:                cfg.RateLimit.AdminRequests,
			UserRequests:                 cfg.RateLimit.UserRequests,
			HealthRequests:               cfg.RateLimit.HealthRequests,
			WhitelistedIPs:               cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Notification pipeline: producer for the API, consumer group for email delivery
	var publisher notifications.Publisher
	var consumer *notifications.KafkaNotificationConsumer
	if cfg.Kafka.Enabled {
		producer, err := notifications.NewKafkaProducer(
			notifications.DefaultKafkaProducerConfig(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic), appLogger)
		if err != nil {
			appLogger.Error("Failed to create Kafka producer, notifications will only be logged", slog.Any("error", err))
		} else {
			publisher = producer
			defer producer.Close()

			consumer, err = notifications.NewKafkaNotificationConsumer(
				notifications.DefaultConsumerConfig(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.NotificationsTopic),
				newEmailService(cfg, appLogger),
				appLogger,
			)
			if err != nil {
				appLogger.Error("Failed to create notification consumer", slog.Any("error", err))
			} else {
				consumer.Start(bgCtx)
			}
		}
	} else {
		appLogger.Info("Kafka disabled: notifications will be logged")
	}

	appRouter := routes.NewRouter(cfg, db, appLogger, publisher)
	router, err := setupRouter(cfg, appRouter, rateLimiter, appLogger)
	if err != nil {
		appLogger.Error("failed to set up routes", slog.Any("error", err))
		os.Exit(1)
	}

	if jobs := appRouter.Jobs(); jobs != nil {
		jobs.Start(bgCtx)
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("build_time", BuildTime),
			slog.String("commit", GitCommit),
			slog.String("payment_provider", cfg.PaymentGateway.Provider),
			slog.Bool("kafka", publisher != nil),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	if jobs := appRouter.Jobs(); jobs != nil {
		jobs.Stop()
	}
	// In-flight notifications publish before the producer closes
	appRouter.Dispatcher().Wait()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			appLogger.Error("Error stopping notification consumer", slog.Any("error", err))
		}
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) (*gin.Engine, error) {
	engine := gin.New()

	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}

	if err := appRouter.SetupRoutes(engine); err != nil {
		return nil, err
	}
	return engine, nil
}

// newEmailService delivers over SMTP when a host is configured, otherwise logs
func newEmailService(cfg *config.Config, appLogger *logger.Logger) notifications.EmailService {
	if cfg.Email.SMTPHost == "" {
		return notifications.NewLogEmailService(appLogger)
	}
	smtpService, err := notifications.NewSMTPEmailService(notifications.NewSMTPConfig(cfg.Email), appLogger)
	if err != nil {
		appLogger.Error("Invalid SMTP configuration, emails will be logged", slog.Any("error", err))
		return notifications.NewLogEmailService(appLogger)
	}
	return smtpService
}
