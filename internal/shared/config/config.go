package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowedOrigins []string

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string

	// External services
	Kafka          KafkaConfig
	Email          EmailConfig
	PaymentGateway PaymentGatewayConfig

	// Cancellation processing
	Cancellation CancellationConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	PoolSize int

	// TTL values for different operations
	PolicyTTL   time.Duration
	BookingsTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	JWTExpiresIn     time.Duration
	RefreshExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                      bool          `json:"enabled"`
	WindowDuration               time.Duration `json:"window_duration"`
	DefaultRequests              int           `json:"default_requests"`
	PublicRequests               int           `json:"public_requests"`
	AuthRequests                 int           `json:"auth_requests"`
	CancellationRequests         int           `json:"cancellation_requests"`
	CancellationCriticalRequests int           `json:"cancellation_critical_requests"` // create, approve, reject
	AdminRequests                int           `json:"admin_requests"`
	UserRequests                 int           `json:"user_requests"`
	HealthRequests               int           `json:"health_requests"`
	WhitelistedIPs               []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds the notification broker configuration
type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	NotificationsTopic string
	ConsumerGroup      string
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// PaymentGatewayConfig selects and configures the refund provider
type PaymentGatewayConfig struct {
	Provider string // "http" or "mock"
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Currency string
}

// CancellationConfig tunes the automatic refund sweeper and listings
type CancellationConfig struct {
	SweepEnabled        bool
	SweepInterval       time.Duration
	SweepGracePeriod    time.Duration
	SweepBatchSize      int
	DefaultPageSize     int
	NotificationTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 45*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "deskly_db"),
			User:     getEnv("DB_USER", "deskly_user"),
			Password: getEnv("DB_PASSWORD", "deskly_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			SlowQuery:       getDurationEnv("DB_SLOW_QUERY", 200*time.Millisecond),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

			PolicyTTL:   getDurationEnv("REDIS_POLICY_TTL", 2*time.Hour),
			BookingsTTL: getDurationEnv("REDIS_BOOKINGS_TTL", 5*time.Minute),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn:     getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshExpiresIn: getDurationEnvSeconds("JWT_REFRESH_EXPIRES_IN", 24*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:                      getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:               getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:              getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:               getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			AuthRequests:                 getIntEnv("RATE_LIMIT_AUTH_REQUESTS", 10),
			CancellationRequests:         getIntEnv("RATE_LIMIT_CANCELLATION_REQUESTS", 20),
			CancellationCriticalRequests: getIntEnv("RATE_LIMIT_CANCELLATION_CRITICAL_REQUESTS", 5),
			AdminRequests:                getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			UserRequests:                 getIntEnv("RATE_LIMIT_USER_REQUESTS", 120),
			HealthRequests:               getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:               getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Kafka configuration
		Kafka: KafkaConfig{
			Enabled:            getBoolEnv("KAFKA_ENABLED", false),
			Brokers:            getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			NotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "notifications"),
			ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "deskly-notifications"),
		},

		// Email configuration
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@deskly.app"),
			FromName:     getEnv("FROM_NAME", "Deskly"),
		},

		// Payment gateway configuration
		PaymentGateway: PaymentGatewayConfig{
			Provider: strings.ToLower(getEnv("PAYMENT_GATEWAY_PROVIDER", "mock")),
			BaseURL:  getEnv("PAYMENT_GATEWAY_BASE_URL", ""),
			APIKey:   getEnv("PAYMENT_GATEWAY_API_KEY", ""),
			Timeout:  getDurationEnv("PAYMENT_GATEWAY_TIMEOUT", 30*time.Second),
			Currency: strings.ToUpper(getEnv("PAYMENT_GATEWAY_CURRENCY", "USD")),
		},

		// Cancellation configuration
		Cancellation: CancellationConfig{
			SweepEnabled:        getBoolEnv("CANCELLATION_SWEEP_ENABLED", true),
			SweepInterval:       getDurationEnv("CANCELLATION_SWEEP_INTERVAL", time.Minute),
			SweepGracePeriod:    getDurationEnv("CANCELLATION_SWEEP_GRACE_PERIOD", 2*time.Minute),
			SweepBatchSize:      getIntEnv("CANCELLATION_SWEEP_BATCH_SIZE", 50),
			DefaultPageSize:     getIntEnv("CANCELLATION_DEFAULT_PAGE_SIZE", 20),
			NotificationTimeout: getDurationEnv("CANCELLATION_NOTIFICATION_TIMEOUT", 10*time.Second),
		},
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
