package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.GetAPIBasePath() != "/api/v1" {
		t.Fatalf("base path = %s", cfg.GetAPIBasePath())
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr = %s", cfg.Redis.Addr)
	}
	if cfg.PaymentGateway.Provider != "mock" || cfg.PaymentGateway.Currency != "USD" {
		t.Fatalf("payment gateway = %+v", cfg.PaymentGateway)
	}
	if cfg.Kafka.Enabled {
		t.Fatal("kafka should be off by default")
	}
	if cfg.Cancellation.SweepInterval != time.Minute || cfg.Cancellation.SweepBatchSize != 50 {
		t.Fatalf("cancellation = %+v", cfg.Cancellation)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_EXPIRES_IN", "600")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PAYMENT_GATEWAY_PROVIDER", "HTTP")
	t.Setenv("PAYMENT_GATEWAY_TIMEOUT", "5s")
	t.Setenv("CANCELLATION_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("RATE_LIMIT_CANCELLATION_CRITICAL_REQUESTS", "3")

	cfg := Load()

	if cfg.GetServerAddress() != ":9090" {
		t.Fatalf("address = %s", cfg.GetServerAddress())
	}
	if cfg.Database.DSN != "host=db.internal port=5432 user=deskly_user password=deskly_password dbname=deskly_db sslmode=disable" {
		t.Fatalf("dsn = %s", cfg.Database.DSN)
	}
	if cfg.JWT.JWTExpiresIn != 10*time.Minute {
		t.Fatalf("jwt expiry = %s", cfg.JWT.JWTExpiresIn)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("kafka = %+v", cfg.Kafka)
	}
	if cfg.PaymentGateway.Provider != "http" || cfg.PaymentGateway.Timeout != 5*time.Second {
		t.Fatalf("payment gateway = %+v", cfg.PaymentGateway)
	}
	if cfg.Cancellation.SweepInterval != time.Minute {
		t.Fatalf("bad duration should fall back, got %s", cfg.Cancellation.SweepInterval)
	}
	if cfg.RateLimit.CancellationCriticalRequests != 3 {
		t.Fatalf("critical = %d", cfg.RateLimit.CancellationCriticalRequests)
	}
}

func TestModes(t *testing.T) {
	cfg := &Config{GinMode: "release"}
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Fatal("release should be production")
	}
}
