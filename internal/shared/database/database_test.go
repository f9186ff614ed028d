package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	applogger "deskly/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPingDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	pg, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}
	return &DB{PostgreSQL: pg}, mock
}

func TestHealthCheckReportsPostgres(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing()

	checks, err := db.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checks["postgres"] != "ok" {
		t.Fatalf("checks = %v", checks)
	}
	if _, ok := checks["redis"]; ok {
		t.Fatal("redis should not be reported when not configured")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthCheckFailingPing(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	checks, err := db.HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("expected a postgres error, got %v", err)
	}
	if checks["postgres"] != "connection refused" {
		t.Fatalf("checks = %v", checks)
	}
}

func TestGormLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := applogger.NewWithWriter(&buf, slog.LevelDebug)

	gl := newGormLogger(log, 10*time.Millisecond, logger.Warn)
	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return `SELECT * FROM "bookings"`, 3
	}, nil)

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, "SLOW SQL") {
		t.Fatalf("slow query not logged at warn: %s", out)
	}

	buf.Reset()
	gl = newGormLogger(log, time.Minute, logger.Info)
	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT 1`, 1
	}, nil)
	if out := buf.String(); !strings.Contains(out, `"level":"DEBUG"`) || !strings.Contains(out, "SELECT 1") {
		t.Fatalf("development trace not logged at debug: %s", out)
	}
}
