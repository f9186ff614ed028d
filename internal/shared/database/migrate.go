package database

import (
	"fmt"

	"deskly/internal/bookings"
	"deskly/internal/cancellation"
	"deskly/internal/listings"
	"deskly/internal/payments"
	"deskly/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := EnableExtensions(db); err != nil {
		return fmt.Errorf("failed to enable extensions: %w", err)
	}

	err := db.AutoMigrate(
		&users.User{},
		&listings.Listing{},
		&bookings.Booking{},
		&cancellation.CancellationRequest{},
		&payments.RefundTransaction{},
	)
	if err != nil {
		return err
	}

	if err := MigrateConstraints(db); err != nil {
		return fmt.Errorf("failed to apply constraints: %w", err)
	}
	return nil
}
