package database

import (
	"gorm.io/gorm"
)

// EnableExtensions installs the extensions the schema defaults rely on
func EnableExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// MigrateConstraints adds the constraints that guard concurrent cancellation
func MigrateConstraints(db *gorm.DB) error {
	// At most one live cancellation request per booking; rejected and failed requests do not count
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_cancellation_requests_active_booking
		ON cancellation_requests (booking_id)
		WHERE status IN ('pending', 'approved', 'processing', 'completed');
	`).Error
	if err != nil {
		return err
	}

	// Owner review listing
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cancellation_requests_owner_created
		ON cancellation_requests (owner_id, created_at DESC);
	`).Error
	if err != nil {
		return err
	}

	// Automatic sweeper scan
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cancellation_requests_pending_automatic
		ON cancellation_requests (created_at)
		WHERE status = 'pending' AND is_automatic;
	`).Error
	if err != nil {
		return err
	}

	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_refund_transactions_gateway_id
		ON refund_transactions (gateway_transaction_id)
		WHERE gateway_transaction_id IS NOT NULL AND gateway_transaction_id <> '';
	`).Error
}
