package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTransactionConflict = errors.New("refund transaction is not in the expected status")

// Repository interface for refund transaction operations
type Repository interface {
	Create(ctx context.Context, tx *RefundTransaction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []TransactionStatus, to TransactionStatus, fields map[string]interface{}) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new refund transaction repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tx *RefundTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create refund transaction: %w", err)
	}
	return nil
}

// UpdateStatus moves a transaction to status `to` only if it is currently in one of `from`
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []TransactionStatus, to TransactionStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&RefundTransaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update refund transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionConflict
	}
	return nil
}
