package listings

import (
	"time"

	"deskly/internal/cancellation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is a bookable workspace offered by an owner
type Listing struct {
	ID                 uuid.UUID                        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID            uuid.UUID                        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title              string                           `gorm:"type:varchar(200);not null" json:"title"`
	Description        string                           `gorm:"type:text" json:"description,omitempty"`
	City               string                           `gorm:"type:varchar(100);index" json:"city"`
	Address            string                           `gorm:"type:varchar(255)" json:"address,omitempty"`
	Capacity           int                              `gorm:"not null;default:1" json:"capacity"`
	HourlyRate         decimal.Decimal                  `gorm:"type:numeric(12,2);not null" json:"hourly_rate"`
	Currency           string                           `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CancellationPolicy *cancellation.CancellationPolicy `gorm:"type:jsonb" json:"cancellation_policy,omitempty"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

// TableName sets the table name for Listing
func (Listing) TableName() string {
	return "listings"
}
