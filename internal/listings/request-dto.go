package listings

import "github.com/shopspring/decimal"

// create listing payload; policy_template picks a preset, moderate when empty
type CreateListingRequest struct {
	Title          string          `json:"title" validate:"required,min=3,max=200"`
	Description    string          `json:"description" validate:"max=5000"`
	City           string          `json:"city" validate:"required,max=100"`
	Address        string          `json:"address" validate:"max=255"`
	Capacity       int             `json:"capacity" validate:"required,min=1,max=1000"`
	HourlyRate     decimal.Decimal `json:"hourly_rate"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	PolicyTemplate string          `json:"policy_template" validate:"omitempty,oneof=flexible moderate strict none"`
}
