package cancellation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidProcessingFee = errors.New("processing fee percentage must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// BookingSnapshot is the slice of a booking the calculator needs
type BookingSnapshot struct {
	Amount    decimal.Decimal
	StartDate time.Time
}

// RefundCalculation is the refund breakdown stored on a request
type RefundCalculation struct {
	OriginalAmount    decimal.Decimal `json:"original_amount"`
	RefundPercentage  float64         `json:"refund_percentage"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	ProcessingFee     decimal.Decimal `json:"processing_fee"`
	FinalRefund       decimal.Decimal `json:"final_refund"`
	HoursUntilBooking float64         `json:"hours_until_booking"`
	AppliedTier       *PolicyTier     `json:"applied_tier,omitempty"`
	Message           string          `json:"message"`
}

// Value implements driver.Valuer for JSONB storage
func (c RefundCalculation) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage
func (c *RefundCalculation) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		return nil
	}
	return errors.New("refund calculation: unsupported scan type")
}

// CalculateRefund computes the refund owed when a booking is cancelled at the given instant.
// The policy is never modified; tiers are matched over a sorted copy.
func CalculateRefund(booking BookingSnapshot, policy CancellationPolicy, at time.Time) (RefundCalculation, error) {
	if policy.ProcessingFeePercentage < 0 || policy.ProcessingFeePercentage > 100 {
		return RefundCalculation{}, fmt.Errorf("%w: got %g", ErrInvalidProcessingFee, policy.ProcessingFeePercentage)
	}

	amount := booking.Amount.Round(2)
	hours := booking.StartDate.Sub(at).Hours()

	calc := RefundCalculation{
		OriginalAmount:    amount,
		RefundAmount:      decimal.Zero,
		ProcessingFee:     decimal.Zero,
		FinalRefund:       decimal.Zero,
		HoursUntilBooking: hours,
	}

	if hours <= 0 {
		calc.Message = "booking has already started or passed, no refund is available"
		return calc, nil
	}

	var applied *PolicyTier
	for _, tier := range sortedTiers(policy.Tiers) {
		if tier.HoursBeforeBooking <= hours {
			t := tier
			applied = &t
			break
		}
	}
	if applied == nil {
		calc.Message = "no refund tier applies to this cancellation"
		return calc, nil
	}

	refund := amount.Mul(decimal.NewFromFloat(applied.RefundPercentage)).Div(hundred).Round(2)
	fee := refund.Mul(decimal.NewFromFloat(policy.ProcessingFeePercentage)).Div(hundred).Round(2)
	final := refund.Sub(fee)
	if final.IsNegative() {
		final = decimal.Zero
	}

	calc.RefundPercentage = applied.RefundPercentage
	calc.RefundAmount = refund
	calc.ProcessingFee = fee
	calc.FinalRefund = final
	calc.AppliedTier = applied
	calc.Message = fmt.Sprintf("%g%% refund: %s", applied.RefundPercentage, applied.Description)

	return calc, nil
}

// Calculator binds CalculateRefund to a clock
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a calculator; a nil clock uses time.Now
func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Calculate computes the refund as of the calculator's current time
func (c *Calculator) Calculate(booking BookingSnapshot, policy CancellationPolicy) (RefundCalculation, error) {
	return CalculateRefund(booking, policy, c.now())
}

// Now returns the calculator's current time
func (c *Calculator) Now() time.Time {
	return c.now()
}
