package cancellation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PolicyType names a cancellation policy preset
type PolicyType string

const (
	PolicyFlexible PolicyType = "flexible"
	PolicyModerate PolicyType = "moderate"
	PolicyStrict   PolicyType = "strict"
	PolicyCustom   PolicyType = "custom"
	PolicyNone     PolicyType = "none"
)

// Valid reports whether t is a known policy type
func (t PolicyType) Valid() bool {
	switch t {
	case PolicyFlexible, PolicyModerate, PolicyStrict, PolicyCustom, PolicyNone:
		return true
	}
	return false
}

// PolicyTier maps a minimum lead time to a refund percentage
type PolicyTier struct {
	HoursBeforeBooking float64 `json:"hours_before_booking"`
	RefundPercentage   float64 `json:"refund_percentage"`
	Description        string  `json:"description"`
}

// CancellationPolicy is the per-listing refund policy, stored as JSONB on the listing row
type CancellationPolicy struct {
	Type                    PolicyType   `json:"type"`
	AllowCancellation       bool         `json:"allow_cancellation"`
	AutomaticRefund         bool         `json:"automatic_refund"`
	Tiers                   []PolicyTier `json:"tiers"`
	ProcessingFeePercentage float64      `json:"processing_fee_percentage"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// Value implements driver.Valuer for JSONB storage
func (p CancellationPolicy) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *CancellationPolicy) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("cancellation policy: unsupported scan type")
	}
	return json.Unmarshal(data, p)
}

// clone returns a deep copy so callers never share the tier slice
func (p CancellationPolicy) clone() CancellationPolicy {
	out := p
	out.Tiers = make([]PolicyTier, len(p.Tiers))
	copy(out.Tiers, p.Tiers)
	return out
}

// sortedTiers returns the tiers ordered by lead time, longest first
func sortedTiers(tiers []PolicyTier) []PolicyTier {
	sorted := append([]PolicyTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].HoursBeforeBooking > sorted[j].HoursBeforeBooking
	})
	return sorted
}

// PolicyValidationResult lists every violation found in a policy
type PolicyValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidatePolicy checks a policy and reports all violations at once
func ValidatePolicy(policy CancellationPolicy) PolicyValidationResult {
	errs := make([]string, 0)

	if !policy.Type.Valid() {
		errs = append(errs, fmt.Sprintf("unknown policy type %q", policy.Type))
	}
	if policy.ProcessingFeePercentage < 0 || policy.ProcessingFeePercentage > 100 {
		errs = append(errs, "processing fee percentage must be between 0 and 100")
	}

	if policy.AllowCancellation {
		errs = append(errs, validateTiers(policy.Tiers)...)
	}

	return PolicyValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateTiers(tiers []PolicyTier) []string {
	var errs []string
	seen := make(map[float64]bool, len(tiers))

	for i, tier := range tiers {
		if tier.HoursBeforeBooking < 0 {
			errs = append(errs, fmt.Sprintf("tier %d: hours before booking must not be negative", i+1))
		}
		if tier.RefundPercentage < 0 || tier.RefundPercentage > 100 {
			errs = append(errs, fmt.Sprintf("tier %d: refund percentage must be between 0 and 100", i+1))
		}
		if strings.TrimSpace(tier.Description) == "" {
			errs = append(errs, fmt.Sprintf("tier %d: description is required", i+1))
		}
		if seen[tier.HoursBeforeBooking] {
			errs = append(errs, fmt.Sprintf("tier %d: duplicate hours before booking (%g)", i+1, tier.HoursBeforeBooking))
		}
		seen[tier.HoursBeforeBooking] = true
	}

	sorted := sortedTiers(tiers)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].RefundPercentage > sorted[i-1].RefundPercentage {
			errs = append(errs, fmt.Sprintf(
				"tier at %gh refunds %g%%, more than the %g%% of the earlier tier at %gh",
				sorted[i].HoursBeforeBooking, sorted[i].RefundPercentage,
				sorted[i-1].RefundPercentage, sorted[i-1].HoursBeforeBooking,
			))
		}
	}

	return errs
}

var policyTemplates = map[PolicyType]CancellationPolicy{
	PolicyFlexible: {
		Type:              PolicyFlexible,
		AllowCancellation: true,
		AutomaticRefund:   true,
		Tiers: []PolicyTier{
			{HoursBeforeBooking: 24, RefundPercentage: 100, Description: "Full refund up to 24 hours before start"},
			{HoursBeforeBooking: 0, RefundPercentage: 50, Description: "50% refund within 24 hours of start"},
		},
		ProcessingFeePercentage: 0,
	},
	PolicyModerate: {
		Type:              PolicyModerate,
		AllowCancellation: true,
		AutomaticRefund:   true,
		Tiers: []PolicyTier{
			{HoursBeforeBooking: 168, RefundPercentage: 100, Description: "Full refund up to 7 days before start"},
			{HoursBeforeBooking: 48, RefundPercentage: 50, Description: "50% refund up to 48 hours before start"},
			{HoursBeforeBooking: 0, RefundPercentage: 0, Description: "No refund within 48 hours of start"},
		},
		ProcessingFeePercentage: 5,
	},
	PolicyStrict: {
		Type:              PolicyStrict,
		AllowCancellation: true,
		AutomaticRefund:   false,
		Tiers: []PolicyTier{
			{HoursBeforeBooking: 336, RefundPercentage: 100, Description: "Full refund up to 14 days before start"},
			{HoursBeforeBooking: 168, RefundPercentage: 50, Description: "50% refund up to 7 days before start"},
			{HoursBeforeBooking: 0, RefundPercentage: 0, Description: "No refund within 7 days of start"},
		},
		ProcessingFeePercentage: 10,
	},
	PolicyNone: {
		Type:                    PolicyNone,
		AllowCancellation:       false,
		AutomaticRefund:         false,
		Tiers:                   []PolicyTier{},
		ProcessingFeePercentage: 0,
	},
}

// PolicyTemplates returns copies of the named presets
func PolicyTemplates() map[PolicyType]CancellationPolicy {
	out := make(map[PolicyType]CancellationPolicy, len(policyTemplates))
	for k, v := range policyTemplates {
		out[k] = v.clone()
	}
	return out
}

// DefaultPolicy is the preset applied to listings without a configured policy
func DefaultPolicy() CancellationPolicy {
	return policyTemplates[PolicyModerate].clone()
}
