package cancellation

import "github.com/shopspring/decimal"

// create cancellation request payload
type CreateCancellationRequest struct {
	Reason      string `json:"reason" validate:"required,oneof=change_of_plans found_alternative emergency workspace_issue host_request other"`
	ReasonOther string `json:"reason_other" validate:"required_if=Reason other,max=1000"`
}

// owner approval payload; the body is optional
type ApproveCancellationRequest struct {
	CustomRefundAmount *decimal.Decimal `json:"custom_refund_amount,omitempty"`
	CustomRefundNote   string           `json:"custom_refund_note" validate:"max=1000"`
}

// owner rejection payload
type RejectCancellationRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type PolicyTierRequest struct {
	HoursBeforeBooking float64 `json:"hours_before_booking"`
	RefundPercentage   float64 `json:"refund_percentage"`
	Description        string  `json:"description" validate:"max=255"`
}

// policy payload, either a preset name or a full policy
type CancellationPolicyRequest struct {
	Template                string              `json:"template,omitempty" validate:"omitempty,oneof=flexible moderate strict none"`
	Type                    string              `json:"type" validate:"required_without=Template"`
	AllowCancellation       bool                `json:"allow_cancellation"`
	AutomaticRefund         bool                `json:"automatic_refund"`
	Tiers                   []PolicyTierRequest `json:"tiers" validate:"max=20,dive"`
	ProcessingFeePercentage float64             `json:"processing_fee_percentage"`
}

// ToPolicy converts the payload to a policy
func (r CancellationPolicyRequest) ToPolicy() CancellationPolicy {
	if r.Template != "" {
		if preset, ok := PolicyTemplates()[PolicyType(r.Template)]; ok {
			return preset
		}
	}

	tiers := make([]PolicyTier, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		tiers = append(tiers, PolicyTier{
			HoursBeforeBooking: t.HoursBeforeBooking,
			RefundPercentage:   t.RefundPercentage,
			Description:        t.Description,
		})
	}

	return CancellationPolicy{
		Type:                    PolicyType(r.Type),
		AllowCancellation:       r.AllowCancellation,
		AutomaticRefund:         r.AutomaticRefund,
		Tiers:                   tiers,
		ProcessingFeePercentage: r.ProcessingFeePercentage,
	}
}
