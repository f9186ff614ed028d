package cancellation

// returned when a client opens a request
type CreateCancellationResponse struct {
	Request   *CancellationRequest   `json:"request"`
	Automatic *AutomaticRefundResult `json:"automatic_refund,omitempty"`
}

// policy templates keyed by preset name
type PolicyTemplatesResponse struct {
	Templates map[PolicyType]CancellationPolicy `json:"templates"`
}
