package models

// PriceQuote is the pricing state for an application at the moment it was
// fetched. It is not cached beyond the current payment-step visit.
type PriceQuote struct {
	// AmountDue is the outstanding balance in the minor currency unit.
	AmountDue int64 `json:"amount_due"`
	// PaymentRequired is true while any balance remains outstanding.
	PaymentRequired bool `json:"payment_required"`
	// HasPricing is false when pricing could not be computed; the payment
	// gate treats that as "still loading", not as settled.
	HasPricing bool `json:"has_pricing"`
}
