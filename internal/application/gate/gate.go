// Package gate decides whether a non-schema step (documents, payment) may be
// left. Gates operate on externally-fetched state and are pure: the
// navigation controller fetches, the gate judges.
package gate

import (
	"intake/internal/application/models"
)

// Closed-gate reasons surfaced to the applicant.
const (
	ReasonPhotographRequired  = "a photograph is required"
	ReasonCertificateRequired = "at least one certificate is required"
	ReasonPaymentOutstanding  = "payment is outstanding"
	ReasonPricingUnavailable  = "pricing information is still loading"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Open    bool
	Reasons []string
	// Pending marks a closed payment gate caused by pricing that could not
	// be loaded. The caller should present this as loading, not as failure,
	// to avoid a false "payment rejected" message.
	Pending bool
}

// Documents requires at least one photograph and at least one certificate
// attached to the draft, with a distinct reason per missing requirement.
func Documents(docs []models.Document) Decision {
	counts := models.CountByType(docs)

	var reasons []string
	if counts[models.DocumentTypePhotograph] == 0 {
		reasons = append(reasons, ReasonPhotographRequired)
	}
	if counts[models.DocumentTypeCertificate] == 0 {
		reasons = append(reasons, ReasonCertificateRequired)
	}

	return Decision{Open: len(reasons) == 0, Reasons: reasons}
}

// Payment requires the most recent quote to report no outstanding balance.
// A quote without pricing closes the gate conservatively.
func Payment(quote models.PriceQuote) Decision {
	if !quote.HasPricing {
		return Decision{Reasons: []string{ReasonPricingUnavailable}, Pending: true}
	}
	if quote.PaymentRequired {
		return Decision{Reasons: []string{ReasonPaymentOutstanding}}
	}
	return Decision{Open: true}
}
