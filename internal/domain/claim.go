package domain

import "strings"

// ClaimInput is a claim record submitted for fraud scoring.
// Every field except the identifiers is optional; rules that need an
// absent field do not trigger.
type ClaimInput struct {
	ClaimID             string   `json:"claimId,omitempty"`
	ClaimantName        *string  `json:"claimantName,omitempty"`
	PolicyHolderName    *string  `json:"policyHolderName,omitempty"`
	PolicyNumber        *string  `json:"policyNumber,omitempty"`
	ClaimAmount         *float64 `json:"claimAmount,omitempty"`
	PolicyLimit         *float64 `json:"policyLimit,omitempty"`
	IncidentDate        *Date    `json:"incidentDate,omitempty"`
	ClaimDate           *Date    `json:"claimDate,omitempty"`
	TreatmentDate       *Date    `json:"treatmentDate,omitempty"`
	PolicyStartDate     *Date    `json:"policyStartDate,omitempty"`
	PriorClaimsCount    *int     `json:"priorClaimsCount,omitempty"`
	ProviderName        *string  `json:"providerName,omitempty"`
	IncidentDescription *string  `json:"incidentDescription,omitempty"`
}

// Subject returns the claimant used for history lookups, lower-cased with
// whitespace collapsed so "Jane  Doe" and "jane doe" share a history.
func (c ClaimInput) Subject() string {
	name := c.ClaimantName
	if name == nil {
		name = c.PolicyHolderName
	}
	if name == nil {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(*name), " "))
}

// Ptr returns a pointer to v. Handy for building optional fields.
func Ptr[T any](v T) *T {
	return &v
}
