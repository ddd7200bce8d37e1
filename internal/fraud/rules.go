package fraud

import (
	"fmt"
	"math"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
)

// Rule is a fraud rule over a claim.
type Rule = engine.Rule[domain.ClaimInput]

// DefaultRules is the built-in fraud rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code:           "FR001",
			Name:           "Identity Mismatch",
			Description:    "Claimant name does not match the policy holder.",
			Severity:       domain.SeverityWarning,
			BaseWeight:     25,
			Predicate:      identityMismatch,
			ImpactedFields: []string{"claimantName", "policyHolderName"},
			Remediation:    "Verify the claimant's relationship to the policy holder and request proof of identity.",
		},
		{
			Code:           "FR002",
			Name:           "Claim Exceeds Policy Limit",
			Description:    "Claimed amount is greater than the policy limit.",
			Severity:       domain.SeverityCritical,
			BaseWeight:     30,
			Predicate:      exceedsLimit,
			ImpactedFields: []string{"claimAmount", "policyLimit"},
			Remediation:    "Confirm the policy limit and cap any payment at the covered amount.",
		},
		{
			Code:           "FR003",
			Name:           "Treatment Before Incident",
			Description:    "Treatment date precedes the reported incident date.",
			Severity:       domain.SeverityCritical,
			BaseWeight:     30,
			Predicate:      treatmentBeforeIncident,
			ImpactedFields: []string{"treatmentDate", "incidentDate"},
			Remediation:    "Obtain provider records to confirm when treatment actually started.",
		},
		{
			Code:           "FR004",
			Name:           "Late Reporting",
			Description:    "Claim was filed long after the incident.",
			Severity:       domain.SeverityWarning,
			BaseWeight:     15,
			Predicate:      lateReporting,
			ImpactedFields: []string{"incidentDate", "claimDate"},
			Remediation:    "Ask the claimant to explain the reporting delay.",
		},
		{
			Code:           "FR005",
			Name:           "Near-Limit Claim",
			Description:    "Claimed amount is just under the policy limit.",
			Severity:       domain.SeverityWarning,
			BaseWeight:     15,
			Predicate:      nearLimit,
			ImpactedFields: []string{"claimAmount", "policyLimit"},
			Remediation:    "Review itemized costs for inflation toward the limit.",
		},
		{
			Code:           "FR006",
			Name:           "Early Policy Claim",
			Description:    "Incident occurred shortly after the policy started.",
			Severity:       domain.SeverityWarning,
			BaseWeight:     20,
			Predicate:      earlyPolicyClaim,
			ImpactedFields: []string{"policyStartDate", "incidentDate"},
			Remediation:    "Check for pre-existing damage or conditions at policy inception.",
		},
		{
			Code:           "FR007",
			Name:           "Frequent Claimant",
			Description:    "Claimant has an unusually high number of prior claims.",
			Severity:       domain.SeverityWarning,
			BaseWeight:     15,
			Predicate:      frequentClaimant,
			ImpactedFields: []string{"priorClaimsCount"},
			Remediation:    "Review the claimant's prior claims for repeated patterns.",
		},
		{
			Code:           "FR008",
			Name:           "Round Amount",
			Description:    "Claimed amount is a round number.",
			Severity:       domain.SeverityInfo,
			BaseWeight:     10,
			Predicate:      roundAmount,
			ImpactedFields: []string{"claimAmount"},
			Remediation:    "Request invoices supporting the exact amount.",
		},
		{
			Code:           "FR009",
			Name:           "Claim Before Incident",
			Description:    "Claim was filed before the incident occurred.",
			Severity:       domain.SeverityCritical,
			BaseWeight:     20,
			Predicate:      claimBeforeIncident,
			ImpactedFields: []string{"claimDate", "incidentDate"},
			Remediation:    "Correct the dates or escalate; a claim cannot precede its incident.",
		},
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func surname(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func identityMismatch(c domain.ClaimInput) engine.Outcome {
	if c.ClaimantName == nil || c.PolicyHolderName == nil {
		return engine.Miss
	}
	claimant := normalizeName(*c.ClaimantName)
	holder := normalizeName(*c.PolicyHolderName)
	if claimant == "" || holder == "" || claimant == holder {
		return engine.Miss
	}

	detail := fmt.Sprintf("Claimant %q does not match policy holder %q", *c.ClaimantName, *c.PolicyHolderName)
	// A shared surname is most often a family member.
	if surname(claimant) == surname(holder) {
		return engine.Hit(50, detail+" (same surname)")
	}
	return engine.Hit(90, detail)
}

func exceedsLimit(c domain.ClaimInput) engine.Outcome {
	if c.ClaimAmount == nil || c.PolicyLimit == nil {
		return engine.Miss
	}
	if *c.ClaimAmount <= *c.PolicyLimit {
		return engine.Miss
	}
	return engine.Hit(100, fmt.Sprintf("Claim amount %s exceeds policy limit %s",
		engine.Money(*c.ClaimAmount), engine.Money(*c.PolicyLimit)))
}

func treatmentBeforeIncident(c domain.ClaimInput) engine.Outcome {
	if c.TreatmentDate == nil || c.IncidentDate == nil {
		return engine.Miss
	}
	if !c.TreatmentDate.Before(c.IncidentDate.Time) {
		return engine.Miss
	}
	days := c.TreatmentDate.DaysUntil(*c.IncidentDate)
	return engine.Hit(100, fmt.Sprintf("Treatment on %s is %s before the incident on %s",
		c.TreatmentDate, engine.Plural(days, "day", "days"), c.IncidentDate))
}

func lateReporting(c domain.ClaimInput) engine.Outcome {
	if c.IncidentDate == nil || c.ClaimDate == nil {
		return engine.Miss
	}
	days := c.IncidentDate.DaysUntil(*c.ClaimDate)
	detail := fmt.Sprintf("Claim filed %s after the incident", engine.Plural(days, "day", "days"))
	switch {
	case days > 90:
		return engine.Hit(90, detail)
	case days > 30:
		return engine.Hit(70, detail)
	default:
		return engine.Miss
	}
}

func nearLimit(c domain.ClaimInput) engine.Outcome {
	if c.ClaimAmount == nil || c.PolicyLimit == nil || *c.PolicyLimit <= 0 {
		return engine.Miss
	}
	if *c.ClaimAmount > *c.PolicyLimit {
		return engine.Miss
	}
	ratio := *c.ClaimAmount / *c.PolicyLimit
	detail := fmt.Sprintf("Claim amount %s is %.1f%% of the %s policy limit",
		engine.Money(*c.ClaimAmount), ratio*100, engine.Money(*c.PolicyLimit))
	switch {
	case ratio >= 0.95:
		return engine.Hit(85, detail)
	case ratio >= 0.9:
		return engine.Hit(70, detail)
	default:
		return engine.Miss
	}
}

func earlyPolicyClaim(c domain.ClaimInput) engine.Outcome {
	if c.PolicyStartDate == nil || c.IncidentDate == nil {
		return engine.Miss
	}
	days := c.PolicyStartDate.DaysUntil(*c.IncidentDate)
	if days < 0 {
		return engine.Miss
	}
	detail := fmt.Sprintf("Incident occurred %s after the policy started on %s",
		engine.Plural(days, "day", "days"), c.PolicyStartDate)
	switch {
	case days <= 7:
		return engine.Hit(90, detail)
	case days <= 30:
		return engine.Hit(70, detail)
	default:
		return engine.Miss
	}
}

func frequentClaimant(c domain.ClaimInput) engine.Outcome {
	if c.PriorClaimsCount == nil {
		return engine.Miss
	}
	n := *c.PriorClaimsCount
	detail := fmt.Sprintf("Claimant has %s on record", engine.Plural(n, "prior claim", "prior claims"))
	switch {
	case n >= 5:
		return engine.Hit(90, detail)
	case n >= 3:
		return engine.Hit(70, detail)
	default:
		return engine.Miss
	}
}

func roundAmount(c domain.ClaimInput) engine.Outcome {
	if c.ClaimAmount == nil {
		return engine.Miss
	}
	amount := *c.ClaimAmount
	if amount < 1000 || math.Mod(amount, 1000) != 0 {
		return engine.Miss
	}
	return engine.Hit(60, fmt.Sprintf("Claim amount %s is an exact multiple of $1,000", engine.Money(amount)))
}

func claimBeforeIncident(c domain.ClaimInput) engine.Outcome {
	if c.ClaimDate == nil || c.IncidentDate == nil {
		return engine.Miss
	}
	if !c.ClaimDate.Before(c.IncidentDate.Time) {
		return engine.Miss
	}
	return engine.Hit(100, fmt.Sprintf("Claim filed on %s, before the incident on %s", c.ClaimDate, c.IncidentDate))
}
