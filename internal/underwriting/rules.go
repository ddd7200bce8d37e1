package underwriting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
)

// Rule is an underwriting rule over an application.
type Rule = engine.Rule[domain.ApplicationInput]

var (
	individual = []string{string(domain.ApplicantIndividual)}
	company    = []string{string(domain.ApplicantCompany)}
)

// Occupations rated as hazardous for individual cover.
var hazardousOccupations = []string{
	"pilot", "miner", "logger", "fisherman", "roofer", "firefighter",
	"police", "construction", "oil rig", "commercial diver", "lineman",
	"truck driver", "stunt",
}

var (
	highRiskIndustries     = []string{"construction", "mining", "logging", "oil and gas"}
	elevatedRiskIndustries = []string{"manufacturing", "transportation", "agriculture", "warehousing"}
)

// DefaultRules is the built-in underwriting rule table.
func DefaultRules() []Rule {
	return []Rule{
		// Individual applicants
		{
			Code:           "UW001",
			Name:           "Advanced Age",
			Description:    "Applicant age increases mortality and morbidity risk.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     15,
			Variants:       individual,
			Predicate:      advancedAge,
			ImpactedFields: []string{"age"},
			Remediation:    "Request a recent medical examination.",
		},
		{
			Code:           "UW002",
			Name:           "Tobacco Use",
			Description:    "Applicant uses or has used tobacco.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     25,
			Variants:       individual,
			Predicate:      tobaccoUse,
			ImpactedFields: []string{"smokingStatus"},
			Remediation:    "Apply tobacco rates; offer a review after 12 months smoke-free.",
		},
		{
			Code:           "UW003",
			Name:           "Elevated BMI",
			Description:    "Body mass index is above the healthy range.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     15,
			Variants:       individual,
			Predicate:      elevatedBMI,
			ImpactedFields: []string{"bmi"},
			Remediation:    "Request blood pressure and cholesterol results.",
		},
		{
			Code:           "UW004",
			Name:           "Pre-existing Conditions",
			Description:    "Applicant reports pre-existing medical conditions.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     20,
			Variants:       individual,
			Predicate:      preExistingConditions,
			ImpactedFields: []string{"preExistingConditions"},
			Remediation:    "Obtain attending physician statements for each condition.",
		},
		{
			Code:           "UW005",
			Name:           "Hazardous Occupation",
			Description:    "Occupation carries elevated injury risk.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     15,
			Variants:       individual,
			Predicate:      hazardousOccupation,
			ImpactedFields: []string{"occupation"},
			Remediation:    "Consider an occupational exclusion or loading.",
		},
		{
			Code:           "UW006",
			Name:           "Coverage-to-Income Ratio",
			Description:    "Requested coverage is high relative to income.",
			Severity:       domain.SeverityCritical,
			Dimension:      domain.DimensionProfitability,
			BaseWeight:     20,
			Variants:       individual,
			Predicate:      coverageToIncome,
			ImpactedFields: []string{"coverageAmount", "annualIncome"},
			Remediation:    "Verify income and the insurable interest behind the requested amount.",
		},
		{
			Code:           "UW007",
			Name:           "Low Credit Score",
			Description:    "Credit score correlates with lapse and claim rates.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionProfitability,
			BaseWeight:     10,
			Variants:       individual,
			Predicate:      lowCreditScore,
			ImpactedFields: []string{"creditScore"},
			Remediation:    "Require annual rather than monthly premium payment.",
		},
		{
			Code:           "UW008",
			Name:           "Healthy Non-Smoker Discount",
			Description:    "Young non-smoker with a healthy BMI.",
			Severity:       domain.SeverityInfo,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     -10,
			Variants:       individual,
			Predicate:      healthyNonSmoker,
			ImpactedFields: []string{"age", "smokingStatus", "bmi"},
			Remediation:    "Offer preferred-plus pricing.",
		},

		// Company applicants
		{
			Code:           "UW101",
			Name:           "High-Risk Industry",
			Description:    "Industry has above-average claim frequency.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     25,
			Variants:       company,
			Predicate:      highRiskIndustry,
			ImpactedFields: []string{"industry"},
			Remediation:    "Require a site inspection before binding.",
		},
		{
			Code:           "UW102",
			Name:           "Limited Operating History",
			Description:    "Business has few years of operating history.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     15,
			Variants:       company,
			Predicate:      limitedHistory,
			ImpactedFields: []string{"yearsInBusiness"},
			Remediation:    "Request financial statements and the owners' industry experience.",
		},
		{
			Code:           "UW103",
			Name:           "Adverse Claims History",
			Description:    "Business has filed many prior claims.",
			Severity:       domain.SeverityCritical,
			Dimension:      domain.DimensionProfitability,
			BaseWeight:     20,
			Variants:       company,
			Predicate:      adverseClaims,
			ImpactedFields: []string{"priorClaimsCount"},
			Remediation:    "Obtain five-year loss runs from prior carriers.",
		},
		{
			Code:           "UW104",
			Name:           "Safety Incidents",
			Description:    "Business has recorded OSHA incidents.",
			Severity:       domain.SeverityCritical,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     20,
			Variants:       company,
			Predicate:      safetyIncidents,
			ImpactedFields: []string{"oshaIncidents"},
			Remediation:    "Request OSHA logs and the corrective action taken.",
		},
		{
			Code:           "UW105",
			Name:           "Coverage-to-Revenue",
			Description:    "Requested coverage is large relative to revenue.",
			Severity:       domain.SeverityWarning,
			Dimension:      domain.DimensionProfitability,
			BaseWeight:     15,
			Variants:       company,
			Predicate:      coverageToRevenue,
			ImpactedFields: []string{"coverageAmount", "annualRevenue"},
			Remediation:    "Confirm asset values supporting the requested limit.",
		},
		{
			Code:           "UW106",
			Name:           "Safety Program Discount",
			Description:    "Formal safety program with no recorded incidents.",
			Severity:       domain.SeverityInfo,
			Dimension:      domain.DimensionRisk,
			BaseWeight:     -10,
			Variants:       company,
			Predicate:      safetyProgram,
			ImpactedFields: []string{"hasSafetyProgram", "oshaIncidents"},
			Remediation:    "Apply the safety program credit.",
		},
		{
			Code:           "UW107",
			Name:           "Established Business Discount",
			Description:    "Business has operated for two decades or more.",
			Severity:       domain.SeverityInfo,
			Dimension:      domain.DimensionProfitability,
			BaseWeight:     -5,
			Variants:       company,
			Predicate:      establishedBusiness,
			ImpactedFields: []string{"yearsInBusiness"},
			Remediation:    "Apply the longevity credit.",
		},
	}
}

func advancedAge(a domain.ApplicationInput) engine.Outcome {
	if a.Age == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("Applicant is %d years old", *a.Age)
	switch {
	case *a.Age >= 70:
		return engine.Hit(100, detail)
	case *a.Age >= 60:
		return engine.Hit(90, detail)
	default:
		return engine.Miss
	}
}

func tobaccoUse(a domain.ApplicationInput) engine.Outcome {
	if a.SmokingStatus == nil {
		return engine.Miss
	}
	switch strings.ToLower(strings.TrimSpace(*a.SmokingStatus)) {
	case domain.SmokingCurrent:
		return engine.Hit(100, "Applicant is a current smoker")
	case domain.SmokingFormer:
		return engine.Hit(50, "Applicant is a former smoker")
	default:
		return engine.Miss
	}
}

func elevatedBMI(a domain.ApplicationInput) engine.Outcome {
	if a.BMI == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("BMI of %.1f", *a.BMI)
	switch {
	case *a.BMI >= 35:
		return engine.Hit(90, detail+" is in the obese range")
	case *a.BMI >= 30:
		return engine.Hit(70, detail+" is above the healthy range")
	default:
		return engine.Miss
	}
}

func preExistingConditions(a domain.ApplicationInput) engine.Outcome {
	n := 0
	for _, c := range a.PreExistingConditions {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	if n == 0 {
		return engine.Miss
	}
	detail := fmt.Sprintf("%s reported: %s",
		engine.Plural(n, "pre-existing condition", "pre-existing conditions"),
		strings.Join(a.PreExistingConditions, ", "))
	if n >= 3 {
		return engine.Hit(95, detail)
	}
	return engine.Hit(70, detail)
}

func hazardousOccupation(a domain.ApplicationInput) engine.Outcome {
	if a.Occupation == nil {
		return engine.Miss
	}
	occ := strings.ToLower(*a.Occupation)
	for _, h := range hazardousOccupations {
		if strings.Contains(occ, h) {
			return engine.Hit(90, fmt.Sprintf("Occupation %q is rated hazardous", *a.Occupation))
		}
	}
	return engine.Miss
}

func coverageToIncome(a domain.ApplicationInput) engine.Outcome {
	if a.AnnualIncome == nil || *a.AnnualIncome <= 0 {
		return engine.Miss
	}
	income := *a.AnnualIncome
	ratio := a.CoverageAmount / income
	detail := fmt.Sprintf("Coverage of %s is %.1fx annual income of %s",
		engine.Money(a.CoverageAmount), ratio, engine.Money(income))
	switch {
	case ratio > 30:
		return engine.Hit(95, detail)
	case ratio > 20:
		return engine.Hit(75, detail)
	default:
		return engine.Miss
	}
}

func lowCreditScore(a domain.ApplicationInput) engine.Outcome {
	if a.CreditScore == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("Credit score of %d", *a.CreditScore)
	switch {
	case *a.CreditScore < 580:
		return engine.Hit(90, detail+" is poor")
	case *a.CreditScore < 650:
		return engine.Hit(70, detail+" is fair")
	default:
		return engine.Miss
	}
}

func healthyNonSmoker(a domain.ApplicationInput) engine.Outcome {
	if a.SmokingStatus == nil || a.Age == nil || a.BMI == nil {
		return engine.Miss
	}
	if strings.ToLower(strings.TrimSpace(*a.SmokingStatus)) != domain.SmokingNever {
		return engine.Miss
	}
	if *a.Age >= 40 || *a.BMI >= 25 {
		return engine.Miss
	}
	return engine.Hit(100, fmt.Sprintf("Non-smoker aged %d with BMI %.1f", *a.Age, *a.BMI))
}

func matchIndustry(industry string, list []string) bool {
	industry = strings.ToLower(industry)
	return slices.ContainsFunc(list, func(s string) bool {
		return strings.Contains(industry, s)
	})
}

func highRiskIndustry(a domain.ApplicationInput) engine.Outcome {
	if a.Industry == nil {
		return engine.Miss
	}
	switch {
	case matchIndustry(*a.Industry, highRiskIndustries):
		return engine.Hit(95, fmt.Sprintf("%s is a high-risk industry", *a.Industry))
	case matchIndustry(*a.Industry, elevatedRiskIndustries):
		return engine.Hit(70, fmt.Sprintf("%s is an elevated-risk industry", *a.Industry))
	default:
		return engine.Miss
	}
}

func limitedHistory(a domain.ApplicationInput) engine.Outcome {
	if a.YearsInBusiness == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("In business for %s", engine.Plural(*a.YearsInBusiness, "year", "years"))
	switch {
	case *a.YearsInBusiness < 2:
		return engine.Hit(90, detail)
	case *a.YearsInBusiness < 5:
		return engine.Hit(60, detail)
	default:
		return engine.Miss
	}
}

func adverseClaims(a domain.ApplicationInput) engine.Outcome {
	if a.PriorClaimsCount == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("%s on record", engine.Plural(*a.PriorClaimsCount, "prior claim", "prior claims"))
	switch {
	case *a.PriorClaimsCount >= 5:
		return engine.Hit(95, detail)
	case *a.PriorClaimsCount >= 3:
		return engine.Hit(75, detail)
	default:
		return engine.Miss
	}
}

func safetyIncidents(a domain.ApplicationInput) engine.Outcome {
	if a.OSHAIncidents == nil {
		return engine.Miss
	}
	detail := fmt.Sprintf("%s recorded", engine.Plural(*a.OSHAIncidents, "OSHA incident", "OSHA incidents"))
	switch {
	case *a.OSHAIncidents >= 3:
		return engine.Hit(95, detail)
	case *a.OSHAIncidents >= 1:
		return engine.Hit(60, detail)
	default:
		return engine.Miss
	}
}

func coverageToRevenue(a domain.ApplicationInput) engine.Outcome {
	if a.AnnualRevenue == nil || *a.AnnualRevenue <= 0 {
		return engine.Miss
	}
	revenue := *a.AnnualRevenue
	if a.CoverageAmount <= 2*revenue {
		return engine.Miss
	}
	return engine.Hit(85, fmt.Sprintf("Coverage of %s is %.1fx annual revenue of %s",
		engine.Money(a.CoverageAmount), a.CoverageAmount/revenue, engine.Money(revenue)))
}

func safetyProgram(a domain.ApplicationInput) engine.Outcome {
	if a.HasSafetyProgram == nil || !*a.HasSafetyProgram || a.OSHAIncidents == nil || *a.OSHAIncidents != 0 {
		return engine.Miss
	}
	return engine.Hit(100, "Safety program in place with no recorded incidents")
}

func establishedBusiness(a domain.ApplicationInput) engine.Outcome {
	if a.YearsInBusiness == nil || *a.YearsInBusiness < 20 {
		return engine.Miss
	}
	return engine.Hit(100, fmt.Sprintf("In business for %d years", *a.YearsInBusiness))
}
