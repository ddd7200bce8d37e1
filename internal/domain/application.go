package domain

// ApplicantType discriminates the ApplicationInput union.
type ApplicantType string

const (
	ApplicantIndividual ApplicantType = "individual"
	ApplicantCompany    ApplicantType = "company"
)

// Valid reports whether t is a known applicant type.
func (t ApplicantType) Valid() bool {
	return t == ApplicantIndividual || t == ApplicantCompany
}

// Smoking status values.
const (
	SmokingNever   = "never"
	SmokingFormer  = "former"
	SmokingCurrent = "current"
)

// ApplicationInput is an insurance application submitted for underwriting.
// Individual and company fields share one struct; ApplicantType decides
// which half the rule table reads.
type ApplicationInput struct {
	ApplicationID  string        `json:"applicationId,omitempty"`
	ApplicantType  ApplicantType `json:"applicantType"`
	ApplicantName  *string       `json:"applicantName,omitempty"`
	CoverageAmount float64       `json:"coverageAmount"`

	// Individual applicants
	Age                   *int     `json:"age,omitempty"`
	SmokingStatus         *string  `json:"smokingStatus,omitempty"`
	BMI                   *float64 `json:"bmi,omitempty"`
	AnnualIncome          *float64 `json:"annualIncome,omitempty"`
	Occupation            *string  `json:"occupation,omitempty"`
	PreExistingConditions []string `json:"preExistingConditions,omitempty"`
	CreditScore           *int     `json:"creditScore,omitempty"`

	// Company applicants
	Industry         *string  `json:"industry,omitempty"`
	EmployeeCount    *int     `json:"employeeCount,omitempty"`
	YearsInBusiness  *int     `json:"yearsInBusiness,omitempty"`
	AnnualRevenue    *float64 `json:"annualRevenue,omitempty"`
	OSHAIncidents    *int     `json:"oshaIncidents,omitempty"`
	PriorClaimsCount *int     `json:"priorClaimsCount,omitempty"`
	HasSafetyProgram *bool    `json:"hasSafetyProgram,omitempty"`
}

// Subject returns a label for the applicant used in stored records.
func (a ApplicationInput) Subject() string {
	if a.ApplicantName != nil {
		return *a.ApplicantName
	}
	return a.ApplicationID
}
